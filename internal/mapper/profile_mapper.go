package mapper

import (
	"ai-chatbot-be/internal/entity"
	"ai-chatbot-be/internal/model"
)

type ProfileMapper struct{}

func NewProfileMapper() *ProfileMapper {
	return &ProfileMapper{}
}

func (m *ProfileMapper) ToEntity(p *model.Profile) *entity.Profile {
	if p == nil {
		return nil
	}
	return &entity.Profile{
		Id:          p.Id,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		AvatarURL:   p.AvatarURL,
		PhoneNumber: p.PhoneNumber,
		CountryCode: p.CountryCode,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (m *ProfileMapper) ToModel(p *entity.Profile) *model.Profile {
	if p == nil {
		return nil
	}
	return &model.Profile{
		Id:          p.Id,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		AvatarURL:   p.AvatarURL,
		PhoneNumber: p.PhoneNumber,
		CountryCode: p.CountryCode,
		UpdatedAt:   p.UpdatedAt,
	}
}
