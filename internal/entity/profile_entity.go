package entity

import (
	"time"

	"github.com/google/uuid"
)

type Profile struct {
	Id          uuid.UUID // equals the owner's user id
	FirstName   *string
	LastName    *string
	AvatarURL   *string
	PhoneNumber *string
	CountryCode *string
	UpdatedAt   time.Time
}

func (p *Profile) DisplayName() string {
	if p == nil || p.FirstName == nil || *p.FirstName == "" {
		return ""
	}
	if p.LastName == nil || *p.LastName == "" {
		return *p.FirstName
	}
	return *p.FirstName + " " + *p.LastName
}
