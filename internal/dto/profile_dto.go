package dto

import (
	"time"

	"github.com/google/uuid"
)

type ProfileResponse struct {
	Id          uuid.UUID `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	CountryCode string    `json:"country_code,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type UpdateProfileRequest struct {
	FirstName   *string `json:"first_name" validate:"omitempty,max=255"`
	LastName    *string `json:"last_name" validate:"omitempty,max=255"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,max=50"`
	CountryCode *string `json:"country_code" validate:"omitempty,max=10"`
}

type AvatarResponse struct {
	AvatarURL string `json:"avatar_url"`
}
