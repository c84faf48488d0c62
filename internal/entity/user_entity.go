package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	UserProviderPassword = "password"
	UserProviderGoogle   = "google"
)

type User struct {
	Id           uuid.UUID
	Email        string
	PasswordHash *string
	Provider     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserRefreshToken struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}
