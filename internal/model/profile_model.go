package model

import (
	"time"

	"github.com/google/uuid"
)

type Profile struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey"`
	FirstName   *string   `gorm:"type:varchar(255)"`
	LastName    *string   `gorm:"type:varchar(255)"`
	AvatarURL   *string   `gorm:"type:text"`
	PhoneNumber *string   `gorm:"type:varchar(50)"`
	CountryCode *string   `gorm:"type:varchar(10)"`
	UpdatedAt   time.Time
}

func (Profile) TableName() string {
	return "profiles"
}
