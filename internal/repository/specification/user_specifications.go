package specification

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/google/uuid"
)

type ByEmail struct {
	Email string
}

func (s ByEmail) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("email = ?", strings.ToLower(strings.TrimSpace(s.Email)))
}

type UserOwnedBy struct {
	UserID uuid.UUID
}

func (s UserOwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

// Token Specs

type ByTokenHash struct {
	Hash string
}

func (s ByTokenHash) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("token_hash = ?", s.Hash)
}

// UsableToken keeps refresh tokens that are neither revoked nor expired at Now.
type UsableToken struct {
	Now time.Time
}

func (s UsableToken) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("revoked = ?", false).Where("expires_at > ?", s.Now)
}
