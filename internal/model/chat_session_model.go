package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatSession is one conversation thread. Its turns go with it: the foreign key
// cascades on hard delete, and the gateway removes them in the same
// transaction as a soft delete.
type ChatSession struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId    uuid.UUID      `gorm:"type:uuid;not null;index:idx_chat_sessions_user_created,priority:1"`
	Title     string         `gorm:"type:varchar(255);not null;default:'New Chat'"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index:idx_chat_sessions_user_created,priority:2,sort:desc"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`

	Messages []ChatMessage `gorm:"foreignKey:ChatSessionId;constraint:OnDelete:CASCADE"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}
