package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
)

type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	UserId        uuid.UUID
	Role          string
	Content       string
	Metadata      map[string]interface{}
	CreatedAt     time.Time

	// Local marks an optimistic turn appended before a reload confirmed it.
	Local bool
}
