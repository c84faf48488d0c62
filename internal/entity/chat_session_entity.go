package entity

import (
	"time"

	"github.com/google/uuid"
)

// DefaultChatTitle is shown until the first turn of a session completes.
const DefaultChatTitle = "New Chat"

type ChatSession struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
