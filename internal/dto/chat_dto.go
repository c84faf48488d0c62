package dto

import (
	"time"

	"github.com/google/uuid"
)

type ChatSessionDTO struct {
	Id        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ChatTurnDTO struct {
	Id        uuid.UUID              `json:"id"`
	SessionId uuid.UUID              `json:"session_id"`
	Role      string                 `json:"role"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	// Local is true until a reload confirms the turn.
	Local bool `json:"local"`
}

type AttachmentDTO struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	Processed bool   `json:"processed"`
}

// ChatStateResponse is pushed over the WebSocket and returned by GET /state.
type ChatStateResponse struct {
	Sessions        []ChatSessionDTO `json:"sessions"`
	ActiveSessionId *uuid.UUID       `json:"active_session_id"`
	Turns           []ChatTurnDTO    `json:"turns"`
	Pending         bool             `json:"pending"`
	Attachments     []AttachmentDTO  `json:"attachments"`
	Notice          string           `json:"notice,omitempty"`
}

type RenameSessionRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

type SendTurnRequest struct {
	// SessionId may be omitted to target the active session.
	SessionId uuid.UUID `json:"session_id"`
	Text      string    `json:"text" validate:"required,max=8000"`
}

type SendTurnResponse struct {
	Outcome string            `json:"outcome"`
	State   ChatStateResponse `json:"state"`
}

type AddAttachmentRequest struct {
	URL string `json:"url" validate:"required"`
}
