package conversation

import (
	"context"

	"ai-chatbot-be/internal/entity"

	"github.com/google/uuid"
)

// PersistenceGateway is the durable store the controller reads from and writes to.
// It is the source of truth whenever the controller reloads.
type PersistenceGateway interface {
	// ListSessions returns the owner's sessions, newest first.
	ListSessions(ctx context.Context, ownerId uuid.UUID) ([]*entity.ChatSession, error)
	// ListTurns returns a session's turns, oldest first.
	ListTurns(ctx context.Context, ownerId uuid.UUID, sessionId uuid.UUID) ([]*entity.ChatMessage, error)
	InsertSession(ctx context.Context, session *entity.ChatSession) (*entity.ChatSession, error)
	UpdateSessionTitle(ctx context.Context, ownerId uuid.UUID, sessionId uuid.UUID, title string) error
	// DeleteSession removes the session together with its turns.
	DeleteSession(ctx context.Context, ownerId uuid.UUID, sessionId uuid.UUID) error
	InsertTurn(ctx context.Context, turn *entity.ChatMessage) error
}

// CompletionGateway is a stateless text function backed by a language model.
type CompletionGateway interface {
	Complete(ctx context.Context, systemInstruction string, userText string, temperature float64, maxTokens int) (string, error)
}

// modelNamer is optionally implemented by a CompletionGateway to tag assistant turns.
type modelNamer interface {
	ModelName() string
}
