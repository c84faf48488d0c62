package contract

import (
	"context"

	"ai-chatbot-be/internal/entity"

	"github.com/google/uuid"
)

type ProfileRepository interface {
	// FindById returns nil, nil when the owner has no profile row yet.
	FindById(ctx context.Context, id uuid.UUID) (*entity.Profile, error)
	Upsert(ctx context.Context, profile *entity.Profile) error
}
