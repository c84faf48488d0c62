package contract

import (
	"context"

	"ai-chatbot-be/internal/entity"
	"ai-chatbot-be/internal/repository/specification"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error)

	CreateRefreshToken(ctx context.Context, token *entity.UserRefreshToken) error
	FindRefreshToken(ctx context.Context, specs ...specification.Specification) (*entity.UserRefreshToken, error)
	// RevokeRefreshToken revokes userId's live token with tokenHash and reports
	// how many rows changed, so a token can be spent only once.
	RevokeRefreshToken(ctx context.Context, userId uuid.UUID, tokenHash string) (int64, error)
	RevokeAllRefreshTokens(ctx context.Context, userId uuid.UUID) error
}
