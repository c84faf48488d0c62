package contract

import (
	"context"

	"ai-chatbot-be/internal/entity"
	"ai-chatbot-be/internal/repository/specification"

	"github.com/google/uuid"
)

type KnowledgeRepository interface {
	Create(ctx context.Context, doc *entity.KnowledgeDocument) error
	Delete(ctx context.Context, userId, id uuid.UUID) (int64, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.KnowledgeDocument, error)
	// SearchSimilar returns documents whose cosine similarity to the query is >= threshold, best first.
	SearchSimilar(ctx context.Context, userId uuid.UUID, embedding []float32, threshold float64, limit int) ([]*entity.ScoredKnowledgeDocument, error)
}
