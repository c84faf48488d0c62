package entity

import (
	"time"

	"github.com/google/uuid"
)

type KnowledgeDocument struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Content   string
	Embedding []float32
	CreatedAt time.Time
}

// ScoredKnowledgeDocument carries the cosine similarity of a search hit.
type ScoredKnowledgeDocument struct {
	Document   *KnowledgeDocument
	Similarity float64
}
