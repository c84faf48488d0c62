package dto

import (
	"time"

	"github.com/google/uuid"
)

type AddKnowledgeRequest struct {
	Content string `json:"content" validate:"required,max=20000"`
}

type SearchKnowledgeRequest struct {
	Query string `json:"query" validate:"required"`
}

type KnowledgeDocumentResponse struct {
	Id         uuid.UUID `json:"id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	Similarity float64   `json:"similarity,omitempty"`
}
