package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-chatbot-be/internal/dto"
	"ai-chatbot-be/internal/entity"
	"ai-chatbot-be/internal/mapper"
	"ai-chatbot-be/internal/pkg/logger"
	"ai-chatbot-be/internal/repository/specification"
	"ai-chatbot-be/internal/repository/unitofwork"
	"ai-chatbot-be/pkg/embedding"
	"ai-chatbot-be/pkg/utils"

	"github.com/google/uuid"
)

const (
	KnowledgeSimilarityThreshold = 0.8
	KnowledgeSearchLimit         = 3

	// Long documents are stored as overlapping chunks, each embedded on its own.
	KnowledgeChunkSize    = 2000
	KnowledgeChunkOverlap = 200
)

var (
	ErrKnowledgeNotFound = errors.New("knowledge document not found")
	ErrEmptyContent      = errors.New("content is empty")
)

type IKnowledgeService interface {
	// Add stores content as one document per chunk.
	Add(ctx context.Context, ownerId uuid.UUID, content string) ([]dto.KnowledgeDocumentResponse, error)
	Search(ctx context.Context, ownerId uuid.UUID, query string) ([]dto.KnowledgeDocumentResponse, error)
	Delete(ctx context.Context, ownerId uuid.UUID, id uuid.UUID) error
	List(ctx context.Context, ownerId uuid.UUID) ([]dto.KnowledgeDocumentResponse, error)
}

type knowledgeService struct {
	uowFactory unitofwork.RepositoryFactory
	embedder   embedding.EmbeddingProvider
	logger     logger.ILogger
}

func NewKnowledgeService(uowFactory unitofwork.RepositoryFactory, embedder embedding.EmbeddingProvider, log logger.ILogger) IKnowledgeService {
	return &knowledgeService{
		uowFactory: uowFactory,
		embedder:   embedder,
		logger:     log,
	}
}

func (s *knowledgeService) Add(ctx context.Context, ownerId uuid.UUID, content string) ([]dto.KnowledgeDocumentResponse, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	chunks := utils.SplitText(content, KnowledgeChunkSize, KnowledgeChunkOverlap)
	docs := make([]*entity.KnowledgeDocument, 0, len(chunks))
	for _, chunk := range chunks {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		vector, err := s.embedder.Embed(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("embed document: %w", err)
		}
		docs = append(docs, &entity.KnowledgeDocument{
			Id:        uuid.New(),
			UserId:    ownerId,
			Content:   chunk,
			Embedding: vector,
			CreatedAt: time.Now(),
		})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	for _, doc := range docs {
		if err := uow.KnowledgeRepository().Create(ctx, doc); err != nil {
			return nil, fmt.Errorf("store document: %w", err)
		}
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("KNOWLEDGE", "Document added", map[string]interface{}{
		"owner_id": ownerId.String(),
		"chunks":   len(docs),
		"model":    s.embedder.ModelName(),
	})

	res := make([]dto.KnowledgeDocumentResponse, 0, len(docs))
	for _, doc := range docs {
		res = append(res, mapper.KnowledgeToResponse(doc, 0))
	}
	return res, nil
}

func (s *knowledgeService) Search(ctx context.Context, ownerId uuid.UUID, query string) ([]dto.KnowledgeDocumentResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []dto.KnowledgeDocumentResponse{}, nil
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	hits, err := uow.KnowledgeRepository().SearchSimilar(ctx, ownerId, vector, KnowledgeSimilarityThreshold, KnowledgeSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}

	res := make([]dto.KnowledgeDocumentResponse, 0, len(hits))
	for _, hit := range hits {
		res = append(res, mapper.KnowledgeToResponse(hit.Document, hit.Similarity))
	}
	return res, nil
}

func (s *knowledgeService) Delete(ctx context.Context, ownerId uuid.UUID, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	affected, err := uow.KnowledgeRepository().Delete(ctx, ownerId, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if affected == 0 {
		return ErrKnowledgeNotFound
	}
	return nil
}

func (s *knowledgeService) List(ctx context.Context, ownerId uuid.UUID) ([]dto.KnowledgeDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	docs, err := uow.KnowledgeRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: ownerId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	res := make([]dto.KnowledgeDocumentResponse, 0, len(docs))
	for _, d := range docs {
		res = append(res, mapper.KnowledgeToResponse(d, 0))
	}
	return res, nil
}
