package service

import (
	"context"
	"strings"

	"ai-chatbot-be/internal/dto"
	"ai-chatbot-be/internal/mapper"
	"ai-chatbot-be/internal/repository/memory"
	"ai-chatbot-be/pkg/conversation"

	"github.com/google/uuid"
)

type IConversationService interface {
	State(ctx context.Context, ownerId uuid.UUID) dto.ChatStateResponse
	SearchSessions(ctx context.Context, ownerId uuid.UUID, term string) []dto.ChatSessionDTO
	CreateSession(ctx context.Context, ownerId uuid.UUID) dto.ChatStateResponse
	SelectSession(ctx context.Context, ownerId uuid.UUID, sessionId uuid.UUID) dto.ChatStateResponse
	RenameSession(ctx context.Context, ownerId uuid.UUID, sessionId uuid.UUID, title string) dto.ChatStateResponse
	DeleteSession(ctx context.Context, ownerId uuid.UUID, sessionId uuid.UUID) dto.ChatStateResponse
	SendTurn(ctx context.Context, ownerId uuid.UUID, req *dto.SendTurnRequest) dto.SendTurnResponse
	AddAttachment(ctx context.Context, ownerId uuid.UUID, url string) (*dto.AttachmentDTO, error)
	RemoveAttachment(ctx context.Context, ownerId uuid.UUID, id string) bool
}

type conversationService struct {
	registry *memory.ControllerRegistry
}

func NewConversationService(registry *memory.ControllerRegistry) IConversationService {
	return &conversationService{registry: registry}
}

// controllerFor initializes controllers created on demand, e.g. after a restart
// when the owner still holds a valid access token.
func (s *conversationService) controllerFor(ctx context.Context, ownerId uuid.UUID) *conversation.Controller {
	ctrl, created := s.registry.GetOrCreate(ownerId)
	if created {
		ctrl.Initialize(ctx)
	}
	return ctrl
}

func (s *conversationService) State(ctx context.Context, ownerId uuid.UUID) dto.ChatStateResponse {
	return mapper.SnapshotToResponse(s.controllerFor(ctx, ownerId).Snapshot())
}

func (s *conversationService) SearchSessions(ctx context.Context, ownerId uuid.UUID, term string) []dto.ChatSessionDTO {
	return mapper.ChatSessionsToDTOs(s.controllerFor(ctx, ownerId).SearchSessions(term))
}

func (s *conversationService) CreateSession(ctx context.Context, ownerId uuid.UUID) dto.ChatStateResponse {
	ctrl := s.controllerFor(ctx, ownerId)
	ctrl.CreateSession(ctx)
	return mapper.SnapshotToResponse(ctrl.Snapshot())
}

func (s *conversationService) SelectSession(ctx context.Context, ownerId uuid.UUID, sessionId uuid.UUID) dto.ChatStateResponse {
	ctrl := s.controllerFor(ctx, ownerId)
	ctrl.SelectSession(ctx, sessionId)
	return mapper.SnapshotToResponse(ctrl.Snapshot())
}

func (s *conversationService) RenameSession(ctx context.Context, ownerId uuid.UUID, sessionId uuid.UUID, title string) dto.ChatStateResponse {
	ctrl := s.controllerFor(ctx, ownerId)
	ctrl.RenameSession(ctx, sessionId, title)
	return mapper.SnapshotToResponse(ctrl.Snapshot())
}

func (s *conversationService) DeleteSession(ctx context.Context, ownerId uuid.UUID, sessionId uuid.UUID) dto.ChatStateResponse {
	ctrl := s.controllerFor(ctx, ownerId)
	ctrl.DeleteSession(ctx, sessionId)
	return mapper.SnapshotToResponse(ctrl.Snapshot())
}

// SendTurn opens a session first when the owner has none and did not name one.
func (s *conversationService) SendTurn(ctx context.Context, ownerId uuid.UUID, req *dto.SendTurnRequest) dto.SendTurnResponse {
	ctrl := s.controllerFor(ctx, ownerId)

	if req.SessionId == uuid.Nil && strings.TrimSpace(req.Text) != "" && ctrl.Snapshot().ActiveSessionId == nil {
		ctrl.CreateSession(ctx)
	}

	outcome := ctrl.SendTurn(ctx, req.SessionId, req.Text)
	return dto.SendTurnResponse{
		Outcome: outcome.String(),
		State:   mapper.SnapshotToResponse(ctrl.Snapshot()),
	}
}

func (s *conversationService) AddAttachment(ctx context.Context, ownerId uuid.UUID, url string) (*dto.AttachmentDTO, error) {
	file, err := s.controllerFor(ctx, ownerId).AddAttachment(url)
	if err != nil {
		return nil, err
	}
	return &dto.AttachmentDTO{
		Id:        file.Id,
		Name:      file.Name,
		URL:       file.URL,
		Processed: file.Processed,
	}, nil
}

func (s *conversationService) RemoveAttachment(ctx context.Context, ownerId uuid.UUID, id string) bool {
	return s.controllerFor(ctx, ownerId).RemoveAttachment(id)
}
