package gateway

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"ai-chatbot-be/internal/entity"
	"ai-chatbot-be/internal/pkg/logger"
	"ai-chatbot-be/internal/repository/specification"
	"ai-chatbot-be/internal/repository/unitofwork"
	"ai-chatbot-be/pkg/conversation"
	"ai-chatbot-be/pkg/events"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("chat session not found")

// PersistenceGateway is the Postgres backed store behind every conversation
// controller. Avatars go to a BlobStore.
type PersistenceGateway struct {
	uowFactory unitofwork.RepositoryFactory
	blobs      BlobStore
	publisher  events.Publisher
	logger     logger.ILogger
}

var _ conversation.PersistenceGateway = &PersistenceGateway{}

// NewPersistenceGateway accepts a nil publisher when no event bus is configured.
func NewPersistenceGateway(uowFactory unitofwork.RepositoryFactory, blobs BlobStore, publisher events.Publisher, log logger.ILogger) *PersistenceGateway {
	return &PersistenceGateway{
		uowFactory: uowFactory,
		blobs:      blobs,
		publisher:  publisher,
		logger:     log,
	}
}

func (g *PersistenceGateway) ListSessions(ctx context.Context, ownerId uuid.UUID) ([]*entity.ChatSession, error) {
	uow := g.uowFactory.NewUnitOfWork(ctx)
	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: ownerId},
		specification.NewestFirst{},
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

func (g *PersistenceGateway) ListTurns(ctx context.Context, ownerId uuid.UUID, sessionId uuid.UUID) ([]*entity.ChatMessage, error) {
	uow := g.uowFactory.NewUnitOfWork(ctx)
	turns, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.UserOwnedBy{UserID: ownerId},
		specification.Chronological{},
	)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	return turns, nil
}

func (g *PersistenceGateway) InsertSession(ctx context.Context, session *entity.ChatSession) (*entity.ChatSession, error) {
	uow := g.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatSessionRepository().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	g.publish(ctx, events.New(events.TypeChatCreated, map[string]interface{}{
		"chat_id": session.Id.String(),
		"user_id": session.UserId.String(),
		"title":   session.Title,
	}))
	return session, nil
}

func (g *PersistenceGateway) UpdateSessionTitle(ctx context.Context, ownerId uuid.UUID, sessionId uuid.UUID, title string) error {
	uow := g.uowFactory.NewUnitOfWork(ctx)
	if err := g.ensureOwned(ctx, uow, ownerId, sessionId); err != nil {
		return err
	}

	affected, err := uow.ChatSessionRepository().UpdateTitle(ctx, sessionId, title)
	if err != nil {
		return fmt.Errorf("update session title: %w", err)
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteSession removes the turns and the session in one transaction.
func (g *PersistenceGateway) DeleteSession(ctx context.Context, ownerId uuid.UUID, sessionId uuid.UUID) error {
	uow := g.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := g.ensureOwned(ctx, uow, ownerId, sessionId); err != nil {
		return err
	}
	if err := uow.ChatMessageRepository().DeleteByChatSessionId(ctx, sessionId); err != nil {
		return fmt.Errorf("delete turns: %w", err)
	}
	affected, err := uow.ChatSessionRepository().Delete(ctx, sessionId)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	g.publish(ctx, events.New(events.TypeChatDeleted, map[string]interface{}{
		"chat_id": sessionId.String(),
		"user_id": ownerId.String(),
	}))
	return nil
}

func (g *PersistenceGateway) InsertTurn(ctx context.Context, turn *entity.ChatMessage) error {
	uow := g.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatMessageRepository().Create(ctx, turn); err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

// GetProfile returns nil, nil when the owner never saved a profile.
func (g *PersistenceGateway) GetProfile(ctx context.Context, ownerId uuid.UUID) (*entity.Profile, error) {
	uow := g.uowFactory.NewUnitOfWork(ctx)
	profile, err := uow.ProfileRepository().FindById(ctx, ownerId)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

func (g *PersistenceGateway) UpsertProfile(ctx context.Context, profile *entity.Profile) error {
	uow := g.uowFactory.NewUnitOfWork(ctx)
	profile.UpdatedAt = time.Now()
	if err := uow.ProfileRepository().Upsert(ctx, profile); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// UploadAvatarBlob stores data as <owner>-<unix millis>.<ext> and returns its public URL.
func (g *PersistenceGateway) UploadAvatarBlob(ctx context.Context, ownerId uuid.UUID, filename string, data []byte) (string, error) {
	url, err := g.blobs.Put(ctx, AvatarObjectName(ownerId, filename, time.Now()), data)
	if err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}
	return url, nil
}

func AvatarObjectName(ownerId uuid.UUID, filename string, at time.Time) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		ext = "png"
	}
	return fmt.Sprintf("%s-%d.%s", ownerId.String(), at.UnixMilli(), ext)
}

func (g *PersistenceGateway) ensureOwned(ctx context.Context, uow unitofwork.UnitOfWork, ownerId, sessionId uuid.UUID) error {
	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: ownerId},
	)
	if err != nil {
		return fmt.Errorf("find session: %w", err)
	}
	if session == nil {
		return ErrSessionNotFound
	}
	return nil
}

// publish is best effort; events are auxiliary to the write that triggered them.
func (g *PersistenceGateway) publish(ctx context.Context, evt events.BaseEvent) {
	if g.publisher == nil {
		return
	}
	if err := g.publisher.Publish(ctx, evt); err != nil {
		g.logger.Warn("GATEWAY", "Failed to publish event", map[string]interface{}{
			"type":  evt.Type,
			"error": err.Error(),
		})
	}
}
