package service

import (
	"context"
	"sort"
	"sync"
	"testing"

	"ai-chatbot-be/internal/dto"
	"ai-chatbot-be/internal/entity"
	"ai-chatbot-be/internal/pkg/authsession"
	"ai-chatbot-be/internal/pkg/logger"
	"ai-chatbot-be/internal/repository/memory"
	"ai-chatbot-be/pkg/conversation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chatStore is a minimal in-memory conversation.PersistenceGateway.
type chatStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*entity.ChatSession
	turns    map[uuid.UUID][]*entity.ChatMessage
	lists    int
}

func newChatStore() *chatStore {
	return &chatStore{
		sessions: make(map[uuid.UUID]*entity.ChatSession),
		turns:    make(map[uuid.UUID][]*entity.ChatMessage),
	}
}

func (s *chatStore) ListSessions(ctx context.Context, ownerId uuid.UUID) ([]*entity.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	out := make([]*entity.ChatSession, 0)
	for _, sess := range s.sessions {
		if sess.UserId == ownerId {
			cp := *sess
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *chatStore) ListTurns(ctx context.Context, ownerId uuid.UUID, sessionId uuid.UUID) ([]*entity.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.ChatMessage, 0, len(s.turns[sessionId]))
	for _, t := range s.turns[sessionId] {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (s *chatStore) InsertSession(ctx context.Context, session *entity.ChatSession) (*entity.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *session
	s.sessions[session.Id] = &cp
	out := cp
	return &out, nil
}

func (s *chatStore) UpdateSessionTitle(ctx context.Context, ownerId uuid.UUID, sessionId uuid.UUID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionId]; ok {
		sess.Title = title
	}
	return nil
}

func (s *chatStore) DeleteSession(ctx context.Context, ownerId uuid.UUID, sessionId uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionId)
	delete(s.turns, sessionId)
	return nil
}

func (s *chatStore) InsertTurn(ctx context.Context, turn *entity.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *turn
	s.turns[turn.ChatSessionId] = append(s.turns[turn.ChatSessionId], &cp)
	return nil
}

func (s *chatStore) listCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists
}

type echoCompletion struct{}

func (echoCompletion) Complete(ctx context.Context, systemInstruction string, userText string, temperature float64, maxTokens int) (string, error) {
	if systemInstruction == conversation.TitleInstruction {
		return "Echo Title", nil
	}
	return "echo: " + userText, nil
}

func newTestRegistry(store *chatStore) *memory.ControllerRegistry {
	return memory.NewControllerRegistry(func(ownerId uuid.UUID) *conversation.Controller {
		return conversation.NewController(ownerId, store, echoCompletion{})
	})
}

func TestConversationServiceSendCreatesSessionWhenNoneExists(t *testing.T) {
	store := newChatStore()
	svc := NewConversationService(newTestRegistry(store))
	owner := uuid.New()
	ctx := context.Background()

	res := svc.SendTurn(ctx, owner, &dto.SendTurnRequest{Text: "hello"})

	assert.Equal(t, conversation.SendCompleted.String(), res.Outcome)
	require.Len(t, res.State.Sessions, 1)
	assert.Equal(t, "Echo Title", res.State.Sessions[0].Title)
	require.Len(t, res.State.Turns, 2)
	assert.Equal(t, "echo: hello", res.State.Turns[1].Content)
	assert.False(t, res.State.Pending)
}

func TestConversationServiceBlankSendDoesNotCreateSession(t *testing.T) {
	store := newChatStore()
	svc := NewConversationService(newTestRegistry(store))

	res := svc.SendTurn(context.Background(), uuid.New(), &dto.SendTurnRequest{Text: "   "})

	assert.Equal(t, conversation.SendDropped.String(), res.Outcome)
	assert.Empty(t, res.State.Sessions)
}

func TestConversationServiceSessionOperations(t *testing.T) {
	store := newChatStore()
	svc := NewConversationService(newTestRegistry(store))
	owner := uuid.New()
	ctx := context.Background()

	state := svc.CreateSession(ctx, owner)
	require.NotNil(t, state.ActiveSessionId)
	id := *state.ActiveSessionId

	state = svc.RenameSession(ctx, owner, id, "Trip planning")
	assert.Equal(t, "Trip planning", state.Sessions[0].Title)
	assert.Len(t, svc.SearchSessions(ctx, owner, "trip"), 1)
	assert.Empty(t, svc.SearchSessions(ctx, owner, "rust"))

	file, err := svc.AddAttachment(ctx, owner, "https://docs.google.com/document/d/abc123/edit")
	require.NoError(t, err)
	assert.Equal(t, "abc123", file.Id)
	assert.Len(t, svc.State(ctx, owner).Attachments, 1)
	assert.True(t, svc.RemoveAttachment(ctx, owner, "abc123"))

	state = svc.DeleteSession(ctx, owner, id)
	require.Len(t, state.Sessions, 1)
	assert.NotEqual(t, id, *state.ActiveSessionId)
}

func TestConversationServiceInitializesOnFirstUse(t *testing.T) {
	store := newChatStore()
	owner := uuid.New()
	_, _ = store.InsertSession(context.Background(), &entity.ChatSession{Id: uuid.New(), UserId: owner, Title: "Existing"})
	svc := NewConversationService(newTestRegistry(store))

	state := svc.State(context.Background(), owner)
	require.Len(t, state.Sessions, 1)
	assert.Equal(t, "Existing", state.Sessions[0].Title)

	svc.State(context.Background(), owner)
	assert.Equal(t, 1, store.listCount(), "an existing controller is not reinitialized")
}

func TestSessionLifecycle(t *testing.T) {
	store := newChatStore()
	registry := newTestRegistry(store)
	profiles := newFakeProfileStore()
	lifecycle := NewSessionLifecycle(registry, NewProfileService(profiles, memory.NewProfileCache(), logger.NewNop()), logger.NewNop())
	owner := uuid.New()
	ctx := context.Background()

	lifecycle.Handle(ctx, authsession.Change{Event: authsession.SignedIn, UserId: owner})
	assert.Equal(t, 1, registry.Count())
	assert.Equal(t, 1, store.listCount())
	assert.Equal(t, 1, profiles.readCount())

	lifecycle.Handle(ctx, authsession.Change{Event: authsession.TokenRefreshed, UserId: owner})
	assert.Equal(t, 1, registry.Count())
	assert.Equal(t, 2, store.listCount(), "refresh reinitializes the existing controller")

	lifecycle.Handle(ctx, authsession.Change{Event: authsession.SignedOut, UserId: owner})
	_, found := registry.Get(owner)
	assert.False(t, found)
}
