package gateway

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"ai-chatbot-be/internal/entity"
	"ai-chatbot-be/internal/pkg/logger"
	"ai-chatbot-be/internal/repository/unitofwork"
	"ai-chatbot-be/pkg/database"
	"ai-chatbot-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

// newTestGateway needs a Postgres with pgvector; set DB_CONNECTION_STRING to run.
func newTestGateway(t *testing.T) (*PersistenceGateway, *capturePublisher) {
	t.Helper()
	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, false)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	blobs, err := NewLocalBlobStore(t.TempDir(), "http://localhost/uploads")
	require.NoError(t, err)

	pub := &capturePublisher{}
	return NewPersistenceGateway(unitofwork.NewRepositoryFactory(db), blobs, pub, logger.NewNop()), pub
}

func TestPersistenceGatewaySessionLifecycle(t *testing.T) {
	g, pub := newTestGateway(t)
	ctx := context.Background()
	owner := uuid.New()
	now := time.Now().UTC().Truncate(time.Millisecond)

	older := &entity.ChatSession{Id: uuid.New(), UserId: owner, Title: entity.DefaultChatTitle, CreatedAt: now, UpdatedAt: now}
	newer := &entity.ChatSession{Id: uuid.New(), UserId: owner, Title: entity.DefaultChatTitle, CreatedAt: now.Add(time.Second), UpdatedAt: now}
	_, err := g.InsertSession(ctx, older)
	require.NoError(t, err)
	_, err = g.InsertSession(ctx, newer)
	require.NoError(t, err)

	sessions, err := g.ListSessions(ctx, owner)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, newer.Id, sessions[0].Id)

	for i, content := range []string{"hello", "hi there"} {
		role := entity.ChatMessageRoleUser
		if i == 1 {
			role = entity.ChatMessageRoleAssistant
		}
		require.NoError(t, g.InsertTurn(ctx, &entity.ChatMessage{
			Id: uuid.New(), ChatSessionId: newer.Id, UserId: owner, Role: role, Content: content,
			Metadata:  map[string]interface{}{"index": i},
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}))
	}

	turns, err := g.ListTurns(ctx, owner, newer.Id)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "hello", turns[0].Content)
	assert.Equal(t, "hi there", turns[1].Content)

	require.NoError(t, g.UpdateSessionTitle(ctx, owner, newer.Id, "Greeting"))
	assert.ErrorIs(t, g.UpdateSessionTitle(ctx, uuid.New(), newer.Id, "Stolen"), ErrSessionNotFound)

	require.NoError(t, g.DeleteSession(ctx, owner, newer.Id))
	assert.ErrorIs(t, g.DeleteSession(ctx, owner, newer.Id), ErrSessionNotFound)

	turns, err = g.ListTurns(ctx, owner, newer.Id)
	require.NoError(t, err)
	assert.Empty(t, turns)

	assert.Equal(t, []string{events.TypeChatCreated, events.TypeChatCreated, events.TypeChatDeleted}, pub.types())
}

func TestPersistenceGatewayProfile(t *testing.T) {
	g, _ := newTestGateway(t)
	ctx := context.Background()
	owner := uuid.New()

	profile, err := g.GetProfile(ctx, owner)
	require.NoError(t, err)
	assert.Nil(t, profile)

	first := "Ada"
	require.NoError(t, g.UpsertProfile(ctx, &entity.Profile{Id: owner, FirstName: &first}))

	url, err := g.UploadAvatarBlob(ctx, owner, "me.png", []byte("img"))
	require.NoError(t, err)
	assert.Contains(t, url, owner.String())

	profile, err = g.GetProfile(ctx, owner)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "Ada", profile.DisplayName())
}
