package conversation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"ai-chatbot-be/internal/entity"

	"github.com/google/uuid"
)

var errGateway = errors.New("gateway unavailable")

type fakePersistence struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*entity.ChatSession
	turns    map[uuid.UUID][]*entity.ChatMessage

	listSessionsErr error
	listTurnsErr    error
	insertSessErr   error
	updateTitleErr  error
	deleteErr       error
	// insertTurnErr is consulted per role so a test can fail only the assistant write.
	insertTurnErr map[string]error

	listTurnsCalls int
	titleUpdates   int

	// listTurnsGate, when set, holds the next ListTurns call until it is closed.
	// listTurnsHeld is signalled once that call is waiting.
	listTurnsGate chan struct{}
	listTurnsHeld chan struct{}
}

func newFakePersistence() *fakePersistence {
	return &fakePersistence{
		sessions:      make(map[uuid.UUID]*entity.ChatSession),
		turns:         make(map[uuid.UUID][]*entity.ChatMessage),
		insertTurnErr: make(map[string]error),
	}
}

func (f *fakePersistence) seedSession(owner uuid.UUID, title string, createdAt time.Time) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.sessions[id] = &entity.ChatSession{Id: id, UserId: owner, Title: title, CreatedAt: createdAt, UpdatedAt: createdAt}
	return id
}

func (f *fakePersistence) seedTurn(owner, sessionId uuid.UUID, role, content string, createdAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns[sessionId] = append(f.turns[sessionId], &entity.ChatMessage{
		Id: uuid.New(), ChatSessionId: sessionId, UserId: owner, Role: role, Content: content, CreatedAt: createdAt,
	})
}

func (f *fakePersistence) storedTurns(sessionId uuid.UUID) []entity.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entity.ChatMessage, 0, len(f.turns[sessionId]))
	for _, t := range f.turns[sessionId] {
		out = append(out, *t)
	}
	return out
}

func (f *fakePersistence) storedTitle(sessionId uuid.UUID) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[sessionId]; ok {
		return s.Title
	}
	return ""
}

func (f *fakePersistence) ListSessions(ctx context.Context, ownerId uuid.UUID) ([]*entity.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listSessionsErr != nil {
		return nil, f.listSessionsErr
	}
	out := make([]*entity.ChatSession, 0)
	for _, s := range f.sessions {
		if s.UserId == ownerId {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakePersistence) ListTurns(ctx context.Context, ownerId uuid.UUID, sessionId uuid.UUID) ([]*entity.ChatMessage, error) {
	f.mu.Lock()
	gate, held := f.listTurnsGate, f.listTurnsHeld
	f.listTurnsGate, f.listTurnsHeld = nil, nil
	f.mu.Unlock()
	if gate != nil {
		close(held)
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.listTurnsCalls++
	if f.listTurnsErr != nil {
		return nil, f.listTurnsErr
	}
	out := make([]*entity.ChatMessage, 0, len(f.turns[sessionId]))
	for _, t := range f.turns[sessionId] {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

// holdNextListTurns makes the next ListTurns call wait; the returned release
// lets it continue.
func (f *fakePersistence) holdNextListTurns() (held <-chan struct{}, release func()) {
	gate := make(chan struct{})
	h := make(chan struct{})
	f.mu.Lock()
	f.listTurnsGate, f.listTurnsHeld = gate, h
	f.mu.Unlock()
	return h, func() { close(gate) }
}

func (f *fakePersistence) setListTurnsErr(err error) {
	f.mu.Lock()
	f.listTurnsErr = err
	f.mu.Unlock()
}

func (f *fakePersistence) InsertSession(ctx context.Context, session *entity.ChatSession) (*entity.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertSessErr != nil {
		return nil, f.insertSessErr
	}
	cp := *session
	f.sessions[session.Id] = &cp
	out := cp
	return &out, nil
}

func (f *fakePersistence) UpdateSessionTitle(ctx context.Context, ownerId uuid.UUID, sessionId uuid.UUID, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateTitleErr != nil {
		return f.updateTitleErr
	}
	s, ok := f.sessions[sessionId]
	if !ok {
		return errors.New("session not found")
	}
	s.Title = title
	f.titleUpdates++
	return nil
}

func (f *fakePersistence) DeleteSession(ctx context.Context, ownerId uuid.UUID, sessionId uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.sessions, sessionId)
	delete(f.turns, sessionId)
	return nil
}

func (f *fakePersistence) InsertTurn(ctx context.Context, turn *entity.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.insertTurnErr[turn.Role]; err != nil {
		return err
	}
	cp := *turn
	f.turns[turn.ChatSessionId] = append(f.turns[turn.ChatSessionId], &cp)
	return nil
}

type completionCall struct {
	instruction string
	text        string
	temperature float64
	maxTokens   int
}

type fakeCompletion struct {
	mu    sync.Mutex
	calls []completionCall

	reply    string
	replyErr error
	title    string
	titleErr error

	// block, when set, holds reply completions until it is closed.
	block chan struct{}
}

func (f *fakeCompletion) Complete(ctx context.Context, systemInstruction string, userText string, temperature float64, maxTokens int) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, completionCall{systemInstruction, userText, temperature, maxTokens})
	block := f.block
	f.mu.Unlock()

	if systemInstruction == TitleInstruction {
		return f.title, f.titleErr
	}
	if block != nil {
		<-block
	}
	return f.reply, f.replyErr
}

func (f *fakeCompletion) ModelName() string {
	return "fake-model"
}

func (f *fakeCompletion) countCalls(instruction string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.instruction == instruction {
			n++
		}
	}
	return n
}

func (f *fakeCompletion) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// tickingClock advances one second per call so ordering is deterministic.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}
