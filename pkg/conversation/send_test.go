package conversation

import (
	"context"
	"testing"
	"time"

	"ai-chatbot-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendTurnFirstTurnSynthesizesTitleOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.ctrl.CreateSession(ctx)
	id := *h.ctrl.Snapshot().ActiveSessionId

	outcome := h.ctrl.SendTurn(ctx, uuid.Nil, "hello")
	require.Equal(t, SendCompleted, outcome)
	assert.Equal(t, 1, h.completion.countCalls(TitleInstruction))
	assert.Equal(t, "Greeting Chat", h.store.storedTitle(id))
	assert.Equal(t, "Greeting Chat", h.ctrl.Snapshot().Sessions[0].Title)

	for _, text := range []string{"second", "third"} {
		require.Equal(t, SendCompleted, h.ctrl.SendTurn(ctx, id, text))
	}
	assert.Equal(t, 1, h.completion.countCalls(TitleInstruction))
	assert.Equal(t, 3, h.completion.countCalls(AssistantInstruction))
	assert.Len(t, h.ctrl.Snapshot().Turns, 6)
}

func TestSendTurnUsesConfiguredBudgets(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.ctrl.CreateSession(ctx)
	h.ctrl.SendTurn(ctx, uuid.Nil, "hello")

	h.completion.mu.Lock()
	defer h.completion.mu.Unlock()
	require.Len(t, h.completion.calls, 2)

	title := h.completion.calls[0]
	assert.Equal(t, TitleInstruction, title.instruction)
	assert.Equal(t, "hello", title.text)
	assert.Equal(t, 20, title.maxTokens)

	reply := h.completion.calls[1]
	assert.Equal(t, AssistantInstruction, reply.instruction)
	assert.InDelta(t, 0.7, reply.temperature, 1e-9)
	assert.Equal(t, 500, reply.maxTokens)
}

func TestSendTurnWithPriorTurnSkipsTitle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.store.seedSession(h.owner, "Existing", base)
	h.store.seedTurn(h.owner, id, entity.ChatMessageRoleUser, "earlier", base)
	h.ctrl.Initialize(ctx)
	require.Len(t, h.ctrl.Snapshot().Turns, 1)

	outcome := h.ctrl.SendTurn(ctx, uuid.Nil, "hello")
	require.Equal(t, SendCompleted, outcome)

	snap := h.ctrl.Snapshot()
	require.Len(t, snap.Turns, 3)
	assert.Equal(t, entity.ChatMessageRoleUser, snap.Turns[1].Role)
	assert.Equal(t, "hello", snap.Turns[1].Content)
	assert.Equal(t, entity.ChatMessageRoleAssistant, snap.Turns[2].Role)
	assert.Equal(t, "hi there", snap.Turns[2].Content)
	assert.True(t, snap.Turns[1].Local)
	assert.True(t, snap.Turns[2].Local)
	assert.Zero(t, h.completion.countCalls(TitleInstruction))
	assert.Equal(t, "Existing", h.store.storedTitle(id))
	assert.False(t, snap.Pending)
}

func TestSendTurnDropped(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(h *harness)
		sessionId func(h *harness) uuid.UUID
		text      string
	}{
		{
			name:      "whitespace only",
			setup:     func(h *harness) { h.ctrl.CreateSession(context.Background()) },
			sessionId: func(h *harness) uuid.UUID { return uuid.Nil },
			text:      "  \n\t ",
		},
		{
			name:      "no active session",
			setup:     func(h *harness) {},
			sessionId: func(h *harness) uuid.UUID { return uuid.Nil },
			text:      "hello",
		},
		{
			name: "session is not the active one",
			setup: func(h *harness) {
				h.ctrl.CreateSession(context.Background())
			},
			sessionId: func(h *harness) uuid.UUID { return uuid.New() },
			text:      "hello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.setup(h)
			before := h.ctrl.Snapshot()

			outcome := h.ctrl.SendTurn(context.Background(), tt.sessionId(h), tt.text)

			assert.Equal(t, SendDropped, outcome)
			assert.Zero(t, h.completion.totalCalls())
			assert.Equal(t, before, h.ctrl.Snapshot())
			if before.ActiveSessionId != nil {
				assert.Empty(t, h.store.storedTurns(*before.ActiveSessionId))
			}
		})
	}
}

func TestOverlappingSendsOnlyOneCompletes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.store.seedSession(h.owner, "Busy", base)
	h.store.seedTurn(h.owner, id, entity.ChatMessageRoleUser, "earlier", base)
	h.ctrl.Initialize(ctx)

	release := make(chan struct{})
	h.completion.block = release

	done := make(chan SendOutcome, 1)
	go func() {
		done <- h.ctrl.SendTurn(ctx, uuid.Nil, "first")
	}()

	require.Eventually(t, func() bool {
		return h.ctrl.Snapshot().Pending
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, SendDropped, h.ctrl.SendTurn(ctx, uuid.Nil, "second"))

	close(release)
	select {
	case outcome := <-done:
		assert.Equal(t, SendCompleted, outcome)
	case <-time.After(time.Second):
		t.Fatal("first send never finished")
	}

	stored := h.store.storedTurns(id)
	require.Len(t, stored, 3)
	for _, turn := range stored {
		assert.NotEqual(t, "second", turn.Content)
	}
	assert.False(t, h.ctrl.Snapshot().Pending)
}

func TestSendTurnCompletionError(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.store.seedSession(h.owner, "Existing", base)
	h.store.seedTurn(h.owner, id, entity.ChatMessageRoleUser, "earlier", base)
	h.ctrl.Initialize(ctx)
	h.completion.replyErr = errGateway

	outcome := h.ctrl.SendTurn(ctx, uuid.Nil, "hello")
	assert.Equal(t, SendPartial, outcome)

	stored := h.store.storedTurns(id)
	require.Len(t, stored, 2)
	assert.Equal(t, "hello", stored[1].Content)
	assert.Equal(t, entity.ChatMessageRoleUser, stored[1].Role)

	snap := h.ctrl.Snapshot()
	require.Len(t, snap.Turns, 2)
	assert.Equal(t, "hello", snap.Turns[1].Content)
	assert.False(t, snap.Pending)
	assert.Empty(t, snap.Notice)
}

func TestSendTurnUserPersistFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.ctrl.CreateSession(ctx)
	h.store.insertTurnErr[entity.ChatMessageRoleUser] = errGateway

	outcome := h.ctrl.SendTurn(ctx, uuid.Nil, "hello")

	assert.Equal(t, SendFailed, outcome)
	assert.Zero(t, h.completion.totalCalls())
	snap := h.ctrl.Snapshot()
	assert.Empty(t, snap.Turns)
	assert.False(t, snap.Pending)
	assert.Equal(t, entity.DefaultChatTitle, snap.Sessions[0].Title)
}

func TestSendTurnAssistantPersistFailureRaisesNotice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.ctrl.CreateSession(ctx)
	id := *h.ctrl.Snapshot().ActiveSessionId
	h.store.insertTurnErr[entity.ChatMessageRoleAssistant] = errGateway

	outcome := h.ctrl.SendTurn(ctx, uuid.Nil, "hello")

	assert.Equal(t, SendPartial, outcome)
	snap := h.ctrl.Snapshot()
	require.Len(t, snap.Turns, 1)
	assert.Equal(t, entity.ChatMessageRoleUser, snap.Turns[0].Role)
	assert.Equal(t, NoticeAssistantNotSaved, snap.Notice)
	assert.Len(t, h.store.storedTurns(id), 1)

	// the next send starts clean
	delete(h.store.insertTurnErr, entity.ChatMessageRoleAssistant)
	require.Equal(t, SendCompleted, h.ctrl.SendTurn(ctx, uuid.Nil, "again"))
	assert.Empty(t, h.ctrl.Snapshot().Notice)
}

func TestSendTurnTitleFailureKeepsPlaceholder(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		titleErr error
	}{
		{name: "completion error", titleErr: errGateway},
		{name: "blank title", title: ` "" `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			h.completion.title = tt.title
			h.completion.titleErr = tt.titleErr
			h.ctrl.CreateSession(ctx)
			id := *h.ctrl.Snapshot().ActiveSessionId

			outcome := h.ctrl.SendTurn(ctx, uuid.Nil, "hello")

			assert.Equal(t, SendCompleted, outcome)
			assert.Equal(t, entity.DefaultChatTitle, h.store.storedTitle(id))
			assert.Len(t, h.ctrl.Snapshot().Turns, 2)
		})
	}
}

func TestSendTurnComposesAttachments(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.ctrl.CreateSession(ctx)
	id := *h.ctrl.Snapshot().ActiveSessionId
	_, err := h.ctrl.AddAttachment("https://docs.google.com/document/d/report-42/edit")
	require.NoError(t, err)

	require.Equal(t, SendCompleted, h.ctrl.SendTurn(ctx, uuid.Nil, "summarize it"))

	h.completion.mu.Lock()
	var prompt string
	for _, c := range h.completion.calls {
		if c.instruction == AssistantInstruction {
			prompt = c.text
		}
	}
	h.completion.mu.Unlock()
	assert.Contains(t, prompt, "Document 1 (https://docs.google.com/document/d/report-42/edit)")
	assert.Contains(t, prompt, "summarize it")

	stored := h.store.storedTurns(id)
	require.Len(t, stored, 2)
	assert.Equal(t, "summarize it", stored[0].Content)
	assert.Equal(t, 1, stored[1].Metadata["attachments"])

	snap := h.ctrl.Snapshot()
	assert.Equal(t, "summarize it", snap.Turns[0].Content)
	assert.Empty(t, snap.Attachments)
}

func TestSendTurnKeepsAttachmentsWhenCompletionFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.ctrl.CreateSession(ctx)
	_, err := h.ctrl.AddAttachment("https://drive.google.com/file/d/keep-me/view")
	require.NoError(t, err)
	h.completion.replyErr = errGateway

	assert.Equal(t, SendPartial, h.ctrl.SendTurn(ctx, uuid.Nil, "hello"))
	assert.Len(t, h.ctrl.Snapshot().Attachments, 1)
}

func TestSendTurnAfterSwitchingSessions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.store.seedSession(h.owner, "A", base.Add(time.Minute))
	b := h.store.seedSession(h.owner, "B", base)
	h.store.seedTurn(h.owner, a, entity.ChatMessageRoleUser, "earlier", base)
	h.ctrl.Initialize(ctx)
	require.Equal(t, a, *h.ctrl.Snapshot().ActiveSessionId)

	release := make(chan struct{})
	h.completion.block = release

	done := make(chan SendOutcome, 1)
	go func() {
		done <- h.ctrl.SendTurn(ctx, a, "for a")
	}()
	require.Eventually(t, func() bool {
		return len(h.store.storedTurns(a)) == 2
	}, time.Second, 5*time.Millisecond)

	h.ctrl.SelectSession(ctx, b)
	close(release)
	require.Equal(t, SendCompleted, <-done)

	assert.Len(t, h.store.storedTurns(a), 3)
	assert.Empty(t, h.store.storedTurns(b))
	assert.Empty(t, h.ctrl.Snapshot().Turns)

	h.ctrl.SelectSession(ctx, a)
	turns := h.ctrl.Snapshot().Turns
	require.Len(t, turns, 3)
	assert.Equal(t, "hi there", turns[2].Content)
	assert.False(t, turns[2].Local)
}

func TestSendOutcomeString(t *testing.T) {
	assert.Equal(t, "dropped", SendDropped.String())
	assert.Equal(t, "failed", SendFailed.String())
	assert.Equal(t, "partial", SendPartial.String())
	assert.Equal(t, "completed", SendCompleted.String())
	assert.Equal(t, "unknown", SendOutcome(42).String())
}

func TestSendTurnDuringReloadKeepsExistingTitle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.store.seedSession(h.owner, "My renamed chat", base)
	h.store.seedTurn(h.owner, id, entity.ChatMessageRoleUser, "earlier", base)
	h.store.seedTurn(h.owner, id, entity.ChatMessageRoleAssistant, "reply", base.Add(time.Second))
	h.ctrl.Initialize(ctx)

	held, release := h.store.holdNextListTurns()
	selected := make(chan struct{})
	go func() {
		h.ctrl.SelectSession(ctx, id)
		close(selected)
	}()
	<-held

	outcome := h.ctrl.SendTurn(ctx, uuid.Nil, "follow up")
	release()
	<-selected

	assert.Equal(t, SendCompleted, outcome)
	assert.Equal(t, 0, h.completion.countCalls(TitleInstruction))
	assert.Equal(t, "My renamed chat", h.store.storedTitle(id))
	assert.Len(t, h.store.storedTurns(id), 4)
}

func TestSendTurnAfterFailedReload(t *testing.T) {
	tests := []struct {
		name       string
		seedTurns  bool
		checkErr   error
		wantTitles int
		wantTitle  string
	}{
		{name: "session with history keeps its title", seedTurns: true, wantTitles: 0, wantTitle: "Existing"},
		{name: "empty session still gets a title", wantTitles: 1, wantTitle: "Greeting Chat"},
		{name: "unknown history skips the title", checkErr: errGateway, wantTitles: 0, wantTitle: "Existing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			id := h.store.seedSession(h.owner, "Existing", base)
			if tt.seedTurns {
				h.store.seedTurn(h.owner, id, entity.ChatMessageRoleUser, "earlier", base)
			}

			h.store.setListTurnsErr(errGateway)
			h.ctrl.Initialize(ctx)
			require.Empty(t, h.ctrl.Snapshot().Turns)
			h.store.setListTurnsErr(tt.checkErr)

			require.Equal(t, SendCompleted, h.ctrl.SendTurn(ctx, uuid.Nil, "hello"))
			assert.Equal(t, tt.wantTitles, h.completion.countCalls(TitleInstruction))
			assert.Equal(t, tt.wantTitle, h.store.storedTitle(id))
		})
	}
}
