package conversation

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"ai-chatbot-be/internal/entity"
	"ai-chatbot-be/internal/pkg/logger"
	"ai-chatbot-be/pkg/attachment"

	"github.com/google/uuid"
)

const logModule = "CONVERSATION"

// Settings are the completion parameters used for replies and titles.
type Settings struct {
	ReplyTemperature float64
	ReplyMaxTokens   int
	TitleTemperature float64
	TitleMaxTokens   int
}

func DefaultSettings() Settings {
	return Settings{
		ReplyTemperature: 0.7,
		ReplyMaxTokens:   500,
		TitleTemperature: 0.7,
		TitleMaxTokens:   20,
	}
}

type Option func(*Controller)

func WithLogger(l logger.ILogger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

func WithSettings(s Settings) Option {
	return func(c *Controller) {
		c.settings = s
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(c *Controller) {
		c.newID = newID
	}
}

// Controller owns the conversation state of a single owner.
//
// Gateway calls are made without holding the lock, so a slow completion does
// not block session switches or renames. Only SendTurn is serialized, through
// the pending flag: a second send while one is in flight is dropped.
type Controller struct {
	ownerId     uuid.UUID
	persistence PersistenceGateway
	completion  CompletionGateway
	logger      logger.ILogger
	settings    Settings
	now         func() time.Time
	newID       func() uuid.UUID

	mu       sync.Mutex
	sessions []*entity.ChatSession
	active   *uuid.UUID
	turns    []*entity.ChatMessage
	// loadedFor names the session whose turns are known to match the gateway.
	// It is nil while a reload is in flight or after one failed.
	loadedFor   *uuid.UUID
	pending     bool
	attachments attachment.Buffer
	notice      string

	listenersMu sync.RWMutex
	listeners   []func(Snapshot)
}

func NewController(ownerId uuid.UUID, persistence PersistenceGateway, completion CompletionGateway, opts ...Option) *Controller {
	c := &Controller{
		ownerId:     ownerId,
		persistence: persistence,
		completion:  completion,
		logger:      logger.NewNop(),
		settings:    DefaultSettings(),
		now:         time.Now,
		newID:       uuid.New,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) OwnerId() uuid.UUID {
	return c.ownerId
}

// OnChange registers fn to receive a snapshot after every state change.
// Listeners run on the goroutine that made the change, outside the lock.
func (c *Controller) OnChange(fn func(Snapshot)) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Controller) emit() {
	c.listenersMu.RLock()
	listeners := make([]func(Snapshot), len(c.listeners))
	copy(listeners, c.listeners)
	c.listenersMu.RUnlock()

	if len(listeners) == 0 {
		return
	}
	snap := c.Snapshot()
	for _, fn := range listeners {
		fn(snap)
	}
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		OwnerId:     c.ownerId,
		Sessions:    make([]entity.ChatSession, len(c.sessions)),
		Turns:       make([]entity.ChatMessage, len(c.turns)),
		Pending:     c.pending,
		Attachments: c.attachments.List(),
		Notice:      c.notice,
	}
	for i, s := range c.sessions {
		snap.Sessions[i] = *s
	}
	for i, t := range c.turns {
		snap.Turns[i] = copyTurn(t)
	}
	if c.active != nil {
		id := *c.active
		snap.ActiveSessionId = &id
	}
	return snap
}

// Initialize replaces all session state with what the gateway holds. The newest
// session becomes active. On failure the state is left empty.
func (c *Controller) Initialize(ctx context.Context) {
	sessions, err := c.persistence.ListSessions(ctx, c.ownerId)
	if err != nil {
		c.logger.Error(logModule, "Failed to load sessions", map[string]interface{}{
			"owner_id": c.ownerId.String(),
			"error":    err.Error(),
		})
		c.mu.Lock()
		c.sessions = nil
		c.active = nil
		c.turns = nil
		c.loadedFor = nil
		c.mu.Unlock()
		c.emit()
		return
	}

	owned := make([]*entity.ChatSession, 0, len(sessions))
	for _, s := range sessions {
		if s == nil {
			continue
		}
		cp := *s
		owned = append(owned, &cp)
	}
	sortNewestFirst(owned)

	c.mu.Lock()
	c.sessions = owned
	c.turns = nil
	c.loadedFor = nil
	c.notice = ""
	if len(owned) == 0 {
		c.active = nil
		c.mu.Unlock()
		c.emit()
		return
	}
	firstId := owned[0].Id
	c.active = &firstId
	c.mu.Unlock()

	c.loadTurns(ctx, firstId)
}

// CreateSession stores a placeholder-titled session and makes it active.
// Nothing changes locally if the write fails.
func (c *Controller) CreateSession(ctx context.Context) {
	now := c.now()
	session := &entity.ChatSession{
		Id:        c.newID(),
		UserId:    c.ownerId,
		Title:     entity.DefaultChatTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}

	saved, err := c.persistence.InsertSession(ctx, session)
	if err != nil {
		c.logger.Error(logModule, "Failed to create session", map[string]interface{}{
			"owner_id": c.ownerId.String(),
			"error":    err.Error(),
		})
		return
	}
	if saved != nil {
		cp := *saved
		session = &cp
	}

	c.mu.Lock()
	c.sessions = append([]*entity.ChatSession{session}, c.sessions...)
	id := session.Id
	c.active = &id
	c.turns = nil
	c.loadedFor = &id
	c.mu.Unlock()

	c.emit()
}

// SelectSession activates sessionId and reloads its turns from the gateway.
// Unknown ids are ignored.
func (c *Controller) SelectSession(ctx context.Context, sessionId uuid.UUID) {
	c.mu.Lock()
	if c.indexOf(sessionId) < 0 {
		c.mu.Unlock()
		c.logger.Warn(logModule, "Select of unknown session ignored", map[string]interface{}{
			"owner_id":   c.ownerId.String(),
			"session_id": sessionId.String(),
		})
		return
	}
	id := sessionId
	c.active = &id
	c.turns = nil
	c.loadedFor = nil
	c.mu.Unlock()

	c.loadTurns(ctx, sessionId)
}

// RenameSession stores a new title. Blank titles are ignored and the local entry
// only changes after the write succeeds.
func (c *Controller) RenameSession(ctx context.Context, sessionId uuid.UUID, newTitle string) {
	title := strings.TrimSpace(newTitle)
	if title == "" {
		return
	}

	if err := c.persistence.UpdateSessionTitle(ctx, c.ownerId, sessionId, title); err != nil {
		c.logger.Error(logModule, "Failed to rename session", map[string]interface{}{
			"owner_id":   c.ownerId.String(),
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
		return
	}

	c.mu.Lock()
	if i := c.indexOf(sessionId); i >= 0 {
		c.sessions[i].Title = title
		c.sessions[i].UpdatedAt = c.now()
	}
	c.mu.Unlock()

	c.emit()
}

// DeleteSession removes a session and its turns. When the active session goes
// away the newest remaining one takes its place, or a fresh one is created.
func (c *Controller) DeleteSession(ctx context.Context, sessionId uuid.UUID) {
	if err := c.persistence.DeleteSession(ctx, c.ownerId, sessionId); err != nil {
		c.logger.Error(logModule, "Failed to delete session", map[string]interface{}{
			"owner_id":   c.ownerId.String(),
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
		return
	}

	c.mu.Lock()
	if i := c.indexOf(sessionId); i >= 0 {
		c.sessions = append(c.sessions[:i], c.sessions[i+1:]...)
	}
	wasActive := c.active != nil && *c.active == sessionId
	if !wasActive {
		c.mu.Unlock()
		c.emit()
		return
	}

	c.active = nil
	c.turns = nil
	c.loadedFor = nil
	if len(c.sessions) == 0 {
		c.mu.Unlock()
		c.CreateSession(ctx)
		return
	}

	sortNewestFirst(c.sessions)
	nextId := c.sessions[0].Id
	c.active = &nextId
	c.mu.Unlock()

	c.loadTurns(ctx, nextId)
}

// SearchSessions filters the local session list by a case-insensitive title match.
func (c *Controller) SearchSessions(term string) []entity.ChatSession {
	needle := strings.ToLower(strings.TrimSpace(term))

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]entity.ChatSession, 0, len(c.sessions))
	for _, s := range c.sessions {
		if needle == "" || strings.Contains(strings.ToLower(s.Title), needle) {
			out = append(out, *s)
		}
	}
	return out
}

// AddAttachment stages a shared document for the next turn.
func (c *Controller) AddAttachment(rawURL string) (attachment.File, error) {
	c.mu.Lock()
	file, err := c.attachments.Add(rawURL)
	c.mu.Unlock()
	if err != nil {
		return attachment.File{}, err
	}

	c.emit()
	return file, nil
}

func (c *Controller) RemoveAttachment(id string) bool {
	c.mu.Lock()
	removed := c.attachments.Remove(id)
	c.mu.Unlock()

	if removed {
		c.emit()
	}
	return removed
}

func (c *Controller) ClearNotice() {
	c.mu.Lock()
	c.notice = ""
	c.mu.Unlock()
	c.emit()
}

// loadTurns replaces the turn log with sessionId's stored turns, provided the
// session is still active once the gateway answers. A failed load leaves the
// log empty and unconfirmed.
func (c *Controller) loadTurns(ctx context.Context, sessionId uuid.UUID) {
	turns, err := c.persistence.ListTurns(ctx, c.ownerId, sessionId)
	if err != nil {
		c.logger.Error(logModule, "Failed to load turns", map[string]interface{}{
			"owner_id":   c.ownerId.String(),
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
		c.emit()
		return
	}

	loaded := make([]*entity.ChatMessage, 0, len(turns))
	for _, t := range turns {
		if t == nil {
			continue
		}
		cp := copyTurn(t)
		cp.Local = false
		loaded = append(loaded, &cp)
	}
	sort.SliceStable(loaded, func(i, j int) bool {
		return loaded[i].CreatedAt.Before(loaded[j].CreatedAt)
	})

	c.mu.Lock()
	if c.active == nil || *c.active != sessionId {
		c.mu.Unlock()
		return
	}
	c.turns = loaded
	id := sessionId
	c.loadedFor = &id
	c.mu.Unlock()

	c.emit()
}

// indexOf must be called with mu held.
func (c *Controller) indexOf(sessionId uuid.UUID) int {
	for i, s := range c.sessions {
		if s.Id == sessionId {
			return i
		}
	}
	return -1
}

func sortNewestFirst(sessions []*entity.ChatSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
}
