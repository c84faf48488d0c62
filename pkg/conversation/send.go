package conversation

import (
	"context"
	"strings"

	"ai-chatbot-be/internal/entity"
	"ai-chatbot-be/pkg/attachment"

	"github.com/google/uuid"
)

// SendTurn records text as a user turn, asks the completion gateway for a reply
// and records that too. sessionId may be uuid.Nil to mean the active session;
// any other id must be the active one.
//
// Once the user turn is stored it stays stored, whatever fails afterwards.
func (c *Controller) SendTurn(ctx context.Context, sessionId uuid.UUID, text string) SendOutcome {
	if strings.TrimSpace(text) == "" {
		return SendDropped
	}

	c.mu.Lock()
	if c.pending || c.active == nil {
		c.mu.Unlock()
		return SendDropped
	}
	if sessionId == uuid.Nil {
		sessionId = *c.active
	} else if sessionId != *c.active {
		c.mu.Unlock()
		return SendDropped
	}
	c.pending = true
	c.notice = ""
	firstTurn := len(c.turns) == 0
	confirmed := c.loadedFor != nil && *c.loadedFor == sessionId
	files := c.attachments.List()
	c.mu.Unlock()
	c.emit()

	defer func() {
		c.mu.Lock()
		c.pending = false
		c.mu.Unlock()
		c.emit()
	}()

	if !confirmed {
		firstTurn = c.storedLogEmpty(ctx, sessionId)
	}

	userTurn := &entity.ChatMessage{
		Id:            c.newID(),
		ChatSessionId: sessionId,
		UserId:        c.ownerId,
		Role:          entity.ChatMessageRoleUser,
		Content:       text,
		CreatedAt:     c.now(),
	}
	if err := c.persistence.InsertTurn(ctx, userTurn); err != nil {
		c.logger.Error(logModule, "Failed to persist user turn", map[string]interface{}{
			"owner_id":   c.ownerId.String(),
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
		return SendFailed
	}

	if firstTurn {
		c.synthesizeTitle(ctx, sessionId, text)
	}

	c.appendLocal(sessionId, entity.ChatMessageRoleUser, text, nil)

	reply, err := c.completion.Complete(
		ctx,
		AssistantInstruction,
		attachment.ComposePrompt(files, text),
		c.settings.ReplyTemperature,
		c.settings.ReplyMaxTokens,
	)
	if err != nil {
		c.logger.Error(logModule, "Completion failed", map[string]interface{}{
			"owner_id":   c.ownerId.String(),
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
		return SendPartial
	}

	if len(files) > 0 {
		c.mu.Lock()
		for _, f := range files {
			c.attachments.Remove(f.Id)
		}
		c.mu.Unlock()
	}

	metadata := map[string]interface{}{
		"temperature": c.settings.ReplyTemperature,
		"max_tokens":  c.settings.ReplyMaxTokens,
	}
	if mn, ok := c.completion.(modelNamer); ok {
		metadata["model"] = mn.ModelName()
	}
	if len(files) > 0 {
		metadata["attachments"] = len(files)
	}

	assistantTurn := &entity.ChatMessage{
		Id:            c.newID(),
		ChatSessionId: sessionId,
		UserId:        c.ownerId,
		Role:          entity.ChatMessageRoleAssistant,
		Content:       reply,
		Metadata:      metadata,
		CreatedAt:     c.now(),
	}
	if err := c.persistence.InsertTurn(ctx, assistantTurn); err != nil {
		c.logger.Error(logModule, "Failed to persist assistant turn", map[string]interface{}{
			"owner_id":   c.ownerId.String(),
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
		c.mu.Lock()
		c.notice = NoticeAssistantNotSaved
		c.mu.Unlock()
		return SendPartial
	}

	c.appendLocal(sessionId, entity.ChatMessageRoleAssistant, reply, metadata)
	return SendCompleted
}

// storedLogEmpty asks the gateway whether sessionId has any turns yet. It is
// used while the local log is unconfirmed; an error counts as not empty so an
// existing title is never overwritten.
func (c *Controller) storedLogEmpty(ctx context.Context, sessionId uuid.UUID) bool {
	turns, err := c.persistence.ListTurns(ctx, c.ownerId, sessionId)
	if err != nil {
		c.logger.Warn(logModule, "Could not check turn log, skipping title", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
		return false
	}
	return len(turns) == 0
}

// synthesizeTitle never fails the send; on any problem the placeholder stays.
func (c *Controller) synthesizeTitle(ctx context.Context, sessionId uuid.UUID, text string) {
	raw, err := c.completion.Complete(
		ctx,
		TitleInstruction,
		text,
		c.settings.TitleTemperature,
		c.settings.TitleMaxTokens,
	)
	if err != nil {
		c.logger.Warn(logModule, "Title synthesis failed", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
		return
	}

	title := CleanTitle(raw)
	if title == "" {
		c.logger.Warn(logModule, "Title synthesis returned nothing usable", map[string]interface{}{
			"session_id": sessionId.String(),
		})
		return
	}
	c.RenameSession(ctx, sessionId, title)
}

// appendLocal adds an optimistic turn under a temporary id. Turns for a session
// that is no longer active are skipped; the next reload picks them up.
func (c *Controller) appendLocal(sessionId uuid.UUID, role, content string, metadata map[string]interface{}) {
	turn := &entity.ChatMessage{
		Id:            c.newID(),
		ChatSessionId: sessionId,
		UserId:        c.ownerId,
		Role:          role,
		Content:       content,
		Metadata:      metadata,
		CreatedAt:     c.now(),
		Local:         true,
	}

	c.mu.Lock()
	if c.active == nil || *c.active != sessionId {
		c.mu.Unlock()
		return
	}
	c.turns = append(c.turns, turn)
	c.mu.Unlock()

	c.emit()
}
