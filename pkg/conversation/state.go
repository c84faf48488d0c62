package conversation

import (
	"ai-chatbot-be/internal/entity"
	"ai-chatbot-be/pkg/attachment"

	"github.com/google/uuid"
)

// SendOutcome tells the caller how far a SendTurn got.
type SendOutcome int

const (
	// SendDropped means a guard rejected the send before any gateway call.
	SendDropped SendOutcome = iota
	// SendFailed means the user turn could not be persisted.
	SendFailed
	// SendPartial means the user turn is recorded but there is no stored assistant turn.
	SendPartial
	SendCompleted
)

func (o SendOutcome) String() string {
	switch o {
	case SendDropped:
		return "dropped"
	case SendFailed:
		return "failed"
	case SendPartial:
		return "partial"
	case SendCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// NoticeAssistantNotSaved is raised when a reply was shown but could not be stored.
const NoticeAssistantNotSaved = "The assistant reply could not be saved and will not appear after a reload."

// Snapshot is a deep copy of the controller state.
type Snapshot struct {
	OwnerId         uuid.UUID
	Sessions        []entity.ChatSession
	ActiveSessionId *uuid.UUID
	Turns           []entity.ChatMessage
	Pending         bool
	Attachments     []attachment.File
	Notice          string
}

// ActiveSession returns the active entry of Sessions, if any.
func (s Snapshot) ActiveSession() (entity.ChatSession, bool) {
	if s.ActiveSessionId == nil {
		return entity.ChatSession{}, false
	}
	for _, sess := range s.Sessions {
		if sess.Id == *s.ActiveSessionId {
			return sess, true
		}
	}
	return entity.ChatSession{}, false
}

func copyTurn(t *entity.ChatMessage) entity.ChatMessage {
	out := *t
	if t.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(t.Metadata))
		for k, v := range t.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
