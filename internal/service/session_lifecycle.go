package service

import (
	"context"

	"ai-chatbot-be/internal/pkg/authsession"
	"ai-chatbot-be/internal/pkg/logger"
	"ai-chatbot-be/internal/repository/memory"
)

// SessionLifecycle keeps the controller registry in step with auth changes.
type SessionLifecycle struct {
	registry *memory.ControllerRegistry
	profiles IProfileService
	logger   logger.ILogger
}

func NewSessionLifecycle(registry *memory.ControllerRegistry, profiles IProfileService, log logger.ILogger) *SessionLifecycle {
	return &SessionLifecycle{
		registry: registry,
		profiles: profiles,
		logger:   log,
	}
}

// Start subscribes to notifier until ctx is cancelled.
func (l *SessionLifecycle) Start(ctx context.Context, notifier *authsession.Notifier) error {
	return notifier.OnSessionChange(ctx, func(change authsession.Change) {
		l.Handle(ctx, change)
	})
}

// Handle reinitializes on sign-in and refresh without cancelling an in-flight
// send, and drops the owner's controller on sign-out.
func (l *SessionLifecycle) Handle(ctx context.Context, change authsession.Change) {
	switch change.Event {
	case authsession.SignedIn, authsession.TokenRefreshed:
		ctrl, _ := l.registry.GetOrCreate(change.UserId)
		ctrl.Initialize(ctx)
		if l.profiles != nil {
			if err := l.profiles.Reload(ctx, change.UserId); err != nil {
				l.logger.Warn("SESSION", "Profile reload failed", map[string]interface{}{
					"owner_id": change.UserId.String(),
					"error":    err.Error(),
				})
			}
		}
	case authsession.SignedOut:
		l.registry.Remove(change.UserId)
	default:
		l.logger.Debug("SESSION", "Ignoring session change", map[string]interface{}{
			"event": string(change.Event),
		})
	}
}
