package authsession

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-chatbot-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

const topicSessionChanges = "auth.session_changes"

type ChangeEvent string

const (
	SignedIn       ChangeEvent = "SIGNED_IN"
	TokenRefreshed ChangeEvent = "TOKEN_REFRESHED"
	SignedOut      ChangeEvent = "SIGNED_OUT"
)

// Change is delivered to every OnSessionChange callback.
type Change struct {
	Event  ChangeEvent `json:"event"`
	UserId uuid.UUID   `json:"user_id"`
	Email  string      `json:"email,omitempty"`
}

// Notifier fans auth changes out over an in-process watermill bus.
type Notifier struct {
	pubSub *gochannel.GoChannel
	logger logger.ILogger
}

func NewNotifier(pubSub *gochannel.GoChannel, log logger.ILogger) *Notifier {
	return &Notifier{pubSub: pubSub, logger: log}
}

// NewInMemoryPubSub blocks Publish until subscribers ack, so a SIGNED_OUT can
// never overtake the SIGNED_IN before it.
func NewInMemoryPubSub() *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            64,
			BlockPublishUntilSubscriberAck: true,
		},
		watermill.NewStdLogger(false, false),
	)
}

func (n *Notifier) Publish(change Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal session change: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := n.pubSub.Publish(topicSessionChanges, msg); err != nil {
		return fmt.Errorf("publish session change: %w", err)
	}
	return nil
}

// OnSessionChange calls fn for every change until ctx is cancelled. Changes
// published before the subscription are not replayed.
func (n *Notifier) OnSessionChange(ctx context.Context, fn func(Change)) error {
	messages, err := n.pubSub.Subscribe(ctx, topicSessionChanges)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			var change Change
			if err := json.Unmarshal(msg.Payload, &change); err != nil {
				n.logger.Error("AUTH", "Dropping malformed session change", map[string]interface{}{
					"error": err.Error(),
				})
				msg.Ack()
				continue
			}
			fn(change)
			msg.Ack()
		}
	}()
	return nil
}
