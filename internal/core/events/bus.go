package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/markdave123-py/pdfchat/internal/pkg/logger"
)

// Topic carries every session lifecycle event.
const Topic = "pdfchat.session.lifecycle"

const (
	SessionCreated    = "SESSION_CREATED"
	SessionExpired    = "SESSION_EXPIRED"
	SessionDeleted    = "SESSION_DELETED"
	DocumentLoaded    = "DOCUMENT_LOADED"
	DocumentRemoved   = "DOCUMENT_REMOVED"
	ExchangeCompleted = "EXCHANGE_COMPLETED"
	HistoryCleared    = "HISTORY_CLEARED"
)

// Event is the payload published on Topic.
type Event struct {
	Type       string                 `json:"type"`
	SessionID  string                 `json:"session_id"`
	Data       map[string]interface{} `json:"data,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Publisher abstracts lifecycle event publishing. Publishing is best effort:
// a failed publish never fails the operation that produced the event.
type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// Bus is an in-process event bus backed by a watermill go-channel pub/sub.
type Bus struct {
	pubSub *gochannel.GoChannel
	logger logger.ILogger
}

func NewBus(log logger.ILogger) *Bus {
	return &Bus{
		pubSub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			watermill.NopLogger{},
		),
		logger: log,
	}
}

func (b *Bus) Publish(ctx context.Context, evt Event) {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now()
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		b.logger.Error("EVENTS", "Failed to encode event", map[string]interface{}{"type": evt.Type, "error": err})
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if err := b.pubSub.Publish(Topic, msg); err != nil {
		b.logger.Error("EVENTS", "Failed to publish event", map[string]interface{}{"type": evt.Type, "error": err})
	}
}

// Subscribe returns decoded events until ctx is cancelled or the bus closes.
func (b *Bus) Subscribe(ctx context.Context) (<-chan Event, error) {
	messages, err := b.pubSub.Subscribe(ctx, Topic)
	if err != nil {
		return nil, err
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
		for msg := range messages {
			var evt Event
			if err := json.Unmarshal(msg.Payload, &evt); err != nil {
				b.logger.Warn("EVENTS", "Dropping undecodable event", map[string]interface{}{"message_id": msg.UUID})
				msg.Ack()
				continue
			}
			msg.Ack()
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (b *Bus) Close() error {
	return b.pubSub.Close()
}
