// Package messaging republishes domain events on a watermill topic so
// other processes or subscribers can follow workflow progress.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"

	"github.com/garyjia/bizflow/internal/application/dispatcher"
	"github.com/garyjia/bizflow/internal/domain/event"
)

// Topic carries every workflow event
const Topic = "bizflow.events"

// Message metadata keys
const (
	MetadataEventType     = "event_type"
	MetadataEntityKind    = "entity_kind"
	MetadataSubject       = "subject"
	MetadataCorrelationID = "correlation_id"
)

// HandlerName is the dispatcher subscription name of the bridge
const HandlerName = "watermill-bridge"

// Bridge forwards dispatched events to a watermill publisher
type Bridge struct {
	publisher message.Publisher
	topic     string
	logger    *zap.Logger
}

// NewBridge creates a bridge publishing on Topic
func NewBridge(publisher message.Publisher, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{publisher: publisher, topic: Topic, logger: logger}
}

// Attach subscribes the bridge to every event type of d
func (b *Bridge) Attach(d dispatcher.Dispatcher) error {
	return d.Subscribe(HandlerName, b.Handle)
}

// Handle encodes evt as JSON and publishes it
func (b *Bridge) Handle(ctx context.Context, evt *event.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", evt.ID, err)
	}

	msg := message.NewMessage(evt.ID, payload)
	msg.Metadata.Set(MetadataEventType, string(evt.Type))
	msg.Metadata.Set(MetadataEntityKind, evt.EntityKind)
	msg.Metadata.Set(MetadataSubject, evt.Subject())
	msg.Metadata.Set(MetadataCorrelationID, evt.CorrelationID)
	msg.SetContext(ctx)

	if err := b.publisher.Publish(b.topic, msg); err != nil {
		b.logger.Error("Failed to publish event",
			zap.String("event_id", evt.ID),
			zap.String("event_type", string(evt.Type)),
			zap.Error(err))
		return fmt.Errorf("failed to publish event %s: %w", evt.ID, err)
	}
	return nil
}

// Decode restores the event carried by msg
func Decode(msg *message.Message) (*event.Event, error) {
	var evt event.Event
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		return nil, fmt.Errorf("failed to decode message %s: %w", msg.UUID, err)
	}
	return &evt, nil
}

// NewGoChannel creates the in-process pub/sub used when no external broker
// is configured. The same instance is publisher and subscriber.
func NewGoChannel(logger *zap.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            1000,
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		NewZapAdapter(logger),
	)
}

// ZapAdapter implements watermill.LoggerAdapter on top of zap
type ZapAdapter struct {
	logger *zap.Logger
}

var _ watermill.LoggerAdapter = (*ZapAdapter)(nil)

// NewZapAdapter wraps logger; nil discards everything
func NewZapAdapter(logger *zap.Logger) *ZapAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapAdapter{logger: logger}
}

func (a *ZapAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.logger.Error(msg, append(zapFields(fields), zap.Error(err))...)
}

func (a *ZapAdapter) Info(msg string, fields watermill.LogFields) {
	a.logger.Info(msg, zapFields(fields)...)
}

func (a *ZapAdapter) Debug(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, zapFields(fields)...)
}

// Trace is logged at debug level; zap has no lower one
func (a *ZapAdapter) Trace(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, zapFields(fields)...)
}

func (a *ZapAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &ZapAdapter{logger: a.logger.With(zapFields(fields)...)}
}

func zapFields(fields watermill.LogFields) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		result = append(result, zap.Any(k, v))
	}
	return result
}
