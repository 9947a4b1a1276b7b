package event

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is a fact published after a state change commits.
type Event struct {
	ID            string    `json:"id"`
	Type          Type      `json:"type"`
	EntityKind    string    `json:"entity_kind"`
	EntityID      int64     `json:"entity_id"`
	Code          string    `json:"code,omitempty"`
	Payload       Payload   `json:"payload"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id"`
}

type correlationKey struct{}

// WithCorrelationID returns a context carrying the pipeline correlation id
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationKey{}, correlationID)
}

// CorrelationIDFrom returns the correlation id stored in ctx, if any
func CorrelationIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey{}).(string); ok {
		return id
	}
	return ""
}

// NewEvent stamps a new event. Events raised inside one pipeline run share
// the correlation id found in ctx; outside a run each event gets its own.
func NewEvent(ctx context.Context, eventType Type, entityKind string, entityID int64, code string, payload Payload) *Event {
	correlationID := CorrelationIDFrom(ctx)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	if payload == nil {
		payload = Payload{}
	}

	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		EntityKind:    entityKind,
		EntityID:      entityID,
		Code:          code,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: correlationID,
	}
}

// Subject names the entity the event is about, e.g. INVOICE/INV000003.
// Events without a business code fall back to the numeric id.
func (e *Event) Subject() string {
	if e.Code != "" {
		return e.EntityKind + "/" + e.Code
	}
	return fmt.Sprintf("%s/%d", e.EntityKind, e.EntityID)
}

// With returns a copy of the event with key set in its payload. The
// receiver is left untouched.
func (e *Event) With(key string, value interface{}) *Event {
	copied := *e
	copied.Payload = e.Payload.clone(1)
	copied.Payload[key] = value
	return &copied
}

// Payload holds event attributes. Values survive a JSON round trip, so
// readers accept the decoded forms too (numbers as float64, amounts as
// strings).
type Payload map[string]interface{}

func (p Payload) clone(extra int) Payload {
	out := make(Payload, len(p)+extra)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// String returns the string at key, "" when missing or of another type
func (p Payload) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Int returns the integer at key, 0 when missing
func (p Payload) Int(key string) int64 {
	switch v := p[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// Bool returns the bool at key
func (p Payload) Bool(key string) bool {
	b, _ := p[key].(bool)
	return b
}

// Decimal parses the amount at key. Amounts are published as strings.
func (p Payload) Decimal(key string) (decimal.Decimal, error) {
	switch v := p[key].(type) {
	case string:
		return decimal.NewFromString(v)
	case decimal.Decimal:
		return v, nil
	case nil:
		return decimal.Zero, fmt.Errorf("payload has no %q", key)
	default:
		return decimal.Zero, fmt.Errorf("payload %q is %T, not an amount", key, v)
	}
}
