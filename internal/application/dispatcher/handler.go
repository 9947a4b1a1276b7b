package dispatcher

import (
	"context"

	"github.com/garyjia/bizflow/internal/domain/event"
)

// Handler processes one domain event
type Handler func(ctx context.Context, evt *event.Event) error

// Subscription describes a registered handler. An empty Types list means
// the handler receives every event type.
type Subscription struct {
	Name  string
	Types []event.Type
}

type subscriber struct {
	name    string
	types   map[event.Type]struct{}
	handler Handler
}

func (s *subscriber) accepts(t event.Type) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

func (s *subscriber) describe() Subscription {
	sub := Subscription{Name: s.name}
	// keep the declaration order of event.AllTypes for stable output
	for _, t := range event.AllTypes() {
		if _, ok := s.types[t]; ok {
			sub.Types = append(sub.Types, t)
		}
	}
	return sub
}
