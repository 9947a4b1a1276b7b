// Package dispatcher fans workflow events out to in-process subscribers
// such as the message bus bridge.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/garyjia/bizflow/internal/domain/event"
)

// ErrClosed is returned once the dispatcher has been closed
var ErrClosed = errors.New("dispatcher is closed")

// Publisher is the producing side used by services and pipelines. Publish
// never blocks on subscribers.
type Publisher interface {
	Publish(ctx context.Context, evt *event.Event)
}

// Dispatcher owns the subscriptions and delivers events to them
type Dispatcher interface {
	Publisher

	// Subscribe registers handler under a unique name for the given event
	// types, or for every type when none are given.
	Subscribe(name string, handler Handler, types ...event.Type) error

	// Unsubscribe removes the named subscription. It reports whether one
	// existed.
	Unsubscribe(name string) bool

	// Deliver runs every matching subscriber in registration order and
	// returns their joined errors.
	Deliver(ctx context.Context, evt *event.Event) error

	// Subscriptions lists the current subscriptions in registration order
	Subscriptions() []Subscription

	// Close stops accepting events and waits for in-flight deliveries
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type bus struct {
	mu          sync.RWMutex
	subscribers []*subscriber
	logger      Logger

	// gate orders Publish's inflight.Add against Close's inflight.Wait
	gate     sync.RWMutex
	inflight sync.WaitGroup
	closed   atomic.Bool
}

// Option configures the dispatcher
type Option func(*bus)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(b *bus) {
		b.logger = logger
	}
}

// NewDispatcher creates an in-process dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	b := &bus{logger: nopLogger{}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *bus) Subscribe(name string, handler Handler, types ...event.Type) error {
	if name == "" {
		return fmt.Errorf("subscription name is required")
	}
	if handler == nil {
		return fmt.Errorf("subscription %s has no handler", name)
	}

	filter := make(map[event.Type]struct{}, len(types))
	for _, t := range types {
		if !t.IsValid() {
			return fmt.Errorf("subscription %s: unknown event type %q", name, t)
		}
		filter[t] = struct{}{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range b.subscribers {
		if s.name == name {
			return fmt.Errorf("subscription %s already exists", name)
		}
	}
	b.subscribers = append(b.subscribers, &subscriber{name: name, types: filter, handler: handler})

	b.logger.Info("Subscription registered", "name", name, "types", len(filter))
	return nil
}

func (b *bus) Unsubscribe(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subscribers {
		if s.name == name {
			b.subscribers = append(b.subscribers[:i:i], b.subscribers[i+1:]...)
			b.logger.Info("Subscription removed", "name", name)
			return true
		}
	}
	return false
}

func (b *bus) Subscriptions() []Subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Subscription, len(b.subscribers))
	for i, s := range b.subscribers {
		out[i] = s.describe()
	}
	return out
}

// matching snapshots the subscribers interested in t
func (b *bus) matching(t event.Type) []*subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []*subscriber
	for _, s := range b.subscribers {
		if s.accepts(t) {
			out = append(out, s)
		}
	}
	return out
}

func (b *bus) Deliver(ctx context.Context, evt *event.Event) error {
	if b.closed.Load() {
		return ErrClosed
	}

	var errs []error
	for _, s := range b.matching(evt.Type) {
		if err := b.run(ctx, s, evt); err != nil {
			errs = append(errs, fmt.Errorf("subscriber %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// Publish delivers evt in the background. Each subscriber gets its own
// goroutine, so a slow one does not hold back the others.
func (b *bus) Publish(ctx context.Context, evt *event.Event) {
	b.gate.RLock()
	if b.closed.Load() {
		b.gate.RUnlock()
		b.logger.Error("Event dropped after close",
			"event_type", evt.Type,
			"event_id", evt.ID,
		)
		return
	}
	subs := b.matching(evt.Type)
	b.inflight.Add(len(subs))
	b.gate.RUnlock()

	for _, s := range subs {
		go func(s *subscriber) {
			defer b.inflight.Done()
			if err := b.run(ctx, s, evt); err != nil {
				b.logger.Error("Subscriber failed",
					"subscriber", s.name,
					"event_type", evt.Type,
					"event_id", evt.ID,
					"correlation_id", evt.CorrelationID,
					"error", err,
				)
			}
		}(s)
	}
}

// Close stops accepting events and waits for deliveries already started.
// Publishing from a subscriber during Close drops the event.
func (b *bus) Close() error {
	b.gate.Lock()
	swapped := b.closed.CompareAndSwap(false, true)
	b.gate.Unlock()
	if !swapped {
		return ErrClosed
	}
	b.inflight.Wait()
	b.logger.Info("Dispatcher closed")
	return nil
}

// run invokes one subscriber and turns a panic into an error
func (b *bus) run(ctx context.Context, s *subscriber, evt *event.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			b.logger.Error("Subscriber panicked",
				"subscriber", s.name,
				"event_id", evt.ID,
				"panic", r,
			)
		}
	}()
	return s.handler(ctx, evt)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
