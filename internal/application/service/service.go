// Package service holds the application services that persist entity
// transitions, record approval decisions and publish domain events.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/garyjia/bizflow/internal/application/dispatcher"
	"github.com/garyjia/bizflow/internal/application/port"
	"github.com/garyjia/bizflow/internal/domain/entity"
	"github.com/garyjia/bizflow/internal/domain/event"
	"github.com/garyjia/bizflow/pkg/utils"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Deps are the collaborators shared by every workflow service
type Deps struct {
	TxManager port.TransactionManager
	Sequence  port.SequenceGenerator
	Events    dispatcher.Publisher
	Logger    Logger
	Now       func() time.Time
	Validate  *validator.Validate
}

type base struct {
	tx       port.TransactionManager
	sequence port.SequenceGenerator
	events   dispatcher.Publisher
	logger   Logger
	now      func() time.Time
	validate *validator.Validate
}

func newBase(deps Deps) base {
	b := base{
		tx:       deps.TxManager,
		sequence: deps.Sequence,
		events:   deps.Events,
		logger:   deps.Logger,
		now:      deps.Now,
		validate: deps.Validate,
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.validate == nil {
		b.validate = utils.NewValidator()
	}
	if b.logger == nil {
		b.logger = nopLogger{}
	}
	return b
}

// check validates an input struct and maps failures to ErrValidation
func (b *base) check(input interface{}) error {
	if err := b.validate.Struct(input); err != nil {
		return fmt.Errorf("%w: %s", entity.ErrValidation, utils.ValidationMessage(err))
	}
	return nil
}

// nextCode draws the next serial for kind and formats its business code
func (b *base) nextCode(ctx context.Context, kind entity.Kind) (string, error) {
	serial, err := b.sequence.Next(ctx, kind)
	if err != nil {
		return "", fmt.Errorf("failed to allocate %s code: %w", kind, err)
	}
	return entity.BusinessCode(kind, serial), nil
}

// publish hands events to the publisher once the transaction committed
func (b *base) publish(ctx context.Context, events ...*event.Event) {
	if b.events == nil {
		return
	}
	for _, evt := range events {
		b.events.Publish(context.WithoutCancel(ctx), evt)
	}
}

func createdEvent(ctx context.Context, kind entity.Kind, id int64, code, status string) *event.Event {
	return event.NewEvent(ctx, event.TypeEntityCreated, string(kind), id, code, event.Payload{
		"status": status,
	})
}

func statusEvent(ctx context.Context, kind entity.Kind, id int64, code, from, to string) *event.Event {
	return event.NewEvent(ctx, event.TypeStatusChanged, string(kind), id, code, event.Payload{
		"from": from,
		"to":   to,
	})
}

// transition loads an entity, applies a lifecycle mutation and saves it in
// one transaction, then publishes a status change event
func transition[T any](
	ctx context.Context,
	b *base,
	kind entity.Kind,
	id int64,
	load func(ctx context.Context, id int64) (T, error),
	save func(ctx context.Context, v T) error,
	describe func(v T) (code, status string),
	apply func(ctx context.Context, v T) error,
) (T, error) {
	var (
		result T
		from   string
	)

	err := b.tx.WithTransaction(ctx, func(ctx context.Context) error {
		v, err := load(ctx, id)
		if err != nil {
			return err
		}
		_, from = describe(v)

		if err := apply(ctx, v); err != nil {
			return err
		}
		if err := save(ctx, v); err != nil {
			return fmt.Errorf("failed to save %s %d: %w", kind, id, err)
		}
		result = v
		return nil
	})
	if err != nil {
		b.logger.Error("Transition failed", "kind", kind, "id", id, "error", err)
		var zero T
		return zero, err
	}

	code, to := describe(result)
	if from != to {
		b.logger.Info("Status changed", "kind", kind, "id", id, "code", code, "from", from, "to", to)
		b.publish(ctx, statusEvent(ctx, kind, id, code, from, to))
	}
	return result, nil
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{}) {}
func (nopLogger) Error(string, ...interface{}) {}
