package workflow

import (
	"context"
	"errors"
	"fmt"
)

// Guard decides whether a transition applies to subject
type Guard[T any] func(ctx context.Context, subject T) bool

type transition[T any] struct {
	to    State
	guard Guard[T]
}

// Builder collects the transitions of a table. Configuration mistakes are
// collected and reported by Build.
type Builder[T any] struct {
	name   string
	states map[State]struct{}
	order  []State
	rows   map[State]map[Trigger][]transition[T]
	errs   []error
}

// NewBuilder starts a table named name over the given states
func NewBuilder[T any](name string, states ...State) *Builder[T] {
	b := &Builder[T]{
		name:   name,
		states: make(map[State]struct{}, len(states)),
		rows:   make(map[State]map[Trigger][]transition[T]),
	}
	for _, s := range states {
		if _, dup := b.states[s]; dup {
			b.errs = append(b.errs, fmt.Errorf("duplicate state %s", s))
			continue
		}
		b.states[s] = struct{}{}
		b.order = append(b.order, s)
	}
	return b
}

// StateConfig adds transitions leaving one state
type StateConfig[T any] struct {
	b    *Builder[T]
	from State
}

// Configure returns the configuration of transitions leaving from
func (b *Builder[T]) Configure(from State) *StateConfig[T] {
	b.checkState(from, "source")
	return &StateConfig[T]{b: b, from: from}
}

// Permit lets trigger move the subject to the target state
func (c *StateConfig[T]) Permit(trigger Trigger, to State) *StateConfig[T] {
	return c.PermitIf(trigger, to, nil)
}

// PermitIf lets trigger move the subject to the target state when guard
// passes. Several guarded targets may share a trigger; the first passing
// guard wins.
func (c *StateConfig[T]) PermitIf(trigger Trigger, to State, guard Guard[T]) *StateConfig[T] {
	b := c.b
	if !b.checkState(to, "target") || !b.knows(c.from) {
		return c
	}
	if trigger == "" {
		b.errs = append(b.errs, fmt.Errorf("empty trigger from %s", c.from))
		return c
	}

	row := b.rows[c.from]
	if row == nil {
		row = make(map[Trigger][]transition[T])
		b.rows[c.from] = row
	}
	for _, t := range row[trigger] {
		if t.guard == nil {
			b.errs = append(b.errs, fmt.Errorf("%s on %s follows an unguarded transition", trigger, c.from))
			return c
		}
	}
	row[trigger] = append(row[trigger], transition[T]{to: to, guard: guard})
	return c
}

// Build freezes the table. Later Configure calls do not affect it.
func (b *Builder[T]) Build() (*Table[T], error) {
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("workflow %s: %w", b.name, errors.Join(b.errs...))
	}

	rows := make(map[State]map[Trigger][]transition[T], len(b.rows))
	for from, row := range b.rows {
		copied := make(map[Trigger][]transition[T], len(row))
		for trigger, ts := range row {
			copied[trigger] = append([]transition[T](nil), ts...)
		}
		rows[from] = copied
	}

	return &Table[T]{
		name:   b.name,
		states: b.states,
		order:  append([]State(nil), b.order...),
		rows:   rows,
	}, nil
}

// MustBuild is Build for package-level tables; it panics on a
// configuration error.
func (b *Builder[T]) MustBuild() *Table[T] {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}

func (b *Builder[T]) knows(s State) bool {
	_, ok := b.states[s]
	return ok
}

func (b *Builder[T]) checkState(s State, role string) bool {
	if b.knows(s) {
		return true
	}
	b.errs = append(b.errs, fmt.Errorf("%s state %q: %w", role, s, ErrUnknownState))
	return false
}
