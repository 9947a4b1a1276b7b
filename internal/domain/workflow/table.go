package workflow

import (
	"context"
	"sort"
)

// Table is an immutable transition table for subjects of type T. It is
// safe for concurrent use.
type Table[T any] struct {
	name   string
	states map[State]struct{}
	order  []State
	rows   map[State]map[Trigger][]transition[T]
}

// Name returns the table name used in errors
func (t *Table[T]) Name() string {
	return t.name
}

// States returns the states in declaration order
func (t *Table[T]) States() []State {
	return append([]State(nil), t.order...)
}

// Fire returns the state trigger leads to from the subject's current
// state. Failures are *TransitionError values.
func (t *Table[T]) Fire(ctx context.Context, subject T, from State, trigger Trigger) (State, error) {
	if _, ok := t.states[from]; !ok {
		return "", &TransitionError{Table: t.name, From: from, Trigger: trigger, Cause: ErrUnknownState}
	}

	candidates := t.rows[from][trigger]
	if len(candidates) == 0 {
		return "", &TransitionError{Table: t.name, From: from, Trigger: trigger, Allowed: t.Triggers(from)}
	}

	for _, c := range candidates {
		if c.guard == nil || c.guard(ctx, subject) {
			return c.to, nil
		}
	}
	return "", &TransitionError{Table: t.name, From: from, Trigger: trigger, Cause: ErrGuardFailed}
}

// CanFire reports whether trigger is configured for from. Guards are not
// evaluated.
func (t *Table[T]) CanFire(from State, trigger Trigger) bool {
	return len(t.rows[from][trigger]) > 0
}

// Triggers returns the triggers configured for from, sorted
func (t *Table[T]) Triggers(from State) []Trigger {
	row := t.rows[from]
	out := make([]Trigger, 0, len(row))
	for trigger := range row {
		out = append(out, trigger)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsTerminal reports whether no trigger leaves from
func (t *Table[T]) IsTerminal(from State) bool {
	return len(t.rows[from]) == 0
}
