package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a trigger cannot fire
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrUnknownState is returned for a state outside the table
	ErrUnknownState = errors.New("unknown state")

	// ErrGuardFailed is returned when every guard for a trigger rejects it
	ErrGuardFailed = errors.New("guard condition failed")
)

// TransitionError describes a trigger that could not fire. It matches
// ErrInvalidTransition and, when set, its Cause.
type TransitionError struct {
	Table   string
	From    State
	Trigger Trigger
	Allowed []Trigger
	Cause   error
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("%s: %s: cannot fire %s from %s", ErrInvalidTransition, e.Table, e.Trigger, e.From)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if len(e.Allowed) > 0 {
		msg += fmt.Sprintf(" (allowed: %v)", e.Allowed)
	}
	return msg
}

func (e *TransitionError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrInvalidTransition}
	}
	return []error{ErrInvalidTransition, e.Cause}
}
