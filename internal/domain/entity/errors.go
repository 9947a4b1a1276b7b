package entity

import (
	"errors"

	"github.com/garyjia/bizflow/internal/domain/workflow"
)

var (
	// ErrNotFound is returned when a referenced entity id is unknown
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidTransition is returned when a lifecycle guard rejects an event.
	// It is the state machine sentinel so both packages match with errors.Is.
	ErrInvalidTransition = workflow.ErrInvalidTransition

	// ErrOverpayment is returned when a payment would exceed the invoice amount
	ErrOverpayment = errors.New("payment exceeds invoice amount")

	// ErrValidation is returned for malformed input
	ErrValidation = errors.New("validation failed")

	// ErrSequenceExhausted is returned when a business code counter overflows
	ErrSequenceExhausted = errors.New("sequence exhausted")
)
