package domain

import "errors"

var (
	// ErrValidation marks malformed input rejected before any side effect.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a lookup or update referencing a missing record.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks an update rejected because of the record's current state.
	ErrConflict = errors.New("conflict")
	// ErrConfiguration marks missing required configuration, raised before any
	// store or provider call is attempted.
	ErrConfiguration = errors.New("configuration error")
	// ErrDelivery marks an email provider failure that drives the retry branch.
	ErrDelivery = errors.New("delivery error")
)
