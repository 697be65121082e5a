// Package apperrors defines sentinel errors shared across the engine.
// Handlers map these to HTTP statuses with errors.Is.
package apperrors

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrUnknownEventKind = errors.New("unknown event kind")
	ErrValidation       = errors.New("validation failed")
	ErrStoreUnavailable = errors.New("store unavailable")
)
