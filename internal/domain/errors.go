package domain

import "errors"

// Sentinel errors for the dispatch kernel. Callers classify with errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateExceeded = errors.New("rate limit exceeded")
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("conflict")
)
