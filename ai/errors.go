package ai

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrEmptyResponse is returned when a model answers with no choices or blank text.
	ErrEmptyResponse = errors.New("empty response from model")

	// ErrDimensionMismatch is returned when an embedding has an unexpected length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
