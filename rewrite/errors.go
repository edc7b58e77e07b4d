package rewrite

import "errors"

var (
	// ErrGeneratorRequired is returned when a generator is not provided.
	ErrGeneratorRequired = errors.New("generator required")

	// ErrInvalidCount is returned when the query count is below 1.
	ErrInvalidCount = errors.New("rewrite count must be at least 1")
)
