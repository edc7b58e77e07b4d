package history

import "errors"

var (
	// ErrSessionIDRequired is returned when a session id is empty.
	ErrSessionIDRequired = errors.New("session id required")

	// ErrInvalidLimit is returned for a negative history limit.
	ErrInvalidLimit = errors.New("history limit cannot be negative")

	// ErrClientRequired is returned when a Redis client is not provided.
	ErrClientRequired = errors.New("redis client required")
)
