package language

import "errors"

var (
	// ErrDetectorRequired is returned when a language detector is not provided.
	ErrDetectorRequired = errors.New("language detector required")

	// ErrGeneratorRequired is returned when a generator is not provided.
	ErrGeneratorRequired = errors.New("generator required")

	// ErrInvalidConfidence is returned for a minimum confidence outside [0, 1].
	ErrInvalidConfidence = errors.New("minimum confidence must be between 0 and 1")

	// ErrEmptyTranslation is returned when the model answers a translation with blank text.
	ErrEmptyTranslation = errors.New("empty translation")
)
