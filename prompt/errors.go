package prompt

import "errors"

var (
	// ErrUnknownVersion is returned when a prompt version is not registered.
	ErrUnknownVersion = errors.New("unknown prompt version")

	// ErrDuplicateVersion is returned when a registry is built with a repeated version.
	ErrDuplicateVersion = errors.New("duplicate prompt version")

	// ErrInvalidTemplate is returned when a template lacks a required placeholder.
	ErrInvalidTemplate = errors.New("invalid prompt template")

	// ErrGeneratorRequired is returned when a generator is not provided.
	ErrGeneratorRequired = errors.New("generator required")

	// ErrAssemblerRequired is returned when an assembler is not provided.
	ErrAssemblerRequired = errors.New("assembler required")
)
