// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"errors"
	"fmt"
)

// Domain validation errors
var (
	// ErrInvalidFragment indicates a Fragment failed validation.
	ErrInvalidFragment = errors.New("invalid fragment")

	// ErrInvalidTurn indicates a conversation Turn failed validation.
	ErrInvalidTurn = errors.New("invalid turn")

	// ErrEmptyContent indicates a text field is empty or whitespace.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrContentTooLong indicates a question exceeds MaxQuestionLength.
	ErrContentTooLong = errors.New("content too long")

	// ErrInvalidRole indicates an unknown Role value.
	ErrInvalidRole = errors.New("invalid role")
)

// ErrorKind is the machine-readable classification of a pipeline failure.
type ErrorKind string

const (
	KindUnknown             ErrorKind = "unknown"
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	KindInvalidInput        ErrorKind = "invalid_input"
	KindPromptInjection     ErrorKind = "prompt_injection"

	// Flags rather than failures; used as outcome labels.
	KindTranslationDegraded ErrorKind = "translation_degraded"
	KindLowConfidence       ErrorKind = "low_confidence"
)

// Sentinels usable with errors.Is; they match any *Error of the same kind.
var (
	ErrUpstreamUnavailable = &Error{Kind: KindUpstreamUnavailable, Message: "The answering service is temporarily unavailable. Please try again."}
	ErrInvalidInput        = &Error{Kind: KindInvalidInput, Message: "The question is empty or invalid."}
	ErrPromptInjection     = &Error{Kind: KindPromptInjection, Message: "Request rejected: prompt-injection attempt detected."}
)

// Error is a typed pipeline error.
// Message is safe to show to end users; Err carries the internal cause.
type Error struct {
	Kind      ErrorKind
	Component string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	switch {
	case e.Component != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Component, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Component != "":
		return fmt.Sprintf("%s: %s", e.Component, e.Kind)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var te *Error
	if !errors.As(target, &te) {
		return false
	}
	return te.Kind == e.Kind
}

// Upstream wraps err as an UpstreamUnavailable error raised by component.
func Upstream(component string, err error) error {
	return &Error{
		Kind:      KindUpstreamUnavailable,
		Component: component,
		Message:   ErrUpstreamUnavailable.Message,
		Err:       err,
	}
}

// InvalidInput wraps err as an InvalidInput error raised by component.
func InvalidInput(component string, err error) error {
	return &Error{
		Kind:      KindInvalidInput,
		Component: component,
		Message:   ErrInvalidInput.Message,
		Err:       err,
	}
}

// PromptInjection reports that component rejected input matching trigger.
func PromptInjection(component, trigger string) error {
	return &Error{
		Kind:      KindPromptInjection,
		Component: component,
		Message:   ErrPromptInjection.Message,
		Err:       fmt.Errorf("matched %q", trigger),
	}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// UserMessage returns a message suitable for end users.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Something went wrong while answering the question."
}
