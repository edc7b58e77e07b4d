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
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxQuestionLength bounds the number of runes accepted in a question.
const MaxQuestionLength = 4000

// ValidateQuestion validates a user question.
//
// Validation rules:
//   - must contain at least one non-whitespace character
//   - must not exceed MaxQuestionLength runes
func ValidateQuestion(question string) error {
	if strings.TrimSpace(question) == "" {
		return ErrEmptyContent
	}
	if utf8.RuneCountInString(question) > MaxQuestionLength {
		return fmt.Errorf("%w: %d runes exceeds %d", ErrContentTooLong, utf8.RuneCountInString(question), MaxQuestionLength)
	}
	return nil
}

// ValidateRole validates that a Role has a known value.
func ValidateRole(role Role) error {
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	return nil
}

// ValidateTurn validates a conversation Turn.
func ValidateTurn(turn Turn) error {
	if err := ValidateRole(turn.Role); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTurn, err)
	}
	if strings.TrimSpace(turn.Content) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTurn, ErrEmptyContent)
	}
	return nil
}

// ValidateFragment validates a Fragment according to domain rules.
//
// Validation rules:
//   - Text must not be empty
//   - SourceID must not be empty
//
// Vector is not validated; fragments may be stored before embedding.
func ValidateFragment(fragment *Fragment) error {
	if fragment == nil {
		return fmt.Errorf("%w: fragment is nil", ErrInvalidFragment)
	}
	if strings.TrimSpace(fragment.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidFragment, ErrEmptyContent)
	}
	if fragment.SourceID == "" {
		return fmt.Errorf("%w: source id is empty", ErrInvalidFragment)
	}
	return nil
}

// UsableTurns returns the turns with a known role and non-empty content,
// preserving order. Malformed turns from callers are dropped rather than rejected.
func UsableTurns(turns []Turn) []Turn {
	out := make([]Turn, 0, len(turns))
	for _, t := range turns {
		if ValidateTurn(t) == nil {
			out = append(out, t)
		}
	}
	return out
}
