package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateQuestion(t *testing.T) {
	tests := []struct {
		name     string
		question string
		wantErr  error
	}{
		{name: "valid question", question: "sleep tips", wantErr: nil},
		{name: "empty", question: "", wantErr: ErrEmptyContent},
		{name: "whitespace only", question: " \t\n ", wantErr: ErrEmptyContent},
		{name: "too long", question: strings.Repeat("a", MaxQuestionLength+1), wantErr: ErrContentTooLong},
		{name: "exactly at limit", question: strings.Repeat("a", MaxQuestionLength), wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuestion(tt.question)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateTurn(t *testing.T) {
	tests := []struct {
		name    string
		turn    Turn
		wantErr error
	}{
		{name: "user turn", turn: Turn{Role: RoleUser, Content: "hi"}},
		{name: "assistant turn", turn: Turn{Role: RoleAssistant, Content: "hello"}},
		{name: "system role rejected", turn: Turn{Role: "system", Content: "x"}, wantErr: ErrInvalidRole},
		{name: "empty content", turn: Turn{Role: RoleUser, Content: "  "}, wantErr: ErrEmptyContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTurn(tt.turn)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidTurn)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateFragment(t *testing.T) {
	t.Run("nil fragment", func(t *testing.T) {
		assert.ErrorIs(t, ValidateFragment(nil), ErrInvalidFragment)
	})

	t.Run("empty text", func(t *testing.T) {
		err := ValidateFragment(&Fragment{SourceID: "s"})
		assert.ErrorIs(t, err, ErrInvalidFragment)
		assert.ErrorIs(t, err, ErrEmptyContent)
	})

	t.Run("missing source", func(t *testing.T) {
		assert.ErrorIs(t, ValidateFragment(&Fragment{Text: "x"}), ErrInvalidFragment)
	})

	t.Run("valid without vector", func(t *testing.T) {
		assert.NoError(t, ValidateFragment(&Fragment{SourceID: "s", Text: "x"}))
	})
}

func TestUsableTurns(t *testing.T) {
	in := []Turn{
		{Role: RoleUser, Content: "first"},
		{Role: "tool", Content: "ignored"},
		{Role: RoleAssistant, Content: ""},
		{Role: RoleAssistant, Content: "second"},
	}
	got := UsableTurns(in)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Content)
	assert.Equal(t, "second", got[1].Content)
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	t.Run("upstream wraps cause and matches sentinel", func(t *testing.T) {
		err := Upstream("synthesizer", cause)
		assert.ErrorIs(t, err, ErrUpstreamUnavailable)
		assert.ErrorIs(t, err, cause)
		assert.NotErrorIs(t, err, ErrInvalidInput)
		assert.Equal(t, KindUpstreamUnavailable, KindOf(err))
		assert.Contains(t, err.Error(), "synthesizer")
	})

	t.Run("kind survives further wrapping", func(t *testing.T) {
		err := fmt.Errorf("ask: %w", InvalidInput("pipeline", ErrEmptyContent))
		assert.Equal(t, KindInvalidInput, KindOf(err))
		assert.Equal(t, ErrInvalidInput.Message, UserMessage(err))
	})

	t.Run("plain errors are unknown", func(t *testing.T) {
		assert.Equal(t, KindUnknown, KindOf(cause))
		assert.NotEmpty(t, UserMessage(cause))
		assert.Equal(t, ErrorKind(""), KindOf(nil))
	})
}

func TestPromptInjectionError(t *testing.T) {
	err := PromptInjection("safety", "jailbreak")
	assert.ErrorIs(t, err, ErrPromptInjection)
	assert.Equal(t, KindPromptInjection, KindOf(err))
	assert.Equal(t, ErrPromptInjection.Message, UserMessage(err))
	assert.Contains(t, err.Error(), "jailbreak")
}
