package mock

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/poiesic/ragtime/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicVector(t *testing.T) {
	a := DeterministicVector("sleep", 16)
	b := DeterministicVector("sleep", 16)
	c := DeterministicVector("coffee", 16)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestMockGenerator(t *testing.T) {
	t.Run("default reply and recording", func(t *testing.T) {
		gen := NewMockGenerator()
		got, err := gen.GenerateText(context.Background(), []ai.Message{ai.UserMessage("hi")})
		require.NoError(t, err)
		assert.Equal(t, DefaultReply, got)
		assert.Equal(t, 1, gen.CallCount())
		assert.Equal(t, "hi", gen.LastRequest()[0].Content)
	})

	t.Run("replies in order then repeat last", func(t *testing.T) {
		gen := NewMockGenerator().WithReplies("a", "b")
		ctx := context.Background()
		for _, want := range []string{"a", "b", "b"} {
			got, err := gen.GenerateText(ctx, nil)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("injected error", func(t *testing.T) {
		boom := errors.New("boom")
		gen := NewMockGenerator().WithGenerateFunc(func(context.Context, []ai.Message, ai.GenerateOptions) (string, error) {
			return "", boom
		})
		_, err := gen.GenerateText(context.Background(), nil)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("options are applied", func(t *testing.T) {
		var seen ai.GenerateOptions
		gen := NewMockGenerator().WithGenerateFunc(func(_ context.Context, _ []ai.Message, o ai.GenerateOptions) (string, error) {
			seen = o
			return "ok", nil
		})
		_, err := gen.GenerateText(context.Background(), nil, ai.WithJSONMode(), ai.WithMaxTokens(7))
		require.NoError(t, err)
		assert.True(t, seen.JSONMode)
		assert.Equal(t, 7, seen.MaxTokens)
	})
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider().(*MockProvider)
	d, err := p.Detector().DetectLanguage(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "en", d.Code)
	assert.Equal(t, 1, p.GetMockDetector().CallCount())

	_, err = p.Embedder().EmbedQuery(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 1, p.GetMockEmbedder().CallCount())
	assert.NoError(t, p.Close())
}
