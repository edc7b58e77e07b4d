package prompt

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/ragtime/ai"
	"github.com/poiesic/ragtime/ai/mock"
	"github.com/poiesic/ragtime/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSynthesizer(t *testing.T, gen ai.Generator, opts ...SynthesizerOption) *Synthesizer {
	t.Helper()
	r, err := DefaultRegistry("")
	require.NoError(t, err)
	a, err := NewAssembler(r.Active())
	require.NoError(t, err)
	s, err := NewSynthesizer(a, gen, opts...)
	require.NoError(t, err)
	return s
}

func TestNewSynthesizer(t *testing.T) {
	a, err := NewAssembler(testTemplate())
	require.NoError(t, err)

	_, err = NewSynthesizer(nil, mock.NewMockGenerator())
	assert.ErrorIs(t, err, ErrAssemblerRequired)
	_, err = NewSynthesizer(a, nil)
	assert.ErrorIs(t, err, ErrGeneratorRequired)
}

func TestSynthesize(t *testing.T) {
	ctx := context.Background()
	frags := []core.Candidate{candidate(1, "Sleep", "Get morning light."), candidate(2, "", "Avoid caffeine late.")}

	t.Run("returns answer and sources", func(t *testing.T) {
		var opts ai.GenerateOptions
		gen := mock.NewMockGenerator().WithGenerateFunc(func(_ context.Context, _ []ai.Message, o ai.GenerateOptions) (string, error) {
			opts = o
			return "Get light early.", nil
		})
		s := newTestSynthesizer(t, gen, WithSampling(0.7, 512))

		out, err := s.Synthesize(ctx, Request{Question: "sleep tips", Candidates: frags})
		require.NoError(t, err)
		assert.Equal(t, "Get light early.", out.Answer)
		require.Len(t, out.Sources, 2)
		assert.Equal(t, core.ID(1), out.Sources[0].FragmentID)
		assert.Equal(t, "Get morning light.", out.Sources[0].Excerpt)
		assert.Equal(t, DefaultVersion, s.Version())
		assert.InDelta(t, 0.7, opts.Temperature, 1e-9)
		assert.Equal(t, 512, opts.MaxTokens)

		sent := gen.LastRequest()
		require.Len(t, sent, 2)
		assert.Contains(t, sent[0].Content, "Get morning light.\n\nAvoid caffeine late.")
		assert.Equal(t, "sleep tips", sent[1].Content)
	})

	t.Run("blank question makes no call", func(t *testing.T) {
		gen := mock.NewMockGenerator()
		s := newTestSynthesizer(t, gen)

		_, err := s.Synthesize(ctx, Request{Question: " \t\n", Candidates: frags})
		assert.ErrorIs(t, err, core.ErrInvalidInput)
		assert.Equal(t, 0, gen.CallCount())
	})

	t.Run("generation failure is upstream unavailable", func(t *testing.T) {
		gen := mock.NewMockGenerator().WithGenerateFunc(func(context.Context, []ai.Message, ai.GenerateOptions) (string, error) {
			return "", errors.New("connection refused")
		})
		s := newTestSynthesizer(t, gen)

		_, err := s.Synthesize(ctx, Request{Question: "sleep tips", Candidates: frags})
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrUpstreamUnavailable)
		assert.Equal(t, core.KindUpstreamUnavailable, core.KindOf(err))
	})

	t.Run("cancellation passes through", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		s := newTestSynthesizer(t, mock.NewMockGenerator())

		_, err := s.Synthesize(cctx, Request{Question: "sleep tips"})
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotEqual(t, core.KindUpstreamUnavailable, core.KindOf(err))
	})
}
