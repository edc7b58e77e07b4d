package prompt

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/ragtime/ai"
	"github.com/poiesic/ragtime/core"
)

// Synthesis is a generated answer with the fragments it was grounded on.
type Synthesis struct {
	Answer  string
	Sources []core.Source
	Prompt  *Prompt
}

// Synthesizer assembles a prompt and asks the generator for the answer.
// It is the one stage whose failure fails the whole request.
type Synthesizer struct {
	assembler   *Assembler
	generator   ai.Generator
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// SynthesizerOption configures a Synthesizer.
type SynthesizerOption func(*Synthesizer) error

// WithSynthesizerLogger sets a custom logger.
// Default is slog.Default().
func WithSynthesizerLogger(logger *slog.Logger) SynthesizerOption {
	return func(s *Synthesizer) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithSampling sets the answer temperature and token cap.
// Zero values use the provider defaults.
func WithSampling(temperature float64, maxTokens int) SynthesizerOption {
	return func(s *Synthesizer) error {
		s.temperature = temperature
		s.maxTokens = maxTokens
		return nil
	}
}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer(assembler *Assembler, generator ai.Generator, opts ...SynthesizerOption) (*Synthesizer, error) {
	if assembler == nil {
		return nil, ErrAssemblerRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	s := &Synthesizer{
		assembler: assembler,
		generator: generator,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "synthesizer")

	return s, nil
}

// Version returns the prompt version used for answers.
func (s *Synthesizer) Version() string {
	return s.assembler.Version()
}

// AnswersInLanguage reports whether the template tells the model to
// write the answer in the requested language itself.
func (s *Synthesizer) AnswersInLanguage() bool {
	return s.assembler.template.UsesLanguage()
}

// Synthesize answers req.Question from req.Candidates.
// A blank question is rejected before any upstream call.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (*Synthesis, error) {
	if err := core.ValidateQuestion(req.Question); err != nil {
		return nil, core.InvalidInput("synthesizer", err)
	}

	p, err := s.assembler.Build(req)
	if err != nil {
		return nil, err
	}

	var opts []ai.GenerateOption
	if s.temperature > 0 {
		opts = append(opts, ai.WithTemperature(s.temperature))
	}
	if s.maxTokens > 0 {
		opts = append(opts, ai.WithMaxTokens(s.maxTokens))
	}

	answer, err := s.generator.GenerateText(ctx, p.Messages, opts...)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		s.logger.Error("answer generation failed",
			"length", len(req.Question),
			"fragments", len(p.Candidates),
			"turns", len(p.History),
			"error", err)
		if core.KindOf(err) == core.KindUpstreamUnavailable {
			return nil, err
		}
		return nil, core.Upstream("synthesizer", err)
	}

	sources := make([]core.Source, len(p.Candidates))
	for i, c := range p.Candidates {
		sources[i] = core.NewSource(c)
	}

	return &Synthesis{Answer: answer, Sources: sources, Prompt: p}, nil
}
