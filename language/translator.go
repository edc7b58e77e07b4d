package language

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/ragtime/ai"
	"github.com/tmc/langchaingo/prompts"
)

var toPivotPrompt = prompts.PromptTemplate{
	Template: "Translate the following text to {pivot}. Only output the translation, nothing else.\n\n" +
		"Text: {text}\n\nTranslation:",
	InputVariables: []string{"pivot", "text"},
	TemplateFormat: prompts.TemplateFormatFString,
}

var fromPivotPrompt = prompts.PromptTemplate{
	Template: "Translate the following {pivot} text to {language}. Only output the translation, nothing else.\n\n" +
		"{pivot} text: {text}\n\nTranslation to {language}:",
	InputVariables: []string{"pivot", "language", "text"},
	TemplateFormat: prompts.TemplateFormatFString,
}

// Normalized is a question prepared for retrieval in the pivot language.
type Normalized struct {
	// Original is the question as asked.
	Original string
	// Text is the question in the pivot language.
	Text string
	// Language is the language answers should be returned in.
	Language string
	// Detected is the raw detector output. Zero when detection failed.
	Detected ai.Detection
	// Translated reports whether Text differs from Original by translation.
	Translated bool
	// Degraded reports that detection or translation failed or was too
	// uncertain, so the question proceeds untranslated.
	Degraded bool
}

// Translator detects the language of questions and moves text in and out
// of the pivot language. Failures never abort a request: the text is
// passed through and the result is marked degraded.
type Translator struct {
	detector      ai.LanguageDetector
	generator     ai.Generator
	pivot         string
	minConfidence float64
	logger        *slog.Logger
}

// Option configures a Translator.
type Option func(*Translator) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(t *Translator) error {
		if logger == nil {
			logger = slog.Default()
		}
		t.logger = logger
		return nil
	}
}

// WithPivot sets the pivot language code. Default is "en".
func WithPivot(code string) Option {
	return func(t *Translator) error {
		code = strings.ToLower(strings.TrimSpace(code))
		if code == "" {
			code = Pivot
		}
		t.pivot = code
		return nil
	}
}

// WithMinConfidence sets the detection confidence required before a
// question is translated. Default is 0.6.
func WithMinConfidence(c float64) Option {
	return func(t *Translator) error {
		if c < 0 || c > 1 {
			return ErrInvalidConfidence
		}
		t.minConfidence = c
		return nil
	}
}

// NewTranslator creates a translator.
func NewTranslator(detector ai.LanguageDetector, generator ai.Generator, opts ...Option) (*Translator, error) {
	if detector == nil {
		return nil, ErrDetectorRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	t := &Translator{
		detector:      detector,
		generator:     generator,
		pivot:         Pivot,
		minConfidence: 0.6,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	t.logger = t.logger.With("component", "translator")

	return t, nil
}

// Pivot returns the pivot language code.
func (t *Translator) Pivot() string {
	return t.pivot
}

// Normalize detects the language of question and translates it to the
// pivot language when the detector is confident it is something else.
func (t *Translator) Normalize(ctx context.Context, question string) (Normalized, error) {
	n := Normalized{
		Original: question,
		Text:     question,
		Language: t.pivot,
	}

	detection, err := t.detector.DetectLanguage(ctx, question)
	if err != nil {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		t.logger.Warn("language detection failed, treating as pivot", "length", len(question), "err", err)
		n.Degraded = true
		return n, nil
	}
	n.Detected = detection

	if detection.Code == "" || detection.Code == t.pivot {
		return n, nil
	}
	if detection.Confidence < t.minConfidence {
		t.logger.Info("low confidence detection, treating as pivot",
			"language", detection.Code, "confidence", detection.Confidence, "min", t.minConfidence)
		n.Degraded = true
		return n, nil
	}

	n.Language = detection.Code
	translated, err := t.translate(ctx, toPivotPrompt, map[string]any{
		"pivot": LanguageName(t.pivot),
		"text":  question,
	})
	if err != nil {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		t.logger.Warn("translation to pivot failed, using original text",
			"language", detection.Code, "length", len(question), "err", err)
		n.Degraded = true
		return n, nil
	}

	t.logger.Debug("translated question", "language", detection.Code, "original", question, "pivot", translated)
	n.Text = translated
	n.Translated = true
	return n, nil
}

// FromPivot translates text from the pivot language into lang.
// It returns text unchanged when lang is the pivot or empty. A failed
// translation also returns text unchanged with degraded set.
func (t *Translator) FromPivot(ctx context.Context, text, lang string) (translated string, degraded bool) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" || lang == t.pivot || strings.TrimSpace(text) == "" {
		return text, false
	}

	out, err := t.translate(ctx, fromPivotPrompt, map[string]any{
		"pivot":    LanguageName(t.pivot),
		"language": LanguageName(lang),
		"text":     text,
	})
	if err != nil {
		t.logger.Warn("translation from pivot failed, returning pivot text",
			"language", lang, "length", len(text), "err", err)
		return text, true
	}
	return out, false
}

func (t *Translator) translate(ctx context.Context, tmpl prompts.PromptTemplate, values map[string]any) (string, error) {
	prompt, err := tmpl.Format(values)
	if err != nil {
		return "", err
	}

	reply, err := t.generator.GenerateText(ctx, []ai.Message{ai.UserMessage(prompt)}, ai.WithTemperature(0))
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", ErrEmptyTranslation
	}
	return reply, nil
}
