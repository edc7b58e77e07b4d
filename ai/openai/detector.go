package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/ragtime/ai"
)

const detectionPrompt = `Identify the language of the text supplied by the user.

Respond ONLY with a JSON object of the form {"language": "<code>", "confidence": <number>}
where <code> is the two-letter ISO 639-1 code in lower case and <number> is your
confidence between 0 and 1. Do not include any other text.`

// ErrUnrecognizedLanguage is returned when the model's answer holds no usable code.
var ErrUnrecognizedLanguage = errors.New("unrecognized language code")

type detection struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

// Detector implements ai.LanguageDetector by asking the chat model in JSON mode.
type Detector struct {
	generator ai.Generator
	logger    *slog.Logger
}

var _ ai.LanguageDetector = (*Detector)(nil)

func newDetector(generator ai.Generator) *Detector {
	return &Detector{
		generator: generator,
		logger:    slog.Default().With("component", "openai-detector"),
	}
}

// NewDetector creates a language detector backed by the configured chat model.
func NewDetector(config *ai.Config) (ai.LanguageDetector, error) {
	generator, err := newGenerator(config, nil)
	if err != nil {
		return nil, err
	}
	return newDetector(generator), nil
}

// DetectLanguage returns the ISO 639-1 code of text with the model's confidence.
func (d *Detector) DetectLanguage(ctx context.Context, text string) (ai.Detection, error) {
	messages := []ai.Message{
		ai.SystemMessage(detectionPrompt),
		ai.UserMessage(sample(text, detectionSampleRunes)),
	}

	response, err := d.generator.GenerateText(ctx, messages,
		ai.WithTemperature(0),
		ai.WithMaxTokens(32),
		ai.WithJSONMode(),
	)
	if err != nil {
		return ai.Detection{}, err
	}

	var result detection
	body := repairJSON(stripCodeFence(response))
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		d.logger.Warn("error parsing detection response", "response", body, "err", err)
		return ai.Detection{}, fmt.Errorf("parse detection: %w", err)
	}

	code := normalizeLanguageCode(result.Language)
	if code == "" {
		return ai.Detection{}, fmt.Errorf("%w: %q", ErrUnrecognizedLanguage, result.Language)
	}

	confidence := result.Confidence
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	d.logger.Debug("detected language", "language", code, "confidence", confidence)
	return ai.Detection{Code: code, Confidence: confidence}, nil
}
