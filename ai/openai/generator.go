package openai

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/poiesic/ragtime/ai"
	"github.com/poiesic/ragtime/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Generator implements ai.Generator using OpenAI-compatible chat APIs.
type Generator struct {
	client      llms.Model
	guard       *guard
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

var _ ai.Generator = (*Generator)(nil)

// newGenerator is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newGenerator(config *ai.Config, g *guard) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return newGeneratorWithModel(client, config, g), nil
}

func newGeneratorWithModel(client llms.Model, config *ai.Config, g *guard) *Generator {
	if g == nil {
		g = newGuard("chat", config)
	}
	return &Generator{
		client:      client,
		guard:       g,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
		logger:      slog.Default().With("component", "openai-generator"),
	}
}

// NewGenerator creates a new text generator using the provided configuration.
//
// Returns ai.Generator interface to enforce abstraction.
func NewGenerator(config *ai.Config) (ai.Generator, error) {
	return newGenerator(config, nil)
}

// NewGeneratorFromModel wraps any langchaingo model with the same
// timeout, rate limit, breaker and retry policy as NewGenerator.
// config supplies the policy and the default temperature and max tokens.
func NewGeneratorFromModel(model llms.Model, config *ai.Config) ai.Generator {
	config.Normalize()
	return newGeneratorWithModel(model, config, nil)
}

// GenerateText sends messages to the chat model and returns the first choice.
func (g *Generator) GenerateText(ctx context.Context, messages []ai.Message, opts ...ai.GenerateOption) (string, error) {
	o := ai.ApplyGenerateOptions(opts...)

	temperature := g.temperature
	if o.HasTemperature {
		temperature = o.Temperature
	}
	maxTokens := g.maxTokens
	if o.MaxTokens > 0 {
		maxTokens = o.MaxTokens
	}
	callOpts := []llms.CallOption{
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
	}
	if o.JSONMode {
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	content := toMessageContent(messages)
	g.logger.Debug("generating text", "messages", len(messages), "json", o.JSONMode)

	var text string
	err := g.guard.call(ctx, func(ctx context.Context) error {
		response, err := g.client.GenerateContent(ctx, content, callOpts...)
		if err != nil {
			return err
		}
		if len(response.Choices) < 1 || strings.TrimSpace(response.Choices[0].Content) == "" {
			return ai.ErrEmptyResponse
		}
		text = response.Choices[0].Content
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		g.logger.Error("failed to generate content", "err", err)
		return "", core.Upstream("generator", err)
	}
	return text, nil
}

func toMessageContent(messages []ai.Message) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		role := llms.ChatMessageTypeHuman
		switch m.Role {
		case ai.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case ai.RoleAssistant:
			role = llms.ChatMessageTypeAI
		}
		content = append(content, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(m.Content)},
		})
	}
	return content
}
