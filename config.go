package ragtime

import (
	"errors"
	"time"

	"github.com/poiesic/ragtime/language"
	"github.com/poiesic/ragtime/prompt"
	"github.com/poiesic/ragtime/search"
)

// Config controls the question answering pipeline.
type Config struct {
	// TopK caps the number of fragments used as context.
	TopK int `yaml:"top_k"`

	// RetrievalMultiplier scales TopK into the per-query retrieval count.
	RetrievalMultiplier int `yaml:"retrieval_multiplier"`

	// SimilarityThreshold is the minimum cosine similarity of a confident match.
	SimilarityThreshold float32 `yaml:"similarity_threshold"`

	// RewriteCount is the maximum number of search queries per question,
	// including the question itself.
	RewriteCount int `yaml:"rewrite_count"`

	// HistoryLimit is the number of recent turns kept per session and
	// shown to the model. 0 disables history.
	HistoryLimit int `yaml:"history_limit"`

	EnableQueryRewriting bool `yaml:"enable_query_rewriting"`
	EnableTranslation    bool `yaml:"enable_translation"`
	EnableReranking      bool `yaml:"enable_reranking"`
	EnableSafetyCheck    bool `yaml:"enable_safety_check"`

	// PivotLanguage is the language the corpus is embedded in.
	PivotLanguage string `yaml:"pivot_language"`

	// MinDetectionConfidence below which a question is treated as pivot language.
	MinDetectionConfidence float64 `yaml:"min_detection_confidence"`

	// PromptVersion selects the answer template.
	PromptVersion string `yaml:"prompt_version"`

	// Collection is the fragment collection searched.
	Collection string `yaml:"collection"`

	// RetrievalConcurrency bounds parallel queries. 0 uses the CPU count.
	RetrievalConcurrency int `yaml:"retrieval_concurrency"`

	// RetrievalTimeout bounds each embed and search round trip.
	RetrievalTimeout time.Duration `yaml:"retrieval_timeout"`

	// ContextTokenBudget caps the tokens of context and history. 0 is unlimited.
	ContextTokenBudget int `yaml:"context_token_budget"`

	// AnswerTemperature and AnswerMaxTokens override the provider defaults
	// for synthesis when positive.
	AnswerTemperature float64 `yaml:"answer_temperature"`
	AnswerMaxTokens   int     `yaml:"answer_max_tokens"`

	// SourceTitles prefixes each context fragment with its source title.
	SourceTitles bool `yaml:"source_titles"`
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() *Config {
	return &Config{
		TopK:                   7,
		RetrievalMultiplier:    3,
		SimilarityThreshold:    0.5,
		RewriteCount:           3,
		HistoryLimit:           10,
		EnableQueryRewriting:   true,
		EnableTranslation:      true,
		EnableReranking:        false,
		EnableSafetyCheck:      true,
		PivotLanguage:          language.Pivot,
		MinDetectionConfidence: 0.6,
		PromptVersion:          prompt.DefaultVersion,
		Collection:             search.DefaultCollection,
		RetrievalTimeout:       15 * time.Second,
		SourceTitles:           true,
	}
}

// Validate checks that every option is in range.
func (c *Config) Validate() error {
	if c.TopK < 1 {
		return errors.New("pipeline config: TopK must be at least 1")
	}
	if c.RetrievalMultiplier < 1 {
		return errors.New("pipeline config: RetrievalMultiplier must be at least 1")
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return errors.New("pipeline config: SimilarityThreshold must be between 0 and 1")
	}
	if c.RewriteCount < 1 {
		return errors.New("pipeline config: RewriteCount must be at least 1")
	}
	if c.HistoryLimit < 0 {
		return errors.New("pipeline config: HistoryLimit cannot be negative")
	}
	if c.MinDetectionConfidence < 0 || c.MinDetectionConfidence > 1 {
		return errors.New("pipeline config: MinDetectionConfidence must be between 0 and 1")
	}
	if c.PivotLanguage == "" {
		return errors.New("pipeline config: PivotLanguage is required")
	}
	if c.Collection == "" {
		return errors.New("pipeline config: Collection is required")
	}
	if c.RetrievalConcurrency < 0 {
		return errors.New("pipeline config: RetrievalConcurrency cannot be negative")
	}
	if c.RetrievalTimeout <= 0 {
		return errors.New("pipeline config: RetrievalTimeout must be positive")
	}
	if c.ContextTokenBudget < 0 {
		return errors.New("pipeline config: ContextTokenBudget cannot be negative")
	}
	if c.AnswerTemperature < 0 || c.AnswerTemperature > 2 {
		return errors.New("pipeline config: AnswerTemperature must be between 0 and 2")
	}
	if c.AnswerMaxTokens < 0 {
		return errors.New("pipeline config: AnswerMaxTokens cannot be negative")
	}
	return nil
}
