package rewrite

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/ragtime/ai"
	"github.com/poiesic/ragtime/core"
	"github.com/tmc/langchaingo/prompts"
)

const (
	// DefaultCount is the default number of queries per question.
	DefaultCount = 3
	// DefaultHistoryTurns is how many recent turns are shown to the model.
	DefaultHistoryTurns = 4

	// minQueryLength drops fragments of replies too short to be a query.
	minQueryLength = 10
	maxTokens      = 256
)

var rewritePrompt = prompts.PromptTemplate{
	Template: `You are an expert at converting user questions into optimal search queries for a database of transcripts.

Given a user question, generate {count} different search queries that will retrieve the most relevant information. These queries should:
- Use different phrasings and terminology
- Cover different aspects of the question
- Include scientific terms when appropriate
- Be concise (10-20 words each)

Examples:

User Question: "sleep stuff"
Search Queries:
1. sleep optimization protocols and sleep hygiene recommendations
2. circadian rhythm and sleep quality improvement strategies
3. sleep supplements and evening routines for better rest

User Question: "best supplements for anxiety"
Search Queries:
1. anxiety reduction supplements and dosage recommendations
2. stress management and calming supplement protocols
3. GABA L-theanine ashwagandha for anxiety relief

{history}Now generate search queries for this question:

User Question: {question}
Search Queries:`,
	InputVariables: []string{"count", "history", "question"},
	TemplateFormat: prompts.TemplateFormatFString,
}

// headerPrefixes mark reply lines that introduce the list rather than belong to it.
var headerPrefixes = []string{"here are", "search queries:", "user question:", "these queries"}

// Rewriter expands a question into several search queries.
// It never fails: when the model is unavailable the question itself is
// the only query.
type Rewriter struct {
	generator    ai.Generator
	count        int
	historyTurns int
	logger       *slog.Logger
}

// Option configures a Rewriter.
type Option func(*Rewriter) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Rewriter) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithCount sets the maximum number of queries returned, including the
// original question. Default is 3.
func WithCount(n int) Option {
	return func(r *Rewriter) error {
		if n < 1 {
			return ErrInvalidCount
		}
		r.count = n
		return nil
	}
}

// WithHistoryTurns sets how many recent conversation turns are included
// in the prompt so follow-up questions can be resolved. Default is 4.
func WithHistoryTurns(n int) Option {
	return func(r *Rewriter) error {
		r.historyTurns = max(n, 0)
		return nil
	}
}

// NewRewriter creates a rewriter.
func NewRewriter(generator ai.Generator, opts ...Option) (*Rewriter, error) {
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	r := &Rewriter{
		generator:    generator,
		count:        DefaultCount,
		historyTurns: DefaultHistoryTurns,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "rewriter")

	return r, nil
}

// Count returns the maximum number of queries Rewrite produces.
func (r *Rewriter) Count() int {
	return r.count
}

// Rewrite returns between 1 and Count distinct queries for question.
// The first query is always question itself.
func (r *Rewriter) Rewrite(ctx context.Context, question string, history []core.Turn) []string {
	queries := []string{question}
	if r.count == 1 {
		return queries
	}

	prompt, err := rewritePrompt.Format(map[string]any{
		"count":    r.count - 1,
		"history":  r.renderHistory(history),
		"question": question,
	})
	if err != nil {
		r.logger.Warn("failed to render rewrite prompt", "err", err)
		return queries
	}

	reply, err := r.generator.GenerateText(ctx,
		[]ai.Message{ai.UserMessage(prompt)},
		ai.WithMaxTokens(maxTokens),
	)
	if err != nil {
		r.logger.Warn("query rewriting failed, using question only", "length", len(question), "err", err)
		return queries
	}

	queries = appendDistinct(queries, parseQueries(reply), r.count)
	r.logger.Debug("rewrote question", "question", question, "queries", queries)
	return queries
}

func (r *Rewriter) renderHistory(history []core.Turn) string {
	turns := core.UsableTurns(history)
	if r.historyTurns == 0 || len(turns) == 0 {
		return ""
	}
	if len(turns) > r.historyTurns {
		turns = turns[len(turns)-r.historyTurns:]
	}

	var b strings.Builder
	b.WriteString("Conversation so far (use it to resolve references like \"it\" or \"that\"):\n")
	for _, t := range turns {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Content)
	}
	b.WriteString("\n")
	return b.String()
}

// parseQueries extracts candidate queries from a numbered or bulleted reply.
func parseQueries(reply string) []string {
	var out []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isHeader(line) {
			continue
		}
		line = strings.TrimLeft(line, "0123456789.)-*• \t")
		line = strings.Trim(line, "\"'`")
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) > minQueryLength {
			out = append(out, line)
		}
	}
	return out
}

func isHeader(line string) bool {
	lower := strings.ToLower(line)
	for _, p := range headerPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// appendDistinct adds candidates to queries, skipping near-duplicates of
// anything already present, until queries holds limit entries.
func appendDistinct(queries, candidates []string, limit int) []string {
	seen := make(map[string]bool, len(queries)+len(candidates))
	for _, q := range queries {
		seen[queryKey(q)] = true
	}
	for _, c := range candidates {
		if len(queries) >= limit {
			break
		}
		key := queryKey(c)
		if seen[key] {
			continue
		}
		seen[key] = true
		queries = append(queries, c)
	}
	return queries
}
