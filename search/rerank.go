package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/ragtime/ai"
	"github.com/poiesic/ragtime/core"
	"github.com/tmc/langchaingo/prompts"
)

const (
	// rerankPassageRunes caps the text of each passage shown to the model.
	rerankPassageRunes = 800
	rerankMaxTokens    = 256
)

var rerankPrompt = prompts.PromptTemplate{
	Template: "You are reranking passages by relevance to the user question. " +
		"Return a JSON array of passage ids ordered from most to least relevant. " +
		"Only return JSON, no extra text.\n\n" +
		"Question: {question}\n\n" +
		"Passages:\n{passages}",
	InputVariables: []string{"question", "passages"},
	TemplateFormat: prompts.TemplateFormatFString,
}

// Reranker reorders filtered candidates using the generation model.
// It never fails: any problem leaves the input order unchanged.
type Reranker struct {
	generator ai.Generator
	logger    *slog.Logger
}

// NewReranker creates a reranker backed by generator.
// A nil logger falls back to slog.Default().
func NewReranker(generator ai.Generator, logger *slog.Logger) (*Reranker, error) {
	if generator == nil {
		return nil, ErrGeneratorRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reranker{
		generator: generator,
		logger:    logger.With("component", "reranker"),
	}, nil
}

// Rerank returns candidates ordered by the model's judgement of relevance
// to question. Ids the model invents are ignored and candidates it omits
// follow in their original order.
func (r *Reranker) Rerank(ctx context.Context, question string, candidates []core.Candidate) []core.Candidate {
	if len(candidates) < 2 {
		return candidates
	}

	var passages strings.Builder
	for _, c := range candidates {
		fmt.Fprintf(&passages, "- id: %d\n  text: %s\n", c.Fragment.ID, truncateRunes(c.Fragment.Text, rerankPassageRunes))
	}

	prompt, err := rerankPrompt.Format(map[string]any{
		"question": question,
		"passages": passages.String(),
	})
	if err != nil {
		r.logger.Warn("failed to render rerank prompt", "err", err)
		return candidates
	}

	reply, err := r.generator.GenerateText(ctx,
		[]ai.Message{ai.UserMessage(prompt)},
		ai.WithTemperature(0),
		ai.WithMaxTokens(rerankMaxTokens),
	)
	if err != nil {
		r.logger.Warn("rerank call failed, keeping order", "candidates", len(candidates), "err", err)
		return candidates
	}

	order, err := parseRankedIDs(reply)
	if err != nil {
		r.logger.Warn("unparseable rerank reply, keeping order", "length", len(reply), "err", err)
		return candidates
	}

	return applyOrder(candidates, order)
}

// parseRankedIDs extracts a JSON array of ids from reply. Ids may be
// numbers or numeric strings.
func parseRankedIDs(reply string) ([]core.ID, error) {
	start := strings.IndexByte(reply, '[')
	end := strings.LastIndexByte(reply, ']')
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in reply")
	}

	var raw []json.Number
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return nil, err
	}

	ids := make([]core.ID, 0, len(raw))
	for _, n := range raw {
		id, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, core.ID(id))
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no usable ids in reply")
	}
	return ids, nil
}

func applyOrder(candidates []core.Candidate, order []core.ID) []core.Candidate {
	byID := make(map[core.ID]int, len(candidates))
	for i, c := range candidates {
		byID[c.Fragment.ID] = i
	}

	placed := make([]bool, len(candidates))
	out := make([]core.Candidate, 0, len(candidates))
	for _, id := range order {
		i, ok := byID[id]
		if !ok || placed[i] {
			continue
		}
		placed[i] = true
		out = append(out, candidates[i])
	}
	for i, c := range candidates {
		if !placed[i] {
			out = append(out, c)
		}
	}
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
