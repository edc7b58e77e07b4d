package prompt

import (
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// defaultEncoding matches the tokenizer of current OpenAI chat models.
const defaultEncoding = "cl100k_base"

// TokenCounter counts the tokens of a text.
type TokenCounter interface {
	Count(text string) int
}

// TokenCounterFunc adapts a function to TokenCounter.
type TokenCounterFunc func(string) int

// Count calls f(text).
func (f TokenCounterFunc) Count(text string) int {
	return f(text)
}

// EstimateTokens approximates a token count as one token per four runes.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

type tiktokenCounter struct {
	encoding string
	once     sync.Once
	enc      *tiktoken.Tiktoken
}

// NewTiktokenCounter returns a counter backed by the cl100k_base encoding.
// The encoding is loaded on first use; when it cannot be loaded the
// counter falls back to EstimateTokens.
func NewTiktokenCounter() TokenCounter {
	return &tiktokenCounter{encoding: defaultEncoding}
}

func (c *tiktokenCounter) Count(text string) int {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding(c.encoding)
		if err != nil {
			slog.Default().With("component", "tokenizer").Warn("tiktoken unavailable, estimating token counts",
				"encoding", c.encoding, "error", err)
			return
		}
		c.enc = enc
	})
	if c.enc == nil {
		return EstimateTokens(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}
