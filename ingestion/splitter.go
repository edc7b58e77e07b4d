package ingestion

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// Strategy selects how documents are cut into chunks.
type Strategy string

const (
	// StrategyRecursive splits on paragraphs, then lines, sentences and words.
	StrategyRecursive Strategy = "recursive"
	// StrategyToken splits on cl100k_base token boundaries.
	StrategyToken Strategy = "token"
)

// Chunking describes a chunking configuration.
type Chunking struct {
	Strategy    Strategy `yaml:"strategy"`
	Size        int      `yaml:"size"`
	Overlap     int      `yaml:"overlap"`
	Description string   `yaml:"-"`
}

// DefaultPreset is used when no chunking is configured.
const DefaultPreset = "qa"

var presets = map[string]Chunking{
	"qa": {
		Strategy:    StrategyRecursive,
		Size:        1000,
		Overlap:     200,
		Description: "Balances context and granularity for question answering",
	},
	"search": {
		Strategy:    StrategyRecursive,
		Size:        500,
		Overlap:     50,
		Description: "Shorter, focused chunks for semantic search",
	},
	"summary": {
		Strategy:    StrategyRecursive,
		Size:        2000,
		Overlap:     200,
		Description: "Larger chunks for summarization",
	},
	"fine_grained": {
		Strategy:    StrategyRecursive,
		Size:        300,
		Overlap:     30,
		Description: "Very small chunks for precise retrieval",
	},
}

// recursiveSeparators are tried in order until chunks fit.
var recursiveSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Preset returns a named chunking configuration.
func Preset(name string) (Chunking, error) {
	c, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Chunking{}, fmt.Errorf("%w: %q (available: %s)", ErrUnknownPreset, name, strings.Join(PresetNames(), ", "))
	}
	return c, nil
}

// PresetNames lists the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Validate checks the size and overlap.
func (c Chunking) Validate() error {
	if c.Size < 1 || c.Overlap < 0 || c.Overlap >= c.Size {
		return fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidChunking, c.Size, c.Overlap)
	}
	return nil
}

// NewSplitter builds a text splitter for c.
func NewSplitter(c Chunking) (textsplitter.TextSplitter, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	switch c.Strategy {
	case StrategyRecursive, "":
		return textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(c.Size),
			textsplitter.WithChunkOverlap(c.Overlap),
			textsplitter.WithSeparators(recursiveSeparators),
		), nil
	case StrategyToken:
		return textsplitter.NewTokenSplitter(
			textsplitter.WithChunkSize(c.Size),
			textsplitter.WithChunkOverlap(c.Overlap),
		), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, c.Strategy)
	}
}
