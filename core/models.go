package core

import (
	"encoding/binary"
	"time"
	"unicode/utf8"

	"github.com/go-crypt/x/blake2b"
)

// ID is a stable identifier for fragments.
// Fragment IDs are content-derived so re-indexing the same text is idempotent.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// FragmentID derives a fragment ID from its source and text.
// The same text appearing in two sources yields two fragments.
func FragmentID(sourceID, text string) ID {
	return IDFromContent(sourceID + "\x00" + text)
}

// Fragment is an immutable unit of previously chunked text in the pivot language.
type Fragment struct {
	ID         ID
	Collection string
	SourceID   string            // Identifier of the originating document
	Title      string            // Human-readable source title, may be empty
	Text       string
	Metadata   map[string]string // Optional metadata (e.g., "chunk_index", "url")
	Vector     []float32         // Normalized embedding, owned by the index
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// Candidate is a scored fragment produced by one nearest-neighbor query.
// Candidates exist only for the duration of one Ask call.
type Candidate struct {
	Fragment   *Fragment
	Score      float32 // Cosine similarity in [-1, 1]
	QueryIndex int     // Index of the rewritten query that produced it
}

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleUser is a turn written by the person asking.
	RoleUser Role = "user"
	// RoleAssistant is a turn produced by the answer synthesizer.
	RoleAssistant Role = "assistant"
)

// Turn is a single entry of a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Seq     uint64 `json:"seq,omitempty"` // Position within the session, assigned by the store
}

// ExcerptLength is the number of runes kept in a source excerpt.
const ExcerptLength = 200

// Source is a fragment cited by an answer.
type Source struct {
	FragmentID ID      `json:"fragment_id"`
	SourceID   string  `json:"source_id,omitempty"`
	Title      string  `json:"title,omitempty"`
	Score      float32 `json:"score"`
	Excerpt    string  `json:"excerpt"`
}

// NewSource builds a Source from a candidate, truncating the text to an excerpt.
func NewSource(c Candidate) Source {
	return Source{
		FragmentID: c.Fragment.ID,
		SourceID:   c.Fragment.SourceID,
		Title:      c.Fragment.Title,
		Score:      c.Score,
		Excerpt:    Excerpt(c.Fragment.Text, ExcerptLength),
	}
}

// Excerpt returns the first n runes of text, with "..." appended when truncated.
func Excerpt(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + "..."
}

// Answer is the result of one Ask call.
type Answer struct {
	Answer              string   `json:"answer"`
	Sources             []Source `json:"sources"`
	LowConfidence       bool     `json:"low_confidence"`
	Language            string   `json:"language,omitempty"`
	TranslationDegraded bool     `json:"translation_degraded,omitempty"`
	PromptVersion       string   `json:"prompt_version,omitempty"`
	Debug               *Debug   `json:"debug,omitempty"`
}

// Debug captures intermediate pipeline state when requested by the caller.
type Debug struct {
	Question      string         `json:"question"`
	PivotQuestion string         `json:"pivot_question"`
	Queries       []string       `json:"rewrite_queries"`
	Candidates    []DebugMatch   `json:"similarity_chunks"`
	Selected      []DebugMatch   `json:"selected_chunks"`
	Prompt        []DebugMessage `json:"prompt"`
}

// DebugMatch is a compact view of a candidate.
type DebugMatch struct {
	FragmentID ID      `json:"id"`
	Score      float32 `json:"score"`
	Title      string  `json:"title,omitempty"`
	Preview    string  `json:"text_preview"`
}

// DebugMessage is one rendered prompt message.
type DebugMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewDebugMatch builds a DebugMatch from a candidate.
func NewDebugMatch(c Candidate) DebugMatch {
	return DebugMatch{
		FragmentID: c.Fragment.ID,
		Score:      c.Score,
		Title:      c.Fragment.Title,
		Preview:    Excerpt(c.Fragment.Text, 300),
	}
}

// Checkpoint records how far a long-running processor has progressed
// through a collection so it can resume after a restart.
type Checkpoint struct {
	ProcessorType string
	Collection    string
	LastID        ID // Highest fragment ID fully processed
	Processed     int
	UpdatedAt     time.Time
}
