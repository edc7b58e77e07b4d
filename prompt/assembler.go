package prompt

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/ragtime/ai"
	"github.com/poiesic/ragtime/core"
	"github.com/poiesic/ragtime/language"
	"github.com/tmc/langchaingo/prompts"
)

// DefaultHistoryLimit is the number of recent turns included in a prompt.
const DefaultHistoryLimit = 10

// Request is the input to prompt assembly.
type Request struct {
	// Question in the pivot language.
	Question string
	// Candidates in the order they should appear in the context.
	Candidates []core.Candidate
	// History is the conversation so far, oldest first.
	History []core.Turn
	// Language is the ISO code the answer should be written in.
	// Only templates with a {language} placeholder use it.
	Language string
}

// Prompt is an assembled generation request.
type Prompt struct {
	Version  string
	Messages []ai.Message
	// Candidates that made it into the context after budgeting.
	Candidates []core.Candidate
	// History turns that made it into the prompt after budgeting.
	History []core.Turn
}

// DebugMessages renders the messages for debug output.
func (p *Prompt) DebugMessages() []core.DebugMessage {
	out := make([]core.DebugMessage, len(p.Messages))
	for i, m := range p.Messages {
		out[i] = core.DebugMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}

// Assembler renders a versioned template into chat messages.
type Assembler struct {
	template     Template
	system       prompts.PromptTemplate
	human        prompts.PromptTemplate
	historyLimit int
	tokenBudget  int
	counter      TokenCounter
	titles       bool
	logger       *slog.Logger
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler) error

// WithAssemblerLogger sets a custom logger.
// Default is slog.Default().
func WithAssemblerLogger(logger *slog.Logger) AssemblerOption {
	return func(a *Assembler) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// WithHistoryLimit sets how many of the most recent usable turns are
// included. 0 omits history. Default is 10.
func WithHistoryLimit(n int) AssemblerOption {
	return func(a *Assembler) error {
		a.historyLimit = max(n, 0)
		return nil
	}
}

// WithTokenBudget caps the tokens spent on context and history.
// 0 means unlimited.
func WithTokenBudget(tokens int, counter TokenCounter) AssemblerOption {
	return func(a *Assembler) error {
		a.tokenBudget = max(tokens, 0)
		if counter != nil {
			a.counter = counter
		}
		return nil
	}
}

// WithSourceTitles prefixes each context fragment with its source title.
func WithSourceTitles(enabled bool) AssemblerOption {
	return func(a *Assembler) error {
		a.titles = enabled
		return nil
	}
}

// NewAssembler creates an assembler for template.
func NewAssembler(template Template, opts ...AssemblerOption) (*Assembler, error) {
	if err := template.validate(); err != nil {
		return nil, err
	}

	a := &Assembler{
		template: template,
		system: prompts.PromptTemplate{
			Template:       template.System,
			InputVariables: []string{"context", "language"},
			TemplateFormat: prompts.TemplateFormatFString,
		},
		human: prompts.PromptTemplate{
			Template:       template.Human,
			InputVariables: []string{"question"},
			TemplateFormat: prompts.TemplateFormatFString,
		},
		historyLimit: DefaultHistoryLimit,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	if a.tokenBudget > 0 && a.counter == nil {
		a.counter = NewTiktokenCounter()
	}
	a.logger = a.logger.With("component", "assembler", "prompt_version", template.Version)

	return a, nil
}

// Version returns the template version this assembler renders.
func (a *Assembler) Version() string {
	return a.template.Version
}

// Build renders req into a system message, the recent history and the
// question.
func (a *Assembler) Build(req Request) (*Prompt, error) {
	candidates := req.Candidates
	history := a.recentHistory(req.History)

	if a.tokenBudget > 0 {
		candidates, history = a.fitBudget(candidates, history)
	}

	lang := req.Language
	if lang == "" {
		lang = language.Pivot
	}
	system, err := a.system.Format(map[string]any{
		"context":  a.renderContext(candidates),
		"language": language.LanguageName(lang),
	})
	if err != nil {
		return nil, fmt.Errorf("render system prompt %s: %w", a.template.Version, err)
	}
	human, err := a.human.Format(map[string]any{"question": req.Question})
	if err != nil {
		return nil, fmt.Errorf("render question prompt %s: %w", a.template.Version, err)
	}

	messages := make([]ai.Message, 0, len(history)+2)
	messages = append(messages, ai.SystemMessage(system))
	for _, t := range history {
		if t.Role == core.RoleAssistant {
			messages = append(messages, ai.AssistantMessage(t.Content))
		} else {
			messages = append(messages, ai.UserMessage(t.Content))
		}
	}
	messages = append(messages, ai.UserMessage(human))

	return &Prompt{
		Version:    a.template.Version,
		Messages:   messages,
		Candidates: candidates,
		History:    history,
	}, nil
}

func (a *Assembler) recentHistory(turns []core.Turn) []core.Turn {
	if a.historyLimit == 0 {
		return nil
	}
	usable := core.UsableTurns(turns)
	if len(usable) > a.historyLimit {
		usable = usable[len(usable)-a.historyLimit:]
	}
	return usable
}

func (a *Assembler) renderFragment(c core.Candidate) string {
	if a.titles && c.Fragment.Title != "" {
		return fmt.Sprintf("From '%s':\n%s", c.Fragment.Title, c.Fragment.Text)
	}
	return c.Fragment.Text
}

func (a *Assembler) renderContext(candidates []core.Candidate) string {
	parts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		parts = append(parts, a.renderFragment(c))
	}
	return strings.Join(parts, "\n\n")
}

// fitBudget drops context fragments from the tail, keeping at least one,
// then the oldest history turns until the total fits.
func (a *Assembler) fitBudget(candidates []core.Candidate, history []core.Turn) ([]core.Candidate, []core.Turn) {
	fragmentTokens := make([]int, len(candidates))
	total := 0
	for i, c := range candidates {
		fragmentTokens[i] = a.counter.Count(a.renderFragment(c))
		total += fragmentTokens[i]
	}
	historyTokens := make([]int, len(history))
	for i, t := range history {
		historyTokens[i] = a.counter.Count(t.Content)
		total += historyTokens[i]
	}
	if total <= a.tokenBudget {
		return candidates, history
	}

	keep := len(candidates)
	for keep > 1 && total > a.tokenBudget {
		keep--
		total -= fragmentTokens[keep]
	}
	drop := 0
	for drop < len(history) && total > a.tokenBudget {
		total -= historyTokens[drop]
		drop++
	}

	a.logger.Debug("prompt trimmed to token budget",
		"budget", a.tokenBudget,
		"fragments", keep,
		"dropped_fragments", len(candidates)-keep,
		"dropped_turns", drop)

	return candidates[:keep], history[drop:]
}
