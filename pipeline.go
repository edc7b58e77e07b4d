package ragtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/ragtime/ai"
	"github.com/poiesic/ragtime/core"
	"github.com/poiesic/ragtime/language"
	"github.com/poiesic/ragtime/prompt"
	"github.com/poiesic/ragtime/rewrite"
	"github.com/poiesic/ragtime/search"
)

// NoResultsAnswer is returned when the collection holds nothing to search.
const NoResultsAnswer = "No relevant information found."

// AskOptions tunes a single Ask call.
type AskOptions struct {
	// Debug attaches intermediate state to the answer.
	Debug bool
	// Language forces the answer language instead of the detected one.
	Language string
}

// Pipeline answers questions over an indexed collection.
// It is safe for concurrent use.
type Pipeline struct {
	config      Config
	translator  *language.Translator
	rewriter    *rewrite.Rewriter
	retriever   *search.Retriever
	searcher    *search.Searcher
	synthesizer *prompt.Synthesizer
	registry    *prompt.Registry
	counter     prompt.TokenCounter
	monitor     search.Monitor
	observer    Observer
	sessions    sessionLocks
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithObserver receives a summary of every Ask call.
func WithObserver(observer Observer) Option {
	return func(p *Pipeline) error {
		if observer != nil {
			p.observer = observer
		}
		return nil
	}
}

// WithMonitor receives the stage callbacks of every search.
func WithMonitor(monitor search.Monitor) Option {
	return func(p *Pipeline) error {
		p.monitor = monitor
		return nil
	}
}

// WithRegistry replaces the built-in prompt templates.
func WithRegistry(registry *prompt.Registry) Option {
	return func(p *Pipeline) error {
		p.registry = registry
		return nil
	}
}

// WithTokenCounter sets the counter used for ContextTokenBudget.
// Default is a tiktoken cl100k_base counter.
func WithTokenCounter(counter prompt.TokenCounter) Option {
	return func(p *Pipeline) error {
		p.counter = counter
		return nil
	}
}

// NewPipeline wires the pipeline stages around provider and index.
// A nil config uses DefaultConfig.
func NewPipeline(provider ai.Provider, index search.VectorIndex, config *Config, opts ...Option) (*Pipeline, error) {
	if provider == nil {
		return nil, ErrProviderRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		config:   *config,
		observer: noopObserver{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	if p.registry == nil {
		registry, err := prompt.DefaultRegistry(config.PromptVersion)
		if err != nil {
			return nil, err
		}
		p.registry = registry
	}
	template, err := p.registry.Get(config.PromptVersion)
	if err != nil {
		return nil, err
	}

	if config.EnableTranslation {
		p.translator, err = language.NewTranslator(provider.Detector(), provider.Generator(),
			language.WithLogger(p.logger),
			language.WithPivot(config.PivotLanguage),
			language.WithMinConfidence(config.MinDetectionConfidence))
		if err != nil {
			return nil, fmt.Errorf("translator: %w", err)
		}
	}

	if config.EnableQueryRewriting {
		p.rewriter, err = rewrite.NewRewriter(provider.Generator(),
			rewrite.WithLogger(p.logger),
			rewrite.WithCount(config.RewriteCount),
			rewrite.WithHistoryTurns(min(config.HistoryLimit, rewrite.DefaultHistoryTurns)))
		if err != nil {
			return nil, fmt.Errorf("rewriter: %w", err)
		}
	}

	retrieverOpts := []search.RetrieverOption{
		search.WithRetrieverLogger(p.logger),
		search.WithCollection(config.Collection),
		search.WithQueryTimeout(config.RetrievalTimeout),
	}
	if config.RetrievalConcurrency > 0 {
		retrieverOpts = append(retrieverOpts, search.WithConcurrency(config.RetrievalConcurrency))
	}
	p.retriever, err = search.NewRetriever(provider.Embedder(), index, retrieverOpts...)
	if err != nil {
		return nil, fmt.Errorf("retriever: %w", err)
	}

	searcherOpts := []search.Option{search.WithLogger(p.logger)}
	if config.EnableReranking {
		reranker, err := search.NewReranker(provider.Generator(), p.logger)
		if err != nil {
			p.retriever.Release()
			return nil, fmt.Errorf("reranker: %w", err)
		}
		searcherOpts = append(searcherOpts, search.WithReranker(reranker))
	}
	p.searcher, err = search.NewSearcher(p.retriever, searcherOpts...)
	if err != nil {
		p.retriever.Release()
		return nil, fmt.Errorf("searcher: %w", err)
	}

	assembler, err := prompt.NewAssembler(template,
		prompt.WithAssemblerLogger(p.logger),
		prompt.WithHistoryLimit(config.HistoryLimit),
		prompt.WithTokenBudget(config.ContextTokenBudget, p.counter),
		prompt.WithSourceTitles(config.SourceTitles))
	if err != nil {
		p.retriever.Release()
		return nil, err
	}
	p.synthesizer, err = prompt.NewSynthesizer(assembler, provider.Generator(),
		prompt.WithSynthesizerLogger(p.logger),
		prompt.WithSampling(config.AnswerTemperature, config.AnswerMaxTokens))
	if err != nil {
		p.retriever.Release()
		return nil, err
	}

	p.logger = p.logger.With("component", "pipeline")
	return p, nil
}

// Close releases the retrieval worker pool.
func (p *Pipeline) Close() {
	p.retriever.Release()
}

// Config returns a copy of the pipeline configuration.
func (p *Pipeline) Config() Config {
	return p.config
}

// Prompts lists the registered prompt templates.
func (p *Pipeline) Prompts() []prompt.VersionInfo {
	return p.registry.Versions()
}

// Ask answers question given the conversation so far.
func (p *Pipeline) Ask(ctx context.Context, question string, history []core.Turn) (*core.Answer, error) {
	return p.AskWithOptions(ctx, question, history, AskOptions{})
}

// AskWithOptions answers question given the conversation so far.
//
// Only answer synthesis can fail the request once the question is
// accepted; translation and rewriting fall back to the untouched question.
// An empty collection yields NoResultsAnswer with LowConfidence set.
func (p *Pipeline) AskWithOptions(ctx context.Context, question string, history []core.Turn, opts AskOptions) (answer *core.Answer, err error) {
	started := time.Now()
	event := AskEvent{Language: p.config.PivotLanguage}
	defer func() {
		event.Elapsed = time.Since(started)
		event.Err = err
		p.observer.ObserveAsk(event)
	}()

	history = core.UsableTurns(history)
	r, err := p.retrieve(ctx, question, history)
	answerLanguage := r.normalized.Language
	if opts.Language != "" {
		answerLanguage = strings.ToLower(strings.TrimSpace(opts.Language))
	}
	event.Language = answerLanguage
	event.Translated = r.normalized.Translated
	event.TranslationDegraded = r.normalized.Degraded
	event.Queries = len(r.queries)
	if err != nil {
		return nil, err
	}
	normalized, queries, result := r.normalized, r.queries, r.result
	event.Outcome = result.Outcome
	event.LowConfidence = result.LowConfidence

	answer = &core.Answer{
		LowConfidence:       result.LowConfidence,
		Language:            answerLanguage,
		TranslationDegraded: normalized.Degraded,
		PromptVersion:       p.synthesizer.Version(),
	}
	if opts.Debug {
		answer.Debug = newDebug(normalized, result)
	}

	translateBack := true
	if result.Outcome == search.OutcomeEmpty {
		p.logger.Info("no candidates in collection", "collection", p.config.Collection, "queries", len(queries))
		answer.Answer = NoResultsAnswer
		answer.Sources = []core.Source{}
	} else {
		synthesis, err := p.synthesizer.Synthesize(ctx, prompt.Request{
			Question:   normalized.Text,
			Candidates: result.Candidates,
			History:    history,
			Language:   answerLanguage,
		})
		if err != nil {
			return nil, err
		}
		answer.Answer = synthesis.Answer
		answer.Sources = synthesis.Sources
		if answer.Debug != nil {
			answer.Debug.Prompt = synthesis.Prompt.DebugMessages()
		}
		translateBack = !p.synthesizer.AnswersInLanguage()
	}

	if p.translator != nil && translateBack {
		text, degraded := p.translator.FromPivot(ctx, answer.Answer, answerLanguage)
		answer.Answer = text
		if degraded {
			answer.TranslationDegraded = true
			event.TranslationDegraded = true
		}
	}

	p.logger.Debug("answered",
		"language", answerLanguage,
		"queries", len(queries),
		"sources", len(answer.Sources),
		"outcome", result.Outcome,
		"elapsed", time.Since(started))

	return answer, nil
}

// Search runs the pipeline up to the similarity filter and returns the
// rewritten queries and candidates without synthesizing an answer.
func (p *Pipeline) Search(ctx context.Context, question string, history []core.Turn) (*search.Result, error) {
	r, err := p.retrieve(ctx, question, core.UsableTurns(history))
	if err != nil {
		return nil, err
	}
	return r.result, nil
}

type retrieval struct {
	normalized language.Normalized
	queries    []string
	result     *search.Result
}

// retrieve screens question, moves it to the pivot language, rewrites it
// and searches. On failure the stages that completed are still reported.
func (p *Pipeline) retrieve(ctx context.Context, question string, history []core.Turn) (retrieval, error) {
	r := retrieval{
		normalized: language.Normalized{
			Original: question,
			Text:     question,
			Language: p.config.PivotLanguage,
		},
	}
	if err := p.screen(question, history); err != nil {
		return r, err
	}

	if p.translator != nil {
		normalized, err := p.translator.Normalize(ctx, question)
		if err != nil {
			return r, err
		}
		r.normalized = normalized
	}

	r.queries = []string{r.normalized.Text}
	if p.rewriter != nil {
		r.queries = p.rewriter.Rewrite(ctx, r.normalized.Text, history)
	}

	result, err := p.searcher.SearchWithMonitor(ctx, r.normalized.Text, r.queries, search.Params{
		TopK:       p.config.TopK,
		Multiplier: p.config.RetrievalMultiplier,
		Threshold:  p.config.SimilarityThreshold,
		Rerank:     p.config.EnableReranking,
	}, p.monitor)
	if err != nil {
		p.logger.Error("search failed", "queries", len(r.queries), "err", err)
		return r, err
	}
	r.result = result
	return r, nil
}

// screen rejects blank questions and injection attempts before any
// upstream call is made.
func (p *Pipeline) screen(question string, history []core.Turn) error {
	if err := core.ValidateQuestion(question); err != nil {
		return core.InvalidInput("pipeline", err)
	}
	if !p.config.EnableSafetyCheck {
		return nil
	}
	if trigger, found := prompt.DetectInjection(question); found {
		p.logger.Warn("question rejected", "trigger", trigger, "length", len(question))
		return core.PromptInjection("pipeline", trigger)
	}
	if trigger, found := prompt.HistoryHasInjection(history); found {
		p.logger.Warn("history rejected", "trigger", trigger, "turns", len(history))
		return core.PromptInjection("pipeline", trigger)
	}
	return nil
}

func newDebug(n language.Normalized, result *search.Result) *core.Debug {
	d := &core.Debug{
		Question:      n.Original,
		PivotQuestion: n.Text,
		Queries:       result.Queries,
		Candidates:    make([]core.DebugMatch, len(result.Fused)),
		Selected:      make([]core.DebugMatch, len(result.Candidates)),
	}
	for i, c := range result.Fused {
		d.Candidates[i] = core.NewDebugMatch(c)
	}
	for i, c := range result.Candidates {
		d.Selected[i] = core.NewDebugMatch(c)
	}
	return d
}
