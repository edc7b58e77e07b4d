package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/poiesic/ragtime"
	"github.com/poiesic/ragtime/core"
	"github.com/poiesic/ragtime/search"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "ragtime"

// OutcomeCanceled labels asks abandoned by the caller.
const OutcomeCanceled = "canceled"

// Collector records asks and searches.
type Collector struct {
	asks                *prometheus.CounterVec
	askDuration         *prometheus.HistogramVec
	translations        *prometheus.CounterVec
	upstreamErrors      *prometheus.CounterVec
	searches            *prometheus.CounterVec
	searchDuration      prometheus.Histogram
	queries             prometheus.Histogram
	retrievedCandidates prometheus.Histogram
	fusedCandidates     prometheus.Histogram
	fallbacks           prometheus.Counter
}

var (
	_ search.Monitor   = (*Collector)(nil)
	_ ragtime.Observer = (*Collector)(nil)
)

// NewCollector registers the pipeline metrics on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		asks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "asks_total",
			Help:      "Questions answered, by filter outcome or error kind",
		}, []string{"outcome"}),
		askDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "ask_duration_seconds",
			Help:      "End to end time to answer a question",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}, []string{"outcome"}),
		translations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "translations_total",
			Help:      "Questions outside the pivot language, by result",
		}, []string{"result"}),
		upstreamErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "upstream_errors_total",
			Help:      "Requests failed by an unavailable upstream, by component",
		}, []string{"component"}),
		searches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "search",
			Name:      "total",
			Help:      "Searches run, by filter outcome",
		}, []string{"outcome"}),
		searchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Time spent retrieving, fusing and filtering",
			Buckets:   prometheus.DefBuckets,
		}),
		queries: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "search",
			Name:      "queries",
			Help:      "Queries per search after rewriting",
			Buckets:   []float64{1, 2, 3, 4, 5, 8},
		}),
		retrievedCandidates: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "search",
			Name:      "retrieved_candidates",
			Help:      "Candidates returned by all queries before fusion",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
		fusedCandidates: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "search",
			Name:      "fused_candidates",
			Help:      "Distinct candidates after fusion",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
		fallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "search",
			Name:      "fallbacks_total",
			Help:      "Searches where no candidate met the threshold",
		}),
	}
}

// ObserveAsk implements ragtime.Observer.
func (c *Collector) ObserveAsk(e ragtime.AskEvent) {
	outcome := askOutcome(e)
	c.asks.WithLabelValues(outcome).Inc()
	c.askDuration.WithLabelValues(outcome).Observe(e.Elapsed.Seconds())

	switch {
	case e.Translated:
		c.translations.WithLabelValues("translated").Inc()
	case e.TranslationDegraded:
		c.translations.WithLabelValues("degraded").Inc()
	}

	if core.KindOf(e.Err) == core.KindUpstreamUnavailable {
		c.upstreamErrors.WithLabelValues(component(e.Err)).Inc()
	}
}

func askOutcome(e ragtime.AskEvent) string {
	if e.Err == nil {
		return string(e.Outcome)
	}
	if errors.Is(e.Err, context.Canceled) || errors.Is(e.Err, context.DeadlineExceeded) {
		return OutcomeCanceled
	}
	return string(core.KindOf(e.Err))
}

func component(err error) string {
	var e *core.Error
	if errors.As(err, &e) && e.Component != "" {
		return e.Component
	}
	return "unknown"
}

// Start implements search.Monitor.
func (c *Collector) Start(queries []string) {
	c.queries.Observe(float64(len(queries)))
}

// AfterRetrieve implements search.Monitor.
func (c *Collector) AfterRetrieve(lists [][]core.Candidate) {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	c.retrievedCandidates.Observe(float64(n))
}

// AfterFusion implements search.Monitor.
func (c *Collector) AfterFusion(fused []core.Candidate) {
	c.fusedCandidates.Observe(float64(len(fused)))
}

// AfterFilter implements search.Monitor.
func (c *Collector) AfterFilter(result search.FilterResult) {
	if result.Outcome == search.OutcomeFallback {
		c.fallbacks.Inc()
	}
}

// Finish implements search.Monitor.
func (c *Collector) Finish(result *search.Result, elapsed time.Duration, err error) {
	c.searchDuration.Observe(elapsed.Seconds())
	if err != nil || result == nil {
		c.searches.WithLabelValues("error").Inc()
		return
	}
	c.searches.WithLabelValues(string(result.Outcome)).Inc()
}
