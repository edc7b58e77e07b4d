package openai

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/ragtime/ai"
	"github.com/sony/gobreaker"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// consecutiveFailuresToTrip opens the breaker after this many failed calls in a row.
const consecutiveFailuresToTrip = 5

// guard applies the shared rate limit, circuit breaker, per-call timeout and
// transient retry policy to every upstream request made through it.
type guard struct {
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	timeout   time.Duration
	attempts  int
	baseDelay time.Duration
	logger    *slog.Logger
}

func newGuard(name string, config *ai.Config) *guard {
	logger := slog.Default().With("component", "openai-guard", "breaker", name)

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailuresToTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// The caller giving up says nothing about upstream health.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &guard{
		limiter:   limiter,
		breaker:   breaker,
		timeout:   config.RequestTimeout,
		attempts:  config.MaxRetries,
		baseDelay: config.RetryBaseDelay,
		logger:    logger,
	}
}

// call runs op with a fresh per-attempt deadline. Errors are normalized
// through langchaingo's OpenAI error mapping so retry decisions can read the
// standardized codes.
func (g *guard) call(ctx context.Context, op func(ctx context.Context) error) error {
	return ai.RetryTransient(ctx, func() error {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		_, err := g.breaker.Execute(func() (interface{}, error) {
			callCtx, cancel := context.WithTimeout(ctx, g.timeout)
			defer cancel()
			if err := op(callCtx); err != nil {
				if errors.Is(err, ai.ErrEmptyResponse) || errors.Is(err, context.Canceled) {
					return nil, err
				}
				return nil, openai.MapError(err)
			}
			return nil, nil
		})
		return err
	}, g.attempts, g.baseDelay)
}
