package index

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/resilience"
)

// ResilientConfig configures NewResilient. Zero values take the resilience
// package defaults; a zero Timeout disables the per-attempt deadline.
type ResilientConfig struct {
	Name    string
	Timeout time.Duration
	Retry   resilience.RetryConfig
	Breaker resilience.CircuitBreakerConfig
}

// Resilient wraps a Client with a per-attempt timeout, retries with
// backoff, and a circuit breaker. Malformed data is neither retried nor
// counted against the breaker, since asking again returns the same bytes.
type Resilient struct {
	next    Client
	name    string
	timeout time.Duration
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
}

func NewResilient(next Client, cfg ResilientConfig) *Resilient {
	if cfg.Name == "" {
		cfg.Name = "index"
	}
	cfg.Retry.Retryable = isTransient
	cfg.Breaker.IsFailure = isTransient
	return &Resilient{
		next:    next,
		name:    cfg.Name,
		timeout: cfg.Timeout,
		retry:   cfg.Retry,
		breaker: resilience.NewCircuitBreaker(cfg.Name, cfg.Breaker),
	}
}

func isTransient(err error) bool {
	return !errors.Is(err, apperrors.ErrMalformedData)
}

// Lookup calls the wrapped client. Every error it returns matches
// apperrors.ErrIndexUnavailable.
func (r *Resilient) Lookup(ctx context.Context, term string) (map[string]int, error) {
	var counts map[string]int
	err := resilience.Retry(ctx, "lookup "+term, r.retry, func() error {
		return r.breaker.Execute(func() error {
			var attempt map[string]int
			err := resilience.WithTimeout(ctx, r.timeout, r.name+" lookup", func(ctx context.Context) error {
				var err error
				attempt, err = r.next.Lookup(ctx, term)
				return err
			})
			if err != nil {
				return err
			}
			counts = attempt
			return nil
		})
	})
	if err != nil {
		return nil, apperrors.NewIndexUnavailable(r.name, term, err)
	}
	return counts, nil
}

// BreakerState exposes the breaker for health checks.
func (r *Resilient) BreakerState() resilience.State {
	return r.breaker.GetState()
}
