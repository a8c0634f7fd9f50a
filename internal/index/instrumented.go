package index

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/metrics"
)

// Instrumented records lookup counts, latency, and result sizes for the
// wrapped client under the given backend label.
type Instrumented struct {
	next    Client
	backend string
	metrics *metrics.Metrics
}

func NewInstrumented(next Client, backend string, m *metrics.Metrics) *Instrumented {
	return &Instrumented{next: next, backend: backend, metrics: m}
}

func (i *Instrumented) Lookup(ctx context.Context, term string) (map[string]int, error) {
	start := time.Now()
	counts, err := i.next.Lookup(ctx, term)
	i.metrics.LookupLatency.WithLabelValues(i.backend).Observe(time.Since(start).Seconds())

	outcome := "hit"
	switch {
	case err != nil:
		outcome = "error"
	case len(counts) == 0:
		outcome = "empty"
	}
	i.metrics.LookupsTotal.WithLabelValues(i.backend, outcome).Inc()
	if err == nil {
		i.metrics.LookupResultSize.Observe(float64(len(counts)))
	}
	return counts, err
}
