// Package executor runs boolean queries: it looks terms up through an
// index.Client, turns each lookup into a ResultSet and folds the sets with
// AND, OR or MINUS.
package executor

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/index/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/searcher/resultset"
	apperrors "github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/tracing"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type Op string

const (
	OpTerm   Op = "TERM"
	OpAnd    Op = "AND"
	OpOr     Op = "OR"
	OpMinus  Op = "MINUS"
	OpReport Op = "REPORT"
)

// ParseOp accepts an operation name in any case.
func ParseOp(name string) (Op, error) {
	switch op := Op(strings.ToUpper(strings.TrimSpace(name))); op {
	case OpTerm, OpAnd, OpOr, OpMinus, OpReport:
		return op, nil
	default:
		return "", apperrors.Invalidf("unknown operation %q", name)
	}
}

const defaultMaxConcurrentLookups = 4

// Options configures an Executor. Nil fields are disabled.
type Options struct {
	Combine              resultset.CombineFunc
	MaxConcurrentLookups int
	Metrics              *metrics.Metrics
	Tracker              analytics.Tracker
}

type Executor struct {
	client  index.Client
	combine resultset.CombineFunc
	limit   int
	metrics *metrics.Metrics
	tracker analytics.Tracker
	logger  *slog.Logger
}

func New(client index.Client, opts Options) *Executor {
	if opts.Combine == nil {
		opts.Combine = resultset.Sum
	}
	if opts.MaxConcurrentLookups <= 0 {
		opts.MaxConcurrentLookups = defaultMaxConcurrentLookups
	}
	if opts.Tracker == nil {
		opts.Tracker = analytics.Discard
	}
	return &Executor{
		client:  client,
		combine: opts.Combine,
		limit:   opts.MaxConcurrentLookups,
		metrics: opts.Metrics,
		tracker: opts.Tracker,
		logger:  logger.WithComponent("query-executor"),
	}
}

// Search returns the result set of a single term.
func (e *Executor) Search(ctx context.Context, term string) (*resultset.ResultSet, error) {
	return e.Query(ctx, OpTerm, term)
}

// SearchAll looks every term up concurrently and returns the sets in input
// order. The first failure cancels the remaining lookups and is returned as
// the index reported it.
func (e *Executor) SearchAll(ctx context.Context, terms []string) ([]*resultset.ResultSet, error) {
	normalized, err := normalizeTerms(terms)
	if err != nil {
		return nil, err
	}
	return e.searchAll(ctx, normalized)
}

// Query looks the terms up and folds them left to right with op. OpTerm
// takes exactly one term; the other operations take one or more.
func (e *Executor) Query(ctx context.Context, op Op, terms ...string) (*resultset.ResultSet, error) {
	if err := validateArity(op, terms); err != nil {
		return nil, err
	}
	normalized, err := normalizeTerms(terms)
	if err != nil {
		return nil, err
	}

	ctx, span, start := e.begin(ctx, op, normalized)
	sets, err := e.searchAll(ctx, normalized)
	var result *resultset.ResultSet
	if err == nil {
		result = fold(op, sets)
	}
	e.finish(ctx, span, op, normalized, start, result.Len, err)
	return result, err
}

// Report produces the five sections of the classic two-term comparison:
// each term alone, then AND, OR and MINUS of the pair. Entries are in
// ascending score order.
func (e *Executor) Report(ctx context.Context, term1, term2 string) ([]resultset.Section, error) {
	normalized, err := normalizeTerms([]string{term1, term2})
	if err != nil {
		return nil, err
	}
	t1, t2 := normalized[0], normalized[1]

	ctx, span, start := e.begin(ctx, OpReport, normalized)
	sets, err := e.searchAll(ctx, normalized)
	var sections []resultset.Section
	if err == nil {
		a, b := sets[0], sets[1]
		sections = []resultset.Section{
			{Title: t1, Entries: a.SortedEntries()},
			{Title: t2, Entries: b.SortedEntries()},
			{Title: t1 + " AND " + t2, Entries: a.Intersect(b).SortedEntries()},
			{Title: t1 + " OR " + t2, Entries: a.Union(b).SortedEntries()},
			{Title: t1 + " MINUS " + t2, Entries: a.Difference(b).SortedEntries()},
		}
	}
	size := func() int {
		if len(sections) == 0 {
			return 0
		}
		return len(sections[3].Entries)
	}
	e.finish(ctx, span, OpReport, normalized, start, size, err)
	return sections, err
}

func (e *Executor) searchAll(ctx context.Context, terms []string) ([]*resultset.ResultSet, error) {
	sets := make([]*resultset.ResultSet, len(terms))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit)
	for i, term := range terms {
		g.Go(func() error {
			rs, err := e.lookup(gctx, term)
			if err != nil {
				return err
			}
			sets[i] = rs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sets, nil
}

func (e *Executor) lookup(ctx context.Context, term string) (*resultset.ResultSet, error) {
	ctx, span := tracing.StartSpan(ctx, "lookup", "")
	defer span.End()
	span.SetAttr("term", term)

	counts, err := e.client.Lookup(ctx, term)
	if err != nil {
		span.SetAttr("error", err.Error())
		return nil, err
	}
	span.SetAttr("documents", len(counts))
	logger.FromContext(ctx).Debug("term looked up", "term", term, "documents", len(counts))
	return resultset.New(counts, resultset.WithCombine(e.combine)), nil
}

func (e *Executor) begin(ctx context.Context, op Op, terms []string) (context.Context, *tracing.Span, time.Time) {
	queryID := logger.QueryID(ctx)
	if queryID == "" {
		queryID = uuid.New().String()
		ctx = logger.WithQueryID(ctx, queryID)
	}
	ctx, span := tracing.StartSpan(ctx, "query", queryID)
	span.SetAttr("op", string(op))
	span.SetAttr("terms", terms)
	return ctx, span, time.Now()
}

func (e *Executor) finish(ctx context.Context, span *tracing.Span, op Op, terms []string, start time.Time, size func() int, err error) {
	elapsed := time.Since(start)
	span.End()
	log := e.logger.With("query_id", logger.QueryID(ctx))
	span.Log(ctx, log)

	results := 0
	resultType := "error"
	if err == nil {
		results = size()
		resultType = "hit"
		if results == 0 {
			resultType = "zero_result"
		}
	}

	if e.metrics != nil {
		opLabel := strings.ToLower(string(op))
		e.metrics.QueriesTotal.WithLabelValues(opLabel, resultType).Inc()
		e.metrics.QueryLatency.WithLabelValues(opLabel).Observe(elapsed.Seconds())
		if err == nil {
			e.metrics.QueryResultSize.WithLabelValues(opLabel).Observe(float64(results))
		}
	}

	e.tracker.Track(analytics.QueryEvent{
		QueryID:   logger.QueryID(ctx),
		Op:        string(op),
		Terms:     terms,
		Results:   results,
		LatencyMs: elapsed.Milliseconds(),
		Failed:    err != nil,
		Timestamp: start.UTC(),
	})

	if err != nil {
		log.Error("query failed", "op", op, "terms", terms, "error", err)
		return
	}
	log.Info("query executed",
		"op", op,
		"terms", terms,
		"results", results,
		"latency_ms", elapsed.Milliseconds(),
	)
}

func fold(op Op, sets []*resultset.ResultSet) *resultset.ResultSet {
	acc := sets[0]
	for _, next := range sets[1:] {
		switch op {
		case OpAnd:
			acc = acc.Intersect(next)
		case OpOr:
			acc = acc.Union(next)
		case OpMinus:
			acc = acc.Difference(next)
		}
	}
	return acc
}

func validateArity(op Op, terms []string) error {
	switch op {
	case OpTerm:
		if len(terms) != 1 {
			return apperrors.Invalidf("%s takes exactly one term, got %d", op, len(terms))
		}
	case OpAnd, OpOr, OpMinus:
		if len(terms) == 0 {
			return apperrors.Invalidf("%s needs at least one term", op)
		}
	case OpReport:
		return apperrors.Invalidf("use Report for %s", op)
	default:
		return apperrors.Invalidf("unknown operation %q", op)
	}
	return nil
}

func normalizeTerms(terms []string) ([]string, error) {
	out := make([]string, len(terms))
	for i, term := range terms {
		out[i] = tokenizer.Normalize(term)
		if out[i] == "" {
			return nil, apperrors.Invalidf("term %d is empty", i+1)
		}
	}
	return out, nil
}
