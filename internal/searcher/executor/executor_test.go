package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/searcher/resultset"
	apperrors "github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTracker struct {
	mu     sync.Mutex
	events []analytics.QueryEvent
}

func (r *recordingTracker) Track(event analytics.QueryEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func scenarioIndex(t *testing.T) *index.Memory {
	t.Helper()
	m := index.NewMemory()
	for _, p := range []struct {
		term, url string
		count     int
	}{
		{"a", "doc1", 3},
		{"a", "doc2", 1},
		{"b", "doc2", 2},
		{"b", "doc3", 4},
		{"solo", "doc1", 5},
	} {
		require.NoError(t, m.Add(p.term, p.url, p.count))
	}
	return m
}

func entries(pairs ...any) []resultset.Entry {
	out := make([]resultset.Entry, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, resultset.Entry{ID: pairs[i].(string), Score: pairs[i+1].(int)})
	}
	return out
}

func TestSearch(t *testing.T) {
	e := New(scenarioIndex(t), Options{})

	rs, err := e.Search(context.Background(), "  A ")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"doc1": 3, "doc2": 1}, rs.Scores())
}

func TestSearchUnindexedTermIsEmpty(t *testing.T) {
	e := New(scenarioIndex(t), Options{})

	rs, err := e.Search(context.Background(), "haskell")
	require.NoError(t, err)
	assert.Equal(t, 0, rs.Len())
}

func TestSearchRejectsEmptyTerm(t *testing.T) {
	e := New(scenarioIndex(t), Options{})

	_, err := e.Search(context.Background(), "   ")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestQueryOperations(t *testing.T) {
	e := New(scenarioIndex(t), Options{})
	ctx := context.Background()

	tests := []struct {
		op   Op
		want map[string]int
	}{
		{OpAnd, map[string]int{"doc2": 3}},
		{OpOr, map[string]int{"doc1": 3, "doc2": 3, "doc3": 4}},
		{OpMinus, map[string]int{"doc1": 3}},
	}
	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			rs, err := e.Query(ctx, tt.op, "a", "b")
			require.NoError(t, err)
			assert.Equal(t, tt.want, rs.Scores())
		})
	}
}

func TestQueryWithUnindexedOperand(t *testing.T) {
	e := New(scenarioIndex(t), Options{})
	ctx := context.Background()

	or, err := e.Query(ctx, OpOr, "missing", "solo")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"doc1": 5}, or.Scores())

	and, err := e.Query(ctx, OpAnd, "missing", "solo")
	require.NoError(t, err)
	assert.Equal(t, 0, and.Len())

	minus, err := e.Query(ctx, OpMinus, "missing", "solo")
	require.NoError(t, err)
	assert.Equal(t, 0, minus.Len())
}

func TestQueryFoldsLeftToRight(t *testing.T) {
	e := New(scenarioIndex(t), Options{})

	rs, err := e.Query(context.Background(), OpMinus, "a", "b", "solo")
	require.NoError(t, err)
	assert.Equal(t, 0, rs.Len())

	rs, err = e.Query(context.Background(), OpOr, "a", "b", "solo")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"doc1": 8, "doc2": 3, "doc3": 4}, rs.Scores())
}

func TestQueryUsesConfiguredPolicy(t *testing.T) {
	e := New(scenarioIndex(t), Options{Combine: resultset.Max})

	rs, err := e.Query(context.Background(), OpOr, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"doc1": 3, "doc2": 2, "doc3": 4}, rs.Scores())
}

func TestQueryArity(t *testing.T) {
	e := New(scenarioIndex(t), Options{})
	ctx := context.Background()

	_, err := e.Query(ctx, OpTerm, "a", "b")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	_, err = e.Query(ctx, OpAnd)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	_, err = e.Query(ctx, OpReport, "a", "b")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	_, err = e.Query(ctx, Op("XOR"), "a", "b")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestParseOp(t *testing.T) {
	op, err := ParseOp("minus")
	require.NoError(t, err)
	assert.Equal(t, OpMinus, op)

	_, err = ParseOp("xor")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestReportSections(t *testing.T) {
	e := New(scenarioIndex(t), Options{})

	sections, err := e.Report(context.Background(), "a", "b")
	require.NoError(t, err)
	require.Len(t, sections, 5)

	assert.Equal(t, resultset.Section{Title: "a", Entries: entries("doc2", 1, "doc1", 3)}, sections[0])
	assert.Equal(t, resultset.Section{Title: "b", Entries: entries("doc2", 2, "doc3", 4)}, sections[1])
	assert.Equal(t, resultset.Section{Title: "a AND b", Entries: entries("doc2", 3)}, sections[2])
	assert.Equal(t, resultset.Section{Title: "a OR b", Entries: entries("doc1", 3, "doc2", 3, "doc3", 4)}, sections[3])
	assert.Equal(t, resultset.Section{Title: "a MINUS b", Entries: entries("doc1", 3)}, sections[4])
}

func TestIndexErrorsPropagateUnchanged(t *testing.T) {
	lookupErr := apperrors.NewIndexUnavailable("redis", "b", errors.New("connection refused"))
	client := index.ClientFunc(func(ctx context.Context, term string) (map[string]int, error) {
		if term == "b" {
			return nil, lookupErr
		}
		return map[string]int{"doc1": 1}, nil
	})
	e := New(client, Options{})

	_, err := e.Query(context.Background(), OpAnd, "a", "b")
	assert.Same(t, lookupErr, err)

	sections, err := e.Report(context.Background(), "a", "b")
	assert.Nil(t, sections)
	assert.True(t, errors.Is(err, apperrors.ErrIndexUnavailable))
}

func TestSearchAllRespectsConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	client := index.ClientFunc(func(ctx context.Context, term string) (map[string]int, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return map[string]int{term: 1}, nil
	})
	e := New(client, Options{MaxConcurrentLookups: 2})

	sets, err := e.SearchAll(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	require.Len(t, sets, 5)
	for i, term := range []string{"a", "b", "c", "d", "e"} {
		assert.True(t, sets[i].Contains(term))
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestSearchAllCancelsSiblingsOnFailure(t *testing.T) {
	boom := apperrors.NewIndexUnavailable("memory", "bad", errors.New("boom"))
	client := index.ClientFunc(func(ctx context.Context, term string) (map[string]int, error) {
		if term == "bad" {
			return nil, boom
		}
		select {
		case <-ctx.Done():
			return nil, apperrors.NewIndexUnavailable("memory", term, ctx.Err())
		case <-time.After(time.Second):
			return map[string]int{}, nil
		}
	})
	e := New(client, Options{MaxConcurrentLookups: 2})

	start := time.Now()
	_, err := e.SearchAll(context.Background(), []string{"slow", "bad"})
	assert.Same(t, boom, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestQueryRecordsMetricsAndEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	tracker := &recordingTracker{}
	e := New(scenarioIndex(t), Options{Metrics: m, Tracker: tracker})

	ctx := logger.WithQueryID(context.Background(), "q-42")
	_, err := e.Query(ctx, OpAnd, "a", "b")
	require.NoError(t, err)
	_, err = e.Query(context.Background(), OpAnd, "a", "missing")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("and", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("and", "zero_result")))

	require.Len(t, tracker.events, 2)
	first := tracker.events[0]
	assert.Equal(t, "q-42", first.QueryID)
	assert.Equal(t, "AND", first.Op)
	assert.Equal(t, []string{"a", "b"}, first.Terms)
	assert.Equal(t, 1, first.Results)
	assert.False(t, first.Failed)
	assert.NotEmpty(t, tracker.events[1].QueryID)
}

func TestFailedQueryIsTracked(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	tracker := &recordingTracker{}
	client := index.ClientFunc(func(ctx context.Context, term string) (map[string]int, error) {
		return nil, apperrors.NewIndexUnavailable("redis", term, errors.New("down"))
	})
	e := New(client, Options{Metrics: m, Tracker: tracker})

	_, err := e.Report(context.Background(), "java", "programming")
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("report", "error")))
	require.Len(t, tracker.events, 1)
	assert.True(t, tracker.events[0].Failed)
	assert.Equal(t, "REPORT", tracker.events[0].Op)
}
