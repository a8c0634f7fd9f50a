package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/index/pgindex"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/index/redisindex"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/searcher/render"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/searcher/resultset"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/resilience"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

var defaultTerms = []string{"java", "programming"}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type store interface {
	index.Client
	health.Pinger
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("wikisearch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file (defaults and WS_* env when empty)")
	opName := fs.String("op", "report", "operation: report, term, and, or, minus")
	descending := fs.Bool("desc", false, "print highest scores first")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: wikisearch [-config path] [-op report|and|or|minus|term] [-desc] term...")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	op, err := executor.ParseOp(*opName)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	terms := fs.Args()
	if len(terms) == 0 {
		terms = defaultTerms
	}
	if op == executor.OpReport && len(terms) != 2 {
		fmt.Fprintf(stderr, "report needs exactly two terms, got %d\n", len(terms))
		return exitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return exitUsage
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	combine, err := resultset.PolicyByName(cfg.Search.CombinePolicy)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		if hint, ok := apperrors.Hint(err); ok {
			fmt.Fprintln(stderr, hint)
			return exitUsage
		}
		slog.Error("failed to open index store", "backend", cfg.Store.Backend, "error", err)
		return exitFailure
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	m.CircuitBreakerState.WithLabelValues(cfg.Store.Backend).Set(float64(resilience.StateClosed))

	client := index.NewResilient(
		index.NewInstrumented(st, cfg.Store.Backend, m),
		resilientConfig(cfg.Store, m),
	)

	checker := health.NewChecker()
	checker.Register("index_store", health.PingCheck(st, health.StatusDown))
	checker.Register("circuit_breaker", func(ctx context.Context) health.ComponentHealth {
		if state := client.BreakerState(); state != resilience.StateClosed {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: state.String()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	tracker := analytics.Discard
	if cfg.Analytics.Enabled {
		producer := kafka.NewProducer(cfg.Analytics.Brokers, cfg.Analytics.Topic)
		defer producer.Close()
		collector := analytics.NewCollector(producer, cfg.Analytics.BufferSize, 0)
		collector.Start(ctx)
		defer collector.Close()
		tracker = collector
		checker.Register("kafka", health.PingCheck(producer, health.StatusDegraded))
		slog.Info("analytics enabled", "topic", cfg.Analytics.Topic, "brokers", cfg.Analytics.Brokers)
	}

	var shutdownMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		var handler http.Handler = metrics.NewMux(reg, checker)
		handler = middleware.Metrics(m)(handler)
		handler = middleware.Timeout(5 * time.Second)(handler)
		shutdownMetrics = metrics.StartServer(cfg.Metrics.Port, handler)
	}

	exec := executor.New(client, executor.Options{
		Combine:              combine,
		MaxConcurrentLookups: cfg.Search.MaxConcurrentLookups,
		Metrics:              m,
		Tracker:              tracker,
	})

	code := execute(ctx, exec, op, terms, *descending, stdout)

	if shutdownMetrics != nil {
		slog.Info("serving metrics until interrupted", "port", cfg.Metrics.Port)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown error", "error", err)
		}
	}
	return code
}

func execute(ctx context.Context, exec *executor.Executor, op executor.Op, terms []string, descending bool, stdout io.Writer) int {
	var err error
	if op == executor.OpReport {
		var sections []resultset.Section
		sections, err = exec.Report(ctx, terms[0], terms[1])
		if err == nil {
			if descending {
				for i := range sections {
					sections[i].Entries = highestFirst(sections[i].Entries)
				}
			}
			err = render.Report(stdout, sections)
		}
	} else {
		var rs *resultset.ResultSet
		rs, err = exec.Query(ctx, op, terms...)
		if err == nil {
			entries := rs.SortedEntries()
			if descending {
				entries = rs.SortedEntriesDescending()
			}
			err = render.Entries(stdout, entries)
		}
	}
	if err != nil {
		slog.Error("query failed", "op", op, "terms", terms, "error", err)
		if errors.Is(err, apperrors.ErrInvalidInput) {
			return exitUsage
		}
		return exitFailure
	}
	return exitOK
}

func openStore(ctx context.Context, cfg *config.Config) (store, func() error, error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		idx, err := pgindex.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return idx, idx.Close, nil
	case config.BackendMemory:
		idx, err := index.LoadFixture(cfg.Store.FixturePath)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("loaded index fixture",
			"path", cfg.Store.FixturePath,
			"terms", idx.TermCount(),
		)
		return idx, func() error { return nil }, nil
	default:
		idx, err := redisindex.Open(ctx, cfg.Store)
		if err != nil {
			return nil, nil, err
		}
		return idx, idx.Close, nil
	}
}

func resilientConfig(cfg config.StoreConfig, m *metrics.Metrics) index.ResilientConfig {
	return index.ResilientConfig{
		Name:    cfg.Backend,
		Timeout: cfg.LookupTimeout,
		Retry: resilience.RetryConfig{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
		},
		Breaker: resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			ResetTimeout:     cfg.Breaker.ResetTimeout,
			OnStateChange: func(name string, from, to resilience.State) {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			},
		},
	}
}

// highestFirst re-sorts an ascending listing highest first, keeping ties in
// the same relative order as SortedEntriesDescending.
func highestFirst(entries []resultset.Entry) []resultset.Entry {
	return resultset.FromEntries(entries).SortedEntriesDescending()
}
