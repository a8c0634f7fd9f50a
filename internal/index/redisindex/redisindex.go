// Package redisindex reads term frequencies from Redis.
//
// Key layout:
//
//	URLSet:<term>      SET of document URLs that contain term
//	TermCounter:<url>  HASH of term -> occurrences of term in url
//
// A lookup reads the URL set for the term, then fetches the term's field
// from every URL's TermCounter in one pipeline.
package redisindex

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/errors"
	pkgredis "github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const (
	backendName          = "redis"
	defaultSharedTimeout = 5 * time.Second
	urlSetPrefix         = "URLSet:"
	termCounterPrefix    = "TermCounter:"
)

// URLSetKey returns the key of the set of URLs containing term.
func URLSetKey(term string) string { return urlSetPrefix + term }

// TermCounterKey returns the key of url's term-count hash.
func TermCounterKey(url string) string { return termCounterPrefix + url }

// Index looks terms up in Redis.
type Index struct {
	client        *pkgredis.Client
	group         singleflight.Group
	sharedTimeout time.Duration
	logger        *slog.Logger
}

func New(client *pkgredis.Client) *Index {
	return &Index{
		client:        client,
		sharedTimeout: defaultSharedTimeout,
		logger:        slog.Default().With("component", "redis-index"),
	}
}

// WithSharedTimeout bounds the round trip that concurrent callers of the
// same term share. Non-positive values are ignored.
func (i *Index) WithSharedTimeout(d time.Duration) *Index {
	if d > 0 {
		i.sharedTimeout = d
	}
	return i
}

// Open resolves the store URL from cfg, connects, and returns the index.
// When the URL resource is missing the error matches
// apperrors.ErrConfigurationMissing and no index is returned; the caller
// decides whether that is fatal. Connection failures match
// apperrors.ErrIndexUnavailable.
func Open(ctx context.Context, cfg config.StoreConfig) (*Index, error) {
	rawURL, err := cfg.RedisURL()
	if err != nil {
		return nil, err
	}
	client, err := pkgredis.NewClientFromURL(ctx, rawURL, cfg.PoolSize)
	if err != nil {
		return nil, apperrors.NewIndexUnavailable(backendName, "", err)
	}
	idx := New(client).WithSharedTimeout(cfg.LookupTimeout)
	idx.logger.Info("connected to index store", "addr", client.Addr())
	return idx, nil
}

// Lookup returns url -> count for term. Concurrent lookups of the same term
// share one round trip. The shared round trip is detached from any single
// caller's cancellation and bounded by the shared timeout instead; each
// caller stops waiting when its own ctx is done.
func (i *Index) Lookup(ctx context.Context, term string) (map[string]int, error) {
	ch := i.group.DoChan(term, func() (any, error) {
		sharedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), i.sharedTimeout)
		defer cancel()
		return i.lookup(sharedCtx, term)
	})
	select {
	case <-ctx.Done():
		return nil, apperrors.NewIndexUnavailable(backendName, term, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		counts := res.Val.(map[string]int)
		if !res.Shared {
			return counts, nil
		}
		// every caller gets its own map
		out := make(map[string]int, len(counts))
		for url, n := range counts {
			out[url] = n
		}
		return out, nil
	}
}

func (i *Index) lookup(ctx context.Context, term string) (map[string]int, error) {
	urls, err := i.client.SMembers(ctx, URLSetKey(term))
	if err != nil {
		return nil, apperrors.NewIndexUnavailable(backendName, term, fmt.Errorf("reading url set: %w", err))
	}
	if len(urls) == 0 {
		return map[string]int{}, nil
	}
	keys := make([]string, len(urls))
	for j, url := range urls {
		keys[j] = TermCounterKey(url)
	}
	values, err := i.client.HGetEach(ctx, keys, term)
	if err != nil {
		return nil, apperrors.NewIndexUnavailable(backendName, term, fmt.Errorf("reading term counters: %w", err))
	}
	counts := make(map[string]int, len(urls))
	for j, v := range values {
		if !v.OK {
			return nil, apperrors.NewMalformedData(backendName, term, "%s is in %s but has no count", urls[j], URLSetKey(term))
		}
		n, err := strconv.Atoi(v.Value)
		if err != nil || n < 0 {
			return nil, apperrors.NewMalformedData(backendName, term, "count %q for %s is not a non-negative integer", v.Value, urls[j])
		}
		counts[urls[j]] = n
	}
	i.logger.Debug("lookup", "term", term, "documents", len(counts))
	return counts, nil
}

func (i *Index) Ping(ctx context.Context) error {
	return i.client.Ping(ctx)
}

func (i *Index) Close() error {
	return i.client.Close()
}
