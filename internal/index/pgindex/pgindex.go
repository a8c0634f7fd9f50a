// Package pgindex reads term frequencies from a PostgreSQL table:
//
//	CREATE TABLE term_counts (
//	    term  TEXT    NOT NULL,
//	    url   TEXT    NOT NULL,
//	    count INTEGER NOT NULL,
//	    PRIMARY KEY (term, url)
//	);
package pgindex

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/postgres"
)

const (
	backendName = "postgres"
	lookupQuery = `SELECT url, count FROM term_counts WHERE term = $1 ORDER BY url`
)

type Index struct {
	db     *sql.DB
	logger *slog.Logger
}

func New(db *sql.DB) *Index {
	return &Index{
		db:     db,
		logger: slog.Default().With("component", "postgres-index"),
	}
}

// Open connects using cfg. Connection failures match
// apperrors.ErrIndexUnavailable.
func Open(ctx context.Context, cfg config.PostgresConfig) (*Index, error) {
	client, err := postgres.New(ctx, cfg)
	if err != nil {
		return nil, apperrors.NewIndexUnavailable(backendName, "", err)
	}
	idx := New(client.DB)
	idx.logger.Info("connected to index store", "host", cfg.Host, "database", cfg.Database)
	return idx, nil
}

// Lookup returns url -> count for term. The rows are read to completion
// before anything is returned.
func (i *Index) Lookup(ctx context.Context, term string) (map[string]int, error) {
	rows, err := i.db.QueryContext(ctx, lookupQuery, term)
	if err != nil {
		return nil, apperrors.NewIndexUnavailable(backendName, term, fmt.Errorf("querying term_counts: %w", err))
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			url   string
			count sql.NullInt64
		)
		if err := rows.Scan(&url, &count); err != nil {
			return nil, apperrors.NewMalformedData(backendName, term, "scanning row: %v", err)
		}
		if !count.Valid || count.Int64 < 0 {
			return nil, apperrors.NewMalformedData(backendName, term, "invalid count for %s", url)
		}
		counts[url] = int(count.Int64)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewIndexUnavailable(backendName, term, fmt.Errorf("iterating term_counts: %w", err))
	}
	return counts, nil
}

func (i *Index) Ping(ctx context.Context) error {
	return i.db.PingContext(ctx)
}

func (i *Index) Close() error {
	return i.db.Close()
}
