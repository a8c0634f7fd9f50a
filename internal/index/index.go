// Package index defines the lookup contract between the query executor and
// the term-frequency store, plus backend-independent decorators for
// resilience and instrumentation.
//
// A lookup maps a term to document identifier -> term frequency. An
// unindexed term is an empty mapping, never an error. Every failure a
// backend reports matches apperrors.ErrIndexUnavailable, and a failed
// lookup returns no partial mapping.
package index

import (
	"context"
)

// Client resolves a term to its term-frequency mapping.
type Client interface {
	Lookup(ctx context.Context, term string) (map[string]int, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, term string) (map[string]int, error)

func (f ClientFunc) Lookup(ctx context.Context, term string) (map[string]int, error) {
	return f(ctx, term)
}
