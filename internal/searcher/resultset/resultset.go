// Package resultset implements the scored document sets that boolean queries
// are built from. A ResultSet maps document identifiers to relevance scores
// and supports union (OR), intersection (AND) and difference (MINUS). The
// way two scores are merged is a CombineFunc carried by the set, so
// alternate relevance models can be plugged in without touching the
// combinators.
package resultset

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/errors"
)

// CombineFunc merges the relevance of a document in two operands. An operand
// that does not contain the document contributes 0.
type CombineFunc func(a, b int) int

// Sum adds both relevances. It is the default policy.
func Sum(a, b int) int { return a + b }

// Max keeps the larger relevance.
func Max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// PolicyByName resolves a configured policy name.
func PolicyByName(name string) (CombineFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sum":
		return Sum, nil
	case "max":
		return Max, nil
	default:
		return nil, apperrors.Invalidf("unknown combine policy %q", name)
	}
}

// Entry is one (identifier, score) pair of a sorted result.
type Entry struct {
	ID    string `json:"id"`
	Score int    `json:"score"`
}

func (e Entry) String() string {
	return fmt.Sprintf("(%s, %d)", e.ID, e.Score)
}

// Section is a titled listing of entries, one block of a multi-query report.
type Section struct {
	Title   string
	Entries []Entry
}

// Option configures a ResultSet at construction.
type Option func(*ResultSet)

// WithCombine sets the relevance-combination policy. A nil policy is ignored.
func WithCombine(fn CombineFunc) Option {
	return func(rs *ResultSet) {
		if fn != nil {
			rs.combine = fn
		}
	}
}

// ResultSet is immutable once built. The zero value is not usable; build
// sets with New, FromEntries or Empty.
type ResultSet struct {
	scores  map[string]int
	order   []string
	combine CombineFunc
}

func newSet(capacity int, combine CombineFunc) *ResultSet {
	return &ResultSet{
		scores:  make(map[string]int, capacity),
		order:   make([]string, 0, capacity),
		combine: combine,
	}
}

func build(capacity int, opts []Option) *ResultSet {
	rs := newSet(capacity, Sum)
	for _, opt := range opts {
		opt(rs)
	}
	return rs
}

// New copies scores into a ResultSet. Identifiers are inserted in ascending
// order so that ties in SortedEntries come out the same on every run.
func New(scores map[string]int, opts ...Option) *ResultSet {
	rs := build(len(scores), opts)
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		rs.put(id, scores[id])
	}
	return rs
}

// FromEntries builds a ResultSet keeping the order of entries. A repeated
// identifier keeps its first position and its last score.
func FromEntries(entries []Entry, opts ...Option) *ResultSet {
	rs := build(len(entries), opts)
	for _, e := range entries {
		rs.put(e.ID, e.Score)
	}
	return rs
}

// Empty returns a set with no documents.
func Empty(opts ...Option) *ResultSet {
	return build(0, opts)
}

func (rs *ResultSet) put(id string, score int) {
	if _, exists := rs.scores[id]; !exists {
		rs.order = append(rs.order, id)
	}
	rs.scores[id] = score
}

func (rs *ResultSet) derive(capacity int) *ResultSet {
	return newSet(capacity, rs.combine)
}

// RelevanceOf returns the score of id, or 0 when id is absent.
func (rs *ResultSet) RelevanceOf(id string) int {
	return rs.scores[id]
}

// Combine applies the set's policy to two relevances.
func (rs *ResultSet) Combine(a, b int) int {
	return rs.combine(a, b)
}

// Union returns every document of either set (OR). Each score is
// Combine(rs.RelevanceOf(id), other.RelevanceOf(id)), so a document found in
// both sets is scored from both, not copied from one side.
func (rs *ResultSet) Union(other *ResultSet) *ResultSet {
	out := rs.derive(len(rs.order) + len(other.order))
	for _, id := range rs.order {
		out.put(id, rs.Combine(rs.scores[id], other.RelevanceOf(id)))
	}
	for _, id := range other.order {
		if _, seen := rs.scores[id]; seen {
			continue
		}
		out.put(id, rs.Combine(0, other.scores[id]))
	}
	return out
}

// Intersect returns the documents present in both sets (AND), scored with
// Combine.
func (rs *ResultSet) Intersect(other *ResultSet) *ResultSet {
	out := rs.derive(min(len(rs.order), len(other.order)))
	for _, id := range rs.order {
		theirs, ok := other.scores[id]
		if !ok {
			continue
		}
		out.put(id, rs.Combine(rs.scores[id], theirs))
	}
	return out
}

// Difference returns the documents of rs that other does not contain
// (MINUS). Membership alone decides: a document stored in other with score
// 0 is still removed. Scores are copied unchanged.
func (rs *ResultSet) Difference(other *ResultSet) *ResultSet {
	out := rs.derive(len(rs.order))
	for _, id := range rs.order {
		if _, excluded := other.scores[id]; excluded {
			continue
		}
		out.put(id, rs.scores[id])
	}
	return out
}

// SortedEntries returns all entries by ascending score. Equal scores keep
// the set's insertion order.
func (rs *ResultSet) SortedEntries() []Entry {
	entries := rs.entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score < entries[j].Score
	})
	return entries
}

// SortedEntriesDescending returns all entries by descending score with the
// same tie-breaking as SortedEntries.
func (rs *ResultSet) SortedEntriesDescending() []Entry {
	entries := rs.entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return entries
}

func (rs *ResultSet) entries() []Entry {
	entries := make([]Entry, 0, len(rs.order))
	for _, id := range rs.order {
		entries = append(entries, Entry{ID: id, Score: rs.scores[id]})
	}
	return entries
}

func (rs *ResultSet) Len() int { return len(rs.order) }

func (rs *ResultSet) Contains(id string) bool {
	_, ok := rs.scores[id]
	return ok
}

// IDs returns the identifiers in insertion order.
func (rs *ResultSet) IDs() []string {
	ids := make([]string, len(rs.order))
	copy(ids, rs.order)
	return ids
}

// Scores returns a copy of the identifier to score mapping.
func (rs *ResultSet) Scores() map[string]int {
	out := make(map[string]int, len(rs.scores))
	for id, score := range rs.scores {
		out[id] = score
	}
	return out
}

// Equal reports whether both sets hold the same (id, score) pairs,
// ignoring order and policy.
func (rs *ResultSet) Equal(other *ResultSet) bool {
	if len(rs.scores) != len(other.scores) {
		return false
	}
	for id, score := range rs.scores {
		theirs, ok := other.scores[id]
		if !ok || theirs != score {
			return false
		}
	}
	return true
}
