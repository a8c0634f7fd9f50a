package index

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/index/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Memory is an in-process term-frequency index used for offline runs and
// tests. It is safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	index    map[string]map[string]int
	docCount int
}

// Fixture is the YAML layout accepted by LoadFixture:
//
//	terms:
//	  java:
//	    https://en.wikipedia.org/wiki/Java_(programming_language): 12
//	documents:
//	  https://en.wikipedia.org/wiki/Python: "Python is a programming language"
type Fixture struct {
	Terms     map[string]map[string]int `yaml:"terms"`
	Documents map[string]string         `yaml:"documents"`
}

func NewMemory() *Memory {
	return &Memory{
		index: make(map[string]map[string]int),
	}
}

// LoadFixture builds a Memory index from a YAML fixture file.
func LoadFixture(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading index fixture %s: %w", path, err)
	}
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parsing index fixture %s: %w", path, err)
	}
	m := NewMemory()
	for term, docs := range fx.Terms {
		for url, count := range docs {
			if err := m.Add(term, url, count); err != nil {
				return nil, fmt.Errorf("index fixture %s: %w", path, err)
			}
		}
	}
	for url, text := range fx.Documents {
		m.AddDocument(url, text)
	}
	return m, nil
}

// Add sets the frequency of term in url, replacing any previous value.
func (m *Memory) Add(term, url string, count int) error {
	term = tokenizer.Normalize(term)
	if term == "" || url == "" {
		return apperrors.Invalidf("term and url must be non-empty")
	}
	if count < 0 {
		return apperrors.Invalidf("negative count %d for term %q in %s", count, term, url)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	docs, exists := m.index[term]
	if !exists {
		docs = make(map[string]int)
		m.index[term] = docs
	}
	docs[url] = count
	return nil
}

// AddDocument counts the terms of text and records them under url, adding
// to any counts already stored for that url.
func (m *Memory) AddDocument(url string, text string) {
	counts := tokenizer.TermFrequencies(text)

	m.mu.Lock()
	defer m.mu.Unlock()
	for term, n := range counts {
		docs, exists := m.index[term]
		if !exists {
			docs = make(map[string]int)
			m.index[term] = docs
		}
		docs[url] += n
	}
	m.docCount++
}

// Lookup returns a copy of the stored counts for term.
func (m *Memory) Lookup(ctx context.Context, term string) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewIndexUnavailable("memory", term, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := m.index[term]
	out := make(map[string]int, len(docs))
	for url, count := range docs {
		out[url] = count
	}
	return out, nil
}

// Ping always succeeds; it lets Memory stand in wherever a store health
// check is expected.
func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) TermCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.index)
}

func (m *Memory) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.docCount
}
