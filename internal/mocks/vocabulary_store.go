package mocks

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/scry-feeder/internal/dedup"
	"github.com/phrazzld/scry-feeder/internal/domain"
	"github.com/phrazzld/scry-feeder/internal/store"
)

// MockVocabularyStore implements store.VocabularyStore over an in-memory corpus.
type MockVocabularyStore struct {
	// InsertIgnoringDuplicatesFn, when set, replaces the in-memory insert
	InsertIgnoringDuplicatesFn func(ctx context.Context, w *domain.VocabularyWord) (bool, error)

	// CountGroupedByFn, when set, replaces the in-memory count
	CountGroupedByFn func(ctx context.Context, field string, filters store.Filters) (map[string]int, error)

	// QueryDistinctValuesFn, when set, replaces the in-memory distinct query
	QueryDistinctValuesFn func(ctx context.Context, field string, filters store.Filters) ([]string, error)

	mu     sync.Mutex
	words  []domain.VocabularyWord
	nextID int64

	// InsertCalls tracks every word passed to InsertIgnoringDuplicates
	InsertCalls struct {
		mu    sync.Mutex
		Count int
		Words []string
	}
}

var _ store.VocabularyStore = (*MockVocabularyStore)(nil)

// NewMockVocabularyStore creates a store pre-loaded with words.
func NewMockVocabularyStore(words ...domain.VocabularyWord) *MockVocabularyStore {
	m := &MockVocabularyStore{}
	for _, w := range words {
		m.nextID++
		w.ID = m.nextID
		m.words = append(m.words, w)
	}
	return m
}

// InsertIgnoringDuplicates implements the store.VocabularyStore interface
func (m *MockVocabularyStore) InsertIgnoringDuplicates(ctx context.Context, w *domain.VocabularyWord) (bool, error) {
	m.InsertCalls.mu.Lock()
	m.InsertCalls.Count++
	m.InsertCalls.Words = append(m.InsertCalls.Words, w.Word)
	m.InsertCalls.mu.Unlock()

	if m.InsertIgnoringDuplicatesFn != nil {
		return m.InsertIgnoringDuplicatesFn(ctx, w)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := dedup.Normalize(w.Word)
	for _, existing := range m.words {
		if dedup.Normalize(existing.Word) == key {
			return false, nil
		}
	}
	m.nextID++
	w.ID = m.nextID
	w.CreatedAt = time.Now().UTC()
	m.words = append(m.words, *w)
	return true, nil
}

// CountGroupedBy implements the store.VocabularyStore interface
func (m *MockVocabularyStore) CountGroupedBy(
	ctx context.Context,
	field string,
	filters store.Filters,
) (map[string]int, error) {
	if m.CountGroupedByFn != nil {
		return m.CountGroupedByFn(ctx, field, filters)
	}
	return m.count(field, filters)
}

func (m *MockVocabularyStore) count(field string, filters store.Filters) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[string]int)
	for _, w := range m.words {
		ok, err := matchesFilters(filters, func(f string) (string, error) { return wordField(w, f) })
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		value, err := wordField(w, field)
		if err != nil {
			return nil, err
		}
		counts[value]++
	}
	return counts, nil
}

// QueryDistinctValues implements the store.VocabularyStore interface
func (m *MockVocabularyStore) QueryDistinctValues(
	ctx context.Context,
	field string,
	filters store.Filters,
) ([]string, error) {
	if m.QueryDistinctValuesFn != nil {
		return m.QueryDistinctValuesFn(ctx, field, filters)
	}

	counts, err := m.count(field, filters)
	if err != nil {
		return nil, err
	}
	return sortedKeys(counts), nil
}

// WithTx implements the store.VocabularyStore interface; the mock ignores tx.
func (m *MockVocabularyStore) WithTx(*sql.Tx) store.VocabularyStore {
	return m
}

// Words returns a copy of the stored corpus in insertion order
func (m *MockVocabularyStore) Words() []domain.VocabularyWord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.VocabularyWord, len(m.words))
	copy(out, m.words)
	return out
}

func wordField(w domain.VocabularyWord, field string) (string, error) {
	switch field {
	case "word":
		return w.Word, nil
	case "normalized_word":
		return dedup.Normalize(w.Word), nil
	case "category":
		return w.Category, nil
	case "subcategory":
		return w.Subcategory, nil
	case "difficulty_level":
		return string(w.Difficulty), nil
	case "part_of_speech":
		return w.PartOfSpeech, nil
	}
	return "", fmt.Errorf("%w: %q", store.ErrUnknownField, field)
}

func matchesFilters(filters store.Filters, get func(field string) (string, error)) (bool, error) {
	for field, want := range filters {
		got, err := get(field)
		if err != nil {
			return false, err
		}
		if got != fmt.Sprint(want) {
			return false, nil
		}
	}
	return true, nil
}

func sortedKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
