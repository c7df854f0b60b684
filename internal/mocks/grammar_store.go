package mocks

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/phrazzld/scry-feeder/internal/dedup"
	"github.com/phrazzld/scry-feeder/internal/domain"
	"github.com/phrazzld/scry-feeder/internal/store"
)

// MockGrammarStore implements store.GrammarStore over in-memory topics and exercises.
type MockGrammarStore struct {
	// ListTopicsFn, when set, replaces the in-memory listing
	ListTopicsFn func(ctx context.Context) ([]domain.GrammarTopic, error)

	// InsertTopicFn, when set, replaces the in-memory topic insert
	InsertTopicFn func(ctx context.Context, t *domain.GrammarTopic) (bool, error)

	// InsertIgnoringDuplicatesFn, when set, replaces the in-memory exercise insert
	InsertIgnoringDuplicatesFn func(ctx context.Context, e *domain.GrammarExercise) (bool, error)

	// CountGroupedByFn, when set, replaces the in-memory count
	CountGroupedByFn func(ctx context.Context, field string, filters store.Filters) (map[string]int, error)

	mu        sync.Mutex
	topics    []domain.GrammarTopic
	exercises []domain.GrammarExercise
	nextID    int64

	// InsertCalls tracks topic and exercise insert attempts
	InsertCalls struct {
		mu        sync.Mutex
		Topics    int
		Exercises int
	}
}

var _ store.GrammarStore = (*MockGrammarStore)(nil)

// NewMockGrammarStore creates a store pre-loaded with topics. Topics without
// an ID are assigned one.
func NewMockGrammarStore(topics ...domain.GrammarTopic) *MockGrammarStore {
	m := &MockGrammarStore{}
	for _, t := range topics {
		if t.ID == 0 {
			m.nextID++
			t.ID = m.nextID
		} else if t.ID > m.nextID {
			m.nextID = t.ID
		}
		m.topics = append(m.topics, t)
	}
	return m
}

// AddExercises appends exercises to the corpus without duplicate checks.
func (m *MockGrammarStore) AddExercises(exercises ...domain.GrammarExercise) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range exercises {
		m.nextID++
		e.ID = m.nextID
		m.exercises = append(m.exercises, e)
	}
}

// ListTopics implements the store.GrammarStore interface
func (m *MockGrammarStore) ListTopics(ctx context.Context) ([]domain.GrammarTopic, error) {
	if m.ListTopicsFn != nil {
		return m.ListTopicsFn(ctx)
	}
	return m.Topics(), nil
}

// InsertTopic implements the store.GrammarStore interface
func (m *MockGrammarStore) InsertTopic(ctx context.Context, t *domain.GrammarTopic) (bool, error) {
	m.InsertCalls.mu.Lock()
	m.InsertCalls.Topics++
	m.InsertCalls.mu.Unlock()

	if m.InsertTopicFn != nil {
		return m.InsertTopicFn(ctx, t)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := dedup.Normalize(t.Name)
	for _, existing := range m.topics {
		if dedup.Normalize(existing.Name) == key {
			return false, nil
		}
	}
	m.nextID++
	t.ID = m.nextID
	t.CreatedAt = time.Now().UTC()
	m.topics = append(m.topics, *t)
	return true, nil
}

// InsertIgnoringDuplicates implements the store.GrammarStore interface
func (m *MockGrammarStore) InsertIgnoringDuplicates(ctx context.Context, e *domain.GrammarExercise) (bool, error) {
	m.InsertCalls.mu.Lock()
	m.InsertCalls.Exercises++
	m.InsertCalls.mu.Unlock()

	if m.InsertIgnoringDuplicatesFn != nil {
		return m.InsertIgnoringDuplicatesFn(ctx, e)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if e.TopicID <= 0 {
		return false, fmt.Errorf("%w: exercise has no topic", store.ErrInvalidEntity)
	}
	key := dedup.Normalize(e.QuestionText)
	for _, existing := range m.exercises {
		if existing.TopicID == e.TopicID && dedup.Normalize(existing.QuestionText) == key {
			return false, nil
		}
	}
	m.nextID++
	e.ID = m.nextID
	e.CreatedAt = time.Now().UTC()
	m.exercises = append(m.exercises, *e)
	return true, nil
}

// CountGroupedBy implements the store.GrammarStore interface
func (m *MockGrammarStore) CountGroupedBy(
	ctx context.Context,
	field string,
	filters store.Filters,
) (map[string]int, error) {
	if m.CountGroupedByFn != nil {
		return m.CountGroupedByFn(ctx, field, filters)
	}
	return m.count(field, filters)
}

func (m *MockGrammarStore) count(field string, filters store.Filters) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[string]int)
	for _, e := range m.exercises {
		ok, err := matchesFilters(filters, func(f string) (string, error) { return exerciseField(e, f) })
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		value, err := exerciseField(e, field)
		if err != nil {
			return nil, err
		}
		counts[value]++
	}
	return counts, nil
}

// QueryDistinctValues implements the store.GrammarStore interface
func (m *MockGrammarStore) QueryDistinctValues(
	_ context.Context,
	field string,
	filters store.Filters,
) ([]string, error) {
	counts, err := m.count(field, filters)
	if err != nil {
		return nil, err
	}
	return sortedKeys(counts), nil
}

// ExistsByTopic implements the store.GrammarStore interface
func (m *MockGrammarStore) ExistsByTopic(_ context.Context, topicID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.exercises {
		if e.TopicID == topicID {
			return true, nil
		}
	}
	return false, nil
}

// WithTx implements the store.GrammarStore interface; the mock ignores tx.
func (m *MockGrammarStore) WithTx(*sql.Tx) store.GrammarStore {
	return m
}

// Topics returns a copy of the stored topics in insertion order
func (m *MockGrammarStore) Topics() []domain.GrammarTopic {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.GrammarTopic, len(m.topics))
	copy(out, m.topics)
	return out
}

// Exercises returns a copy of the stored exercises in insertion order
func (m *MockGrammarStore) Exercises() []domain.GrammarExercise {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.GrammarExercise, len(m.exercises))
	copy(out, m.exercises)
	return out
}

func exerciseField(e domain.GrammarExercise, field string) (string, error) {
	switch field {
	case "topic_id":
		return strconv.FormatInt(e.TopicID, 10), nil
	case "question_text":
		return e.QuestionText, nil
	case "normalized_question":
		return dedup.Normalize(e.QuestionText), nil
	case "exercise_type":
		return string(e.ExerciseType), nil
	case "difficulty_level":
		return string(e.Difficulty), nil
	case "context_category":
		return e.ContextCategory, nil
	}
	return "", fmt.Errorf("%w: %q", store.ErrUnknownField, field)
}
