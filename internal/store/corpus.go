package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/scry-feeder/internal/domain"
)

// Filters restricts a query to rows whose fields equal the given values.
// Keys must be whitelisted fields of the table being queried.
type Filters map[string]any

// VocabularyStore defines the interface for vocabulary corpus persistence.
type VocabularyStore interface {
	// InsertIgnoringDuplicates stores w unless a word with the same normalized
	// form exists. It reports whether a row was written and sets w.ID when it was.
	// Failures other than a duplicate wrap ErrInsertFailed.
	InsertIgnoringDuplicates(ctx context.Context, w *domain.VocabularyWord) (bool, error)

	// CountGroupedBy returns the number of words per distinct value of field.
	// Supported fields: category, subcategory, difficulty_level, part_of_speech.
	CountGroupedBy(ctx context.Context, field string, filters Filters) (map[string]int, error)

	// QueryDistinctValues returns the distinct values of field, sorted.
	// Supported fields: word, normalized_word, category, subcategory,
	// difficulty_level, part_of_speech.
	QueryDistinctValues(ctx context.Context, field string, filters Filters) ([]string, error)

	// WithTx returns a new VocabularyStore instance that uses the provided transaction.
	//
	// Usage example:
	//   err := transactor.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
	//       _, err := vocabStore.WithTx(tx).InsertIgnoringDuplicates(ctx, &word)
	//       return err
	//   })
	WithTx(tx *sql.Tx) VocabularyStore
}

// GrammarStore defines the interface for grammar topic and exercise persistence.
type GrammarStore interface {
	// ListTopics returns every topic ordered by id.
	ListTopics(ctx context.Context) ([]domain.GrammarTopic, error)

	// InsertTopic stores t unless a topic with the same normalized name exists.
	// It reports whether a row was written and sets t.ID when it was.
	InsertTopic(ctx context.Context, t *domain.GrammarTopic) (bool, error)

	// InsertIgnoringDuplicates stores e unless its topic already has an exercise
	// with the same normalized question. It reports whether a row was written and
	// sets e.ID when it was. Failures other than a duplicate wrap ErrInsertFailed.
	InsertIgnoringDuplicates(ctx context.Context, e *domain.GrammarExercise) (bool, error)

	// CountGroupedBy returns the number of exercises per distinct value of field.
	// Supported fields: topic_id, exercise_type, difficulty_level, context_category.
	CountGroupedBy(ctx context.Context, field string, filters Filters) (map[string]int, error)

	// QueryDistinctValues returns the distinct values of an exercise field, sorted.
	// Supported fields: question_text, normalized_question, exercise_type,
	// difficulty_level, context_category.
	QueryDistinctValues(ctx context.Context, field string, filters Filters) ([]string, error)

	// ExistsByTopic reports whether the topic has at least one exercise.
	ExistsByTopic(ctx context.Context, topicID int64) (bool, error)

	// WithTx returns a new GrammarStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) GrammarStore
}
