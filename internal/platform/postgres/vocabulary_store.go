package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-feeder/internal/dedup"
	"github.com/phrazzld/scry-feeder/internal/domain"
	"github.com/phrazzld/scry-feeder/internal/platform/logger"
	"github.com/phrazzld/scry-feeder/internal/store"
)

const vocabularyTable = "vocabulary_words"

var (
	vocabularyGroupFields = newFieldSet(
		"category", "subcategory", "difficulty_level", "part_of_speech",
	)
	vocabularyDistinctFields = newFieldSet(
		"word", "normalized_word", "category", "subcategory", "difficulty_level", "part_of_speech",
	)
)

// PostgresVocabularyStore implements the store.VocabularyStore interface
// using a PostgreSQL database as the storage backend.
type PostgresVocabularyStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresVocabularyStore creates a new PostgreSQL implementation of the VocabularyStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresVocabularyStore(db store.DBTX, logger *slog.Logger) *PostgresVocabularyStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresVocabularyStore{
		db:     db,
		logger: logger.With(slog.String("component", "vocabulary_store")),
	}
}

// Ensure PostgresVocabularyStore implements store.VocabularyStore interface
var _ store.VocabularyStore = (*PostgresVocabularyStore)(nil)

// InsertIgnoringDuplicates implements store.VocabularyStore.InsertIgnoringDuplicates
func (s *PostgresVocabularyStore) InsertIgnoringDuplicates(
	ctx context.Context,
	w *domain.VocabularyWord,
) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	normalized := dedup.Normalize(w.Word)
	if normalized == "" {
		return false, fmt.Errorf("%w: word %q normalizes to nothing", store.ErrInvalidEntity, w.Word)
	}

	query, args, err := psql.Insert(vocabularyTable).
		Columns(
			"word", "normalized_word", "translation_en", "part_of_speech", "gender", "plural_form",
			"difficulty_level", "category", "subcategory", "example_sentence_de", "example_sentence_en",
			"pronunciation", "definition_de", "synonyms", "antonyms", "usage_notes",
			"is_idiom", "is_compound", "is_separable_verb",
		).
		Values(
			w.Word, normalized, w.Translation, w.PartOfSpeech, w.Gender, w.PluralForm,
			string(w.Difficulty), w.Category, w.Subcategory, w.ExampleDE, w.ExampleEN,
			w.Pronunciation, w.DefinitionDE, string(w.Synonyms), string(w.Antonyms), w.UsageNotes,
			w.IsIdiom.Value, w.IsCompound.Value, w.IsSeparableVerb.Value,
		).
		Suffix("ON CONFLICT (normalized_word) DO NOTHING RETURNING id, created_at").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	err = s.db.QueryRowContext(ctx, query, args...).Scan(&w.ID, &w.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("word already in corpus",
			slog.String("word", w.Word),
			slog.String("normalized_word", normalized))
		return false, nil
	}
	if err != nil {
		log.Error("failed to insert word",
			slog.String("error", err.Error()),
			slog.String("word", w.Word))
		return false, store.NewStoreError("vocabulary_word", "insert",
			fmt.Sprintf("word %q", w.Word), fmt.Errorf("%w: %w", store.ErrInsertFailed, MapError(err)))
	}

	log.Debug("word inserted",
		slog.Int64("id", w.ID),
		slog.String("word", w.Word),
		slog.String("category", w.Category))
	return true, nil
}

// CountGroupedBy implements store.VocabularyStore.CountGroupedBy
func (s *PostgresVocabularyStore) CountGroupedBy(
	ctx context.Context,
	field string,
	filters store.Filters,
) (map[string]int, error) {
	counts, err := countGroupedBy(ctx, s.db, vocabularyTable, vocabularyGroupFields, field, filters)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to count words",
			slog.String("field", field),
			slog.String("error", err.Error()))
		return nil, err
	}
	return counts, nil
}

// QueryDistinctValues implements store.VocabularyStore.QueryDistinctValues
func (s *PostgresVocabularyStore) QueryDistinctValues(
	ctx context.Context,
	field string,
	filters store.Filters,
) ([]string, error) {
	values, err := distinctValues(ctx, s.db, vocabularyTable, vocabularyDistinctFields, field, filters)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query distinct words",
			slog.String("field", field),
			slog.String("error", err.Error()))
		return nil, err
	}
	return values, nil
}

// WithTx implements store.VocabularyStore.WithTx
// It returns a new VocabularyStore instance that uses the provided transaction.
func (s *PostgresVocabularyStore) WithTx(tx *sql.Tx) store.VocabularyStore {
	return &PostgresVocabularyStore{
		db:     tx,
		logger: s.logger,
	}
}
