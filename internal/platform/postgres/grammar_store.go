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

const (
	topicsTable    = "grammar_topics"
	exercisesTable = "grammar_exercises"
)

var (
	exerciseGroupFields = newFieldSet(
		"topic_id", "exercise_type", "difficulty_level", "context_category",
	)
	exerciseDistinctFields = newFieldSet(
		"topic_id", "question_text", "normalized_question", "exercise_type", "difficulty_level", "context_category",
	)
)

// PostgresGrammarStore implements the store.GrammarStore interface
// using a PostgreSQL database as the storage backend.
type PostgresGrammarStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresGrammarStore creates a new PostgreSQL implementation of the GrammarStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresGrammarStore(db store.DBTX, logger *slog.Logger) *PostgresGrammarStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresGrammarStore{
		db:     db,
		logger: logger.With(slog.String("component", "grammar_store")),
	}
}

// Ensure PostgresGrammarStore implements store.GrammarStore interface
var _ store.GrammarStore = (*PostgresGrammarStore)(nil)

// ListTopics implements store.GrammarStore.ListTopics
func (s *PostgresGrammarStore) ListTopics(ctx context.Context) ([]domain.GrammarTopic, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args, err := psql.Select(
		"id", "name", "name_de", "category", "subcategory", "difficulty_level",
		"description", "explanation", "created_at",
	).From(topicsTable).OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build topic query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list topics", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var topics []domain.GrammarTopic
	for rows.Next() {
		var t domain.GrammarTopic
		var level string
		if err := rows.Scan(
			&t.ID, &t.Name, &t.NameDE, &t.Category, &t.Subcategory, &level,
			&t.Description, &t.Explanation, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan topic row: %w", err)
		}
		t.Difficulty = domain.Level(level)
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	log.Debug("topics listed", slog.Int("count", len(topics)))
	return topics, nil
}

// InsertTopic implements store.GrammarStore.InsertTopic
func (s *PostgresGrammarStore) InsertTopic(ctx context.Context, t *domain.GrammarTopic) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	normalized := dedup.Normalize(t.Name)
	if normalized == "" {
		return false, fmt.Errorf("%w: topic name %q normalizes to nothing", store.ErrInvalidEntity, t.Name)
	}

	query, args, err := psql.Insert(topicsTable).
		Columns(
			"name", "normalized_name", "name_de", "category", "subcategory",
			"difficulty_level", "description", "explanation",
		).
		Values(
			t.Name, normalized, t.NameDE, t.Category, t.Subcategory,
			string(t.Difficulty), t.Description, t.Explanation,
		).
		Suffix("ON CONFLICT (normalized_name) DO NOTHING RETURNING id, created_at").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	err = s.db.QueryRowContext(ctx, query, args...).Scan(&t.ID, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		log.Info("topic already exists", slog.String("name", t.Name))
		return false, nil
	}
	if err != nil {
		log.Error("failed to insert topic",
			slog.String("error", err.Error()),
			slog.String("name", t.Name))
		return false, store.NewStoreError("grammar_topic", "insert",
			fmt.Sprintf("topic %q", t.Name), fmt.Errorf("%w: %w", store.ErrInsertFailed, MapError(err)))
	}

	log.Info("topic inserted",
		slog.Int64("id", t.ID),
		slog.String("name", t.Name),
		slog.String("category", t.Category))
	return true, nil
}

// InsertIgnoringDuplicates implements store.GrammarStore.InsertIgnoringDuplicates
func (s *PostgresGrammarStore) InsertIgnoringDuplicates(
	ctx context.Context,
	e *domain.GrammarExercise,
) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if e.TopicID <= 0 {
		return false, fmt.Errorf("%w: exercise has no topic", store.ErrInvalidEntity)
	}
	normalized := dedup.Normalize(e.QuestionText)
	if normalized == "" {
		return false, fmt.Errorf("%w: question text is empty", store.ErrInvalidEntity)
	}

	query, args, err := psql.Insert(exercisesTable).
		Columns(
			"topic_id", "exercise_type", "difficulty_level", "question_text", "normalized_question",
			"correct_answer", "alternative_answers", "explanation", "hints", "context_category",
		).
		Values(
			e.TopicID, string(e.ExerciseType), string(e.Difficulty), e.QuestionText, normalized,
			e.CorrectAnswer, string(e.AlternativeAnswers), e.Explanation, string(e.Hints), e.ContextCategory,
		).
		Suffix("ON CONFLICT (topic_id, normalized_question) DO NOTHING RETURNING id, created_at").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	err = s.db.QueryRowContext(ctx, query, args...).Scan(&e.ID, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("exercise already in topic",
			slog.Int64("topic_id", e.TopicID),
			slog.String("normalized_question", normalized))
		return false, nil
	}
	if err != nil {
		log.Error("failed to insert exercise",
			slog.String("error", err.Error()),
			slog.Int64("topic_id", e.TopicID))
		return false, store.NewStoreError("grammar_exercise", "insert",
			fmt.Sprintf("exercise for topic %d", e.TopicID),
			fmt.Errorf("%w: %w", store.ErrInsertFailed, MapError(err)))
	}

	log.Debug("exercise inserted",
		slog.Int64("id", e.ID),
		slog.Int64("topic_id", e.TopicID),
		slog.String("exercise_type", string(e.ExerciseType)))
	return true, nil
}

// CountGroupedBy implements store.GrammarStore.CountGroupedBy
func (s *PostgresGrammarStore) CountGroupedBy(
	ctx context.Context,
	field string,
	filters store.Filters,
) (map[string]int, error) {
	counts, err := countGroupedBy(ctx, s.db, exercisesTable, exerciseGroupFields, field, filters)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to count exercises",
			slog.String("field", field),
			slog.String("error", err.Error()))
		return nil, err
	}
	return counts, nil
}

// QueryDistinctValues implements store.GrammarStore.QueryDistinctValues
func (s *PostgresGrammarStore) QueryDistinctValues(
	ctx context.Context,
	field string,
	filters store.Filters,
) ([]string, error) {
	values, err := distinctValues(ctx, s.db, exercisesTable, exerciseDistinctFields, field, filters)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query distinct exercises",
			slog.String("field", field),
			slog.String("error", err.Error()))
		return nil, err
	}
	return values, nil
}

// ExistsByTopic implements store.GrammarStore.ExistsByTopic
func (s *PostgresGrammarStore) ExistsByTopic(ctx context.Context, topicID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM grammar_exercises WHERE topic_id = $1)`, topicID).Scan(&exists)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to check topic exercises",
			slog.Int64("topic_id", topicID),
			slog.String("error", err.Error()))
		return false, MapError(err)
	}
	return exists, nil
}

// WithTx implements store.GrammarStore.WithTx
// It returns a new GrammarStore instance that uses the provided transaction.
func (s *PostgresGrammarStore) WithTx(tx *sql.Tx) store.GrammarStore {
	return &PostgresGrammarStore{
		db:     tx,
		logger: s.logger,
	}
}
