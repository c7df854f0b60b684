package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/scry-feeder/internal/domain"
	"github.com/phrazzld/scry-feeder/internal/platform/logger"
	"github.com/phrazzld/scry-feeder/internal/platform/postgres"
	"github.com/phrazzld/scry-feeder/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func testWord() *domain.VocabularyWord {
	return &domain.VocabularyWord{
		Word:         "der Hund",
		Translation:  "dog",
		PartOfSpeech: "noun",
		Gender:       domain.GenderMasculine,
		PluralForm:   "die Hunde",
		Difficulty:   domain.LevelA1,
		Category:     "animals",
		ExampleDE:    "Der Hund bellt.",
		ExampleEN:    "The dog barks.",
		Synonyms:     `["Köter"]`,
		IsCompound:   domain.NewFlag(false),
	}
}

func TestVocabularyStore_InsertIgnoringDuplicates(t *testing.T) {
	t.Parallel()
	insertSQL := `INSERT INTO vocabulary_words .* ON CONFLICT \(normalized_word\) DO NOTHING RETURNING id, created_at`

	t.Run("inserted", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		created := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
		mock.ExpectQuery(insertSQL).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), created))

		log, _ := logger.NewTestLogger()
		s := postgres.NewPostgresVocabularyStore(db, log)
		w := testWord()

		inserted, err := s.InsertIgnoringDuplicates(context.Background(), w)
		require.NoError(t, err)
		assert.True(t, inserted)
		assert.Equal(t, int64(42), w.ID)
		assert.Equal(t, created, w.CreatedAt)
	})

	t.Run("duplicate is skipped", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		mock.ExpectQuery(insertSQL).WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}))

		s := postgres.NewPostgresVocabularyStore(db, nil)
		w := testWord()

		inserted, err := s.InsertIgnoringDuplicates(context.Background(), w)
		require.NoError(t, err)
		assert.False(t, inserted)
		assert.Zero(t, w.ID)
	})

	t.Run("constraint failure wraps ErrInsertFailed", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		mock.ExpectQuery(insertSQL).WillReturnError(&pgconn.PgError{
			Code:           "23514",
			ConstraintName: "vocabulary_words_difficulty_level_check",
		})

		s := postgres.NewPostgresVocabularyStore(db, nil)
		inserted, err := s.InsertIgnoringDuplicates(context.Background(), testWord())
		assert.False(t, inserted)
		assert.ErrorIs(t, err, store.ErrInsertFailed)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)

		var storeErr *store.StoreError
		require.True(t, errors.As(err, &storeErr))
		assert.Equal(t, "insert", storeErr.Operation)
		assert.Equal(t, "vocabulary_word", storeErr.Entity)
	})

	t.Run("blank word is rejected before the query", func(t *testing.T) {
		t.Parallel()
		db, _ := newMockDB(t)
		s := postgres.NewPostgresVocabularyStore(db, nil)

		w := testWord()
		w.Word = "  "
		_, err := s.InsertIgnoringDuplicates(context.Background(), w)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})
}

func TestVocabularyStore_CountGroupedBy(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT difficulty_level::text, COUNT(*) FROM vocabulary_words WHERE category = $1 GROUP BY difficulty_level")).
		WithArgs("business").
		WillReturnRows(sqlmock.NewRows([]string{"difficulty_level", "count"}).
			AddRow("A1", 10).
			AddRow("B2", 4))

	s := postgres.NewPostgresVocabularyStore(db, nil)
	counts, err := s.CountGroupedBy(context.Background(), "difficulty_level", store.Filters{"category": "business"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A1": 10, "B2": 4}, counts)
}

func TestVocabularyStore_QueryDistinctValues(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT normalized_word::text FROM vocabulary_words")).
		WillReturnRows(sqlmock.NewRows([]string{"normalized_word"}).AddRow("katze").AddRow("hund"))

	s := postgres.NewPostgresVocabularyStore(db, nil)
	values, err := s.QueryDistinctValues(context.Background(), "normalized_word", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"hund", "katze"}, values)
}

func TestStores_RejectUnknownFields(t *testing.T) {
	t.Parallel()
	db, _ := newMockDB(t)
	ctx := context.Background()

	vocab := postgres.NewPostgresVocabularyStore(db, nil)
	grammar := postgres.NewPostgresGrammarStore(db, nil)

	_, err := vocab.CountGroupedBy(ctx, "word; DROP TABLE vocabulary_words", nil)
	assert.ErrorIs(t, err, store.ErrUnknownField)

	_, err = vocab.QueryDistinctValues(ctx, "word", store.Filters{"ease_factor": 2.5})
	assert.ErrorIs(t, err, store.ErrUnknownField)

	_, err = grammar.CountGroupedBy(ctx, "question_text", nil)
	assert.ErrorIs(t, err, store.ErrUnknownField)
}

func TestNewStores_NilDB(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { postgres.NewPostgresVocabularyStore(nil, nil) })
	assert.Panics(t, func() { postgres.NewPostgresGrammarStore(nil, nil) })
}

func TestGrammarStore_ListTopics(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	created := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM grammar_topics ORDER BY id")).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "name_de", "category", "subcategory", "difficulty_level",
			"description", "explanation", "created_at",
		}).
			AddRow(int64(1), "Dative case", "Der Dativ", "cases", "", "A2", "Indirect objects.", "", created).
			AddRow(int64(2), "Subjunctive II", "Konjunktiv II", "verbs", "mood", "B2", "Wishes.", "", created))

	s := postgres.NewPostgresGrammarStore(db, nil)
	topics, err := s.ListTopics(context.Background())
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, int64(1), topics[0].ID)
	assert.Equal(t, domain.LevelA2, topics[0].Difficulty)
	assert.Equal(t, "mood", topics[1].Subcategory)
}

func TestGrammarStore_InsertTopic(t *testing.T) {
	t.Parallel()
	insertSQL := `INSERT INTO grammar_topics .* ON CONFLICT \(normalized_name\) DO NOTHING`

	t.Run("inserted", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		mock.ExpectQuery(insertSQL).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(9), time.Now()))

		s := postgres.NewPostgresGrammarStore(db, nil)
		topic := &domain.GrammarTopic{
			Name: "Genitive case", Category: "cases", Difficulty: domain.LevelB1, Description: "Possession.",
		}
		inserted, err := s.InsertTopic(context.Background(), topic)
		require.NoError(t, err)
		assert.True(t, inserted)
		assert.Equal(t, int64(9), topic.ID)
	})

	t.Run("existing name", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		mock.ExpectQuery(insertSQL).WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}))

		s := postgres.NewPostgresGrammarStore(db, nil)
		inserted, err := s.InsertTopic(context.Background(), &domain.GrammarTopic{Name: "Genitive case"})
		require.NoError(t, err)
		assert.False(t, inserted)
	})
}

func TestGrammarStore_InsertIgnoringDuplicates(t *testing.T) {
	t.Parallel()
	insertSQL := `INSERT INTO grammar_exercises .* ON CONFLICT \(topic_id, normalized_question\) DO NOTHING`

	t.Run("foreign key failure", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		mock.ExpectQuery(insertSQL).WillReturnError(&pgconn.PgError{
			Code:           "23503",
			ConstraintName: "grammar_exercises_topic_id_fkey",
		})

		s := postgres.NewPostgresGrammarStore(db, nil)
		_, err := s.InsertIgnoringDuplicates(context.Background(), &domain.GrammarExercise{
			TopicID: 404, ExerciseType: domain.ExerciseFillBlank, Difficulty: domain.LevelA2,
			QuestionText: "Ich helfe ___ Frau.", CorrectAnswer: "der",
		})
		assert.ErrorIs(t, err, store.ErrInsertFailed)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})

	t.Run("missing topic is rejected before the query", func(t *testing.T) {
		t.Parallel()
		db, _ := newMockDB(t)
		s := postgres.NewPostgresGrammarStore(db, nil)
		_, err := s.InsertIgnoringDuplicates(context.Background(), &domain.GrammarExercise{QuestionText: "x"})
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})

	t.Run("duplicate question", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		mock.ExpectQuery(insertSQL).WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}))

		s := postgres.NewPostgresGrammarStore(db, nil)
		inserted, err := s.InsertIgnoringDuplicates(context.Background(), &domain.GrammarExercise{
			TopicID: 1, QuestionText: "Ich helfe ___ Frau.",
		})
		require.NoError(t, err)
		assert.False(t, inserted)
	})
}

func TestGrammarStore_ExistsByTopic(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM grammar_exercises WHERE topic_id = $1)")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	s := postgres.NewPostgresGrammarStore(db, nil)
	exists, err := s.ExistsByTopic(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGrammarStore_WithTx(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT topic_id::text, COUNT(*) FROM grammar_exercises GROUP BY topic_id")).
		WillReturnRows(sqlmock.NewRows([]string{"topic_id", "count"}).AddRow("1", 12))
	mock.ExpectCommit()

	s := postgres.NewPostgresGrammarStore(db, nil)
	err := store.RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		counts, err := s.WithTx(tx).CountGroupedBy(ctx, "topic_id", nil)
		assert.Equal(t, map[string]int{"1": 12}, counts)
		return err
	})
	require.NoError(t, err)
}
