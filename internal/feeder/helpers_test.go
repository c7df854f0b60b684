package feeder_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/scry-feeder/internal/config"
	"github.com/phrazzld/scry-feeder/internal/generation"
	"github.com/phrazzld/scry-feeder/internal/platform/logger"
	"github.com/phrazzld/scry-feeder/internal/tracker"
	"github.com/phrazzld/scry-feeder/internal/validation"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

func testConfig() config.Config {
	return config.Config{
		LLM:        config.LLMConfig{ModelName: "gemini-test"},
		Generation: config.GenerationConfig{ChunkSize: 40, ExamplesPerWord: 1},
		Vocabulary: config.VocabularyConfig{
			MaxWordsPerRun:      50,
			DailyCap:            50,
			WeeklyCap:           300,
			GlobalCap:           10000,
			SimilarityThreshold: 0.85,
			CategoryTargets:     map[string]int{"animals": 10},
			CEFRTargets:         map[string]float64{"A1": 50, "A2": 50},
			PartsOfSpeech:       []string{"noun", "verb"},
		},
		Grammar: config.GrammarConfig{
			MaxExercisesPerRun:       30,
			MaxTopicsPerRun:          3,
			DailyCap:                 100,
			WeeklyCap:                500,
			GlobalCap:                10000,
			SimilarityThreshold:      0.90,
			TargetPerTopic:           20,
			MaxExercisesPerTopic:     10,
			InitialExercisesPerTopic: 5,
		},
	}
}

func newTracker(t *testing.T) *tracker.Tracker {
	t.Helper()
	log, _ := logger.NewTestLogger()
	tr, err := tracker.New(filepath.Join(t.TempDir(), "executions.json"), log, tracker.WithClock(fixedClock))
	require.NoError(t, err)
	return tr
}

func newGenerator(t *testing.T, completer generation.Completer) *generation.Generator {
	t.Helper()
	log, _ := logger.NewTestLogger()
	gen, err := generation.NewGenerator(completer, validation.New(validation.Rules{}),
		config.GenerationConfig{ChunkSize: 40, ExamplesPerWord: 1}, log,
		generation.WithSleep(func(ctx context.Context, _ time.Duration) error { return ctx.Err() }))
	require.NoError(t, err)
	return gen
}

func noun(word, gender, en string) string {
	return fmt.Sprintf(`{"word":%q,"translation_en":%q,"part_of_speech":"noun","gender":%q,`+
		`"difficulty_level":"A1","example_sentence_de":"Das ist %s.","example_sentence_en":"That is %s.",`+
		`"is_idiom":false,"is_compound":false,"is_separable_verb":false}`, word, en, gender, word, en)
}

func exercise(typ, question, answer string) string {
	return fmt.Sprintf(`{"exercise_type":%q,"difficulty_level":"A2","question_text":%q,"correct_answer":%q,`+
		`"explanation":"Dativ nach mit."}`, typ, question, answer)
}

func array(items ...string) string {
	return "[" + strings.Join(items, ",") + "]"
}
