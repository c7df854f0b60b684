package generation_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/scry-feeder/internal/config"
	"github.com/phrazzld/scry-feeder/internal/domain"
	"github.com/phrazzld/scry-feeder/internal/generation"
	"github.com/phrazzld/scry-feeder/internal/mocks"
	"github.com/phrazzld/scry-feeder/internal/platform/logger"
	"github.com/phrazzld/scry-feeder/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	dogJSON = `{"word":"der Hund","translation_en":"dog","part_of_speech":"noun","gender":"masculine",` +
		`"plural_form":"die Hunde","difficulty_level":"a1","example_sentence_de":"Der Hund bellt.",` +
		`"example_sentence_en":"The dog barks.","synonyms":"Köter","is_idiom":0,"is_compound":false,` +
		`"is_separable_verb":false}`
	// A noun without its article.
	catJSON = `{"word":"Katze","translation_en":"cat","part_of_speech":"noun","gender":"feminine",` +
		`"difficulty_level":"A1","example_sentence_de":"Die Katze schläft.",` +
		`"example_sentence_en":"The cat sleeps.","is_idiom":false,"is_compound":false,"is_separable_verb":false}`
	runJSON = `{"word":"laufen","translation_en":"to run","part_of_speech":"verb","difficulty_level":"A1",` +
		`"category":"sports","example_sentence_de":"Ich laufe.","example_sentence_en":"I run.",` +
		`"synonyms":"none","is_idiom":false,"is_compound":false,"is_separable_verb":false}`
)

func newTestGenerator(t *testing.T, completer generation.Completer, cfg config.GenerationConfig, opts ...generation.Option) *generation.Generator {
	t.Helper()
	log, _ := logger.NewTestLogger()
	gen, err := generation.NewGenerator(completer, validation.New(validation.Rules{}), cfg, log, opts...)
	require.NoError(t, err)
	return gen
}

func noSleep(sleeps *int) generation.Option {
	return generation.WithSleep(func(ctx context.Context, _ time.Duration) error {
		*sleeps++
		return ctx.Err()
	})
}

func TestNewGenerator_InvalidConfig(t *testing.T) {
	t.Parallel()
	v := validation.New(validation.Rules{})

	tests := []struct {
		name      string
		completer generation.Completer
		validator *validation.Validator
		cfg       config.GenerationConfig
	}{
		{"nil completer", nil, v, config.GenerationConfig{ChunkSize: 40}},
		{"nil validator", &mocks.MockCompleter{}, nil, config.GenerationConfig{ChunkSize: 40}},
		{"zero chunk size", &mocks.MockCompleter{}, v, config.GenerationConfig{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := generation.NewGenerator(tt.completer, tt.validator, tt.cfg, nil)
			assert.ErrorIs(t, err, generation.ErrInvalidConfig)
		})
	}
}

func TestChunkSizes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		count, chunk int
		want         []int
	}{
		{80, 40, []int{40, 40}},
		{85, 40, []int{40, 40, 5}},
		{10, 40, []int{10}},
		{40, 40, []int{40}},
		{0, 40, nil},
		{10, 0, nil},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_by_%d", tt.count, tt.chunk), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, generation.ChunkSizes(tt.count, tt.chunk))
		})
	}
}

func TestGenerateVocabulary_ChunksRequests(t *testing.T) {
	t.Parallel()

	completer := mocks.NewMockCompleterWithResponses("[" + dogJSON + "]")
	sleeps := 0
	gen := newTestGenerator(t, completer,
		config.GenerationConfig{ChunkSize: 40, ChunkDelayMS: 500, ExamplesPerWord: 1},
		noSleep(&sleeps))

	res := gen.GenerateVocabulary(context.Background(), generation.VocabularyRequest{
		Category:   "animals",
		Count:      85,
		Difficulty: domain.LevelA1,
	})

	assert.Equal(t, 3, res.AICalls)
	assert.Equal(t, 3, completer.Calls())
	assert.Equal(t, 2, sleeps, "waits between chunks only")

	prompts := completer.Prompts()
	require.Len(t, prompts, 3)
	assert.Contains(t, prompts[0], "Generate exactly 40 German")
	assert.Contains(t, prompts[1], "Generate exactly 40 German")
	assert.Contains(t, prompts[2], "Generate exactly 5 German")
	assert.Contains(t, prompts[0], "Category: animals")

	// The same word comes back from each chunk; repeats are warnings, not errors.
	assert.Len(t, res.Words, 3)
	assert.Len(t, res.Warnings, 2)
	assert.Empty(t, res.Failure)
}

func TestGenerateVocabulary_PostProcessAndValidate(t *testing.T) {
	t.Parallel()

	completer := mocks.NewMockCompleterWithResponses("```json\n[" + dogJSON + "," + catJSON + "," + runJSON + ",]\n```")
	gen := newTestGenerator(t, completer, config.GenerationConfig{ChunkSize: 40})

	res := gen.GenerateVocabulary(context.Background(), generation.VocabularyRequest{
		Category:    "animals",
		Subcategory: "pets",
		Count:       3,
		Difficulty:  domain.LevelA2,
	})

	require.Len(t, res.Words, 2)
	dog := res.Words[0]
	assert.Equal(t, "der Hund", dog.Word)
	assert.Equal(t, "animals", dog.Category, "category filled from request")
	assert.Equal(t, "pets", dog.Subcategory)
	assert.Equal(t, domain.LevelA1, dog.Difficulty, "model level kept and normalized")
	assert.Equal(t, domain.LooseList(`["Köter"]`), dog.Synonyms)
	assert.False(t, dog.IsIdiom.Value)

	run := res.Words[1]
	assert.Equal(t, "animals", run.Category, "requested category replaces the model's")
	assert.Empty(t, run.Synonyms)

	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "Katze")
	assert.Contains(t, res.Errors[0], `must start with "die "`)
	assert.Equal(t, 2, res.Distribution.Total)
}

func TestGenerateVocabulary_CategoryUsesRequestedKey(t *testing.T) {
	t.Parallel()

	mixedCase := strings.Replace(dogJSON, `"word":"der Hund"`, `"word":"der Hund","category":"Animals"`, 1)
	completer := mocks.NewMockCompleterWithResponses("[" + mixedCase + "]")
	log, _ := logger.NewTestLogger()
	gen, err := generation.NewGenerator(completer,
		validation.New(validation.Rules{Categories: []string{"animals"}}),
		config.GenerationConfig{ChunkSize: 40}, log)
	require.NoError(t, err)

	res := gen.GenerateVocabulary(context.Background(), generation.VocabularyRequest{
		Category:   "animals",
		Count:      1,
		Difficulty: domain.LevelA1,
	})

	require.Len(t, res.Words, 1)
	assert.Equal(t, "animals", res.Words[0].Category)
	assert.Empty(t, res.Errors)
}

func TestGenerateVocabulary_PartialChunkFailure(t *testing.T) {
	t.Parallel()

	calls := 0
	completer := &mocks.MockCompleter{
		CompleteFn: func(ctx context.Context, prompt string) (string, error) {
			calls++
			if calls == 2 {
				return "", fmt.Errorf("%w: rate limited", generation.ErrTransientFailure)
			}
			return "[" + dogJSON + "]", nil
		},
	}
	gen := newTestGenerator(t, completer, config.GenerationConfig{ChunkSize: 1})

	res := gen.GenerateVocabulary(context.Background(), generation.VocabularyRequest{
		Category: "animals", Count: 3, Difficulty: domain.LevelA1,
	})

	assert.Equal(t, 3, res.AICalls)
	assert.Len(t, res.Words, 2)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "chunk 2")
	assert.Contains(t, res.Errors[0], "rate limited")
	assert.Empty(t, res.Failure)
}

func TestGenerateVocabulary_AllChunksFail(t *testing.T) {
	t.Parallel()

	completer := mocks.MockCompleterWithContentBlocked()
	gen := newTestGenerator(t, completer, config.GenerationConfig{ChunkSize: 40})

	res := gen.GenerateVocabulary(context.Background(), generation.VocabularyRequest{
		Category: "animals", Count: 50, Difficulty: domain.LevelA1,
	})

	assert.Equal(t, 2, res.AICalls)
	assert.Empty(t, res.Words)
	assert.Len(t, res.Errors, 2)
	assert.True(t, strings.HasPrefix(res.Failure, generation.ErrGenerationFailed.Error()))
	assert.Contains(t, res.Failure, generation.ErrContentBlocked.Error())
}

func TestGenerateVocabulary_NonPositiveCount(t *testing.T) {
	t.Parallel()

	completer := &mocks.MockCompleter{}
	gen := newTestGenerator(t, completer, config.GenerationConfig{ChunkSize: 40})

	res := gen.GenerateVocabulary(context.Background(), generation.VocabularyRequest{Category: "animals"})
	assert.NotEmpty(t, res.Failure)
	assert.Zero(t, completer.Calls())
}

func TestGenerateVocabulary_CancelledBetweenChunks(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	completer := &mocks.MockCompleter{
		CompleteFn: func(context.Context, string) (string, error) {
			cancel()
			return "[" + dogJSON + "]", nil
		},
	}
	sleeps := 0
	gen := newTestGenerator(t, completer,
		config.GenerationConfig{ChunkSize: 40, ChunkDelayMS: 100}, noSleep(&sleeps))

	res := gen.GenerateVocabulary(ctx, generation.VocabularyRequest{
		Category: "animals", Count: 120, Difficulty: domain.LevelA1,
	})

	assert.Equal(t, 1, res.AICalls)
	assert.Equal(t, 1, sleeps)
	assert.Len(t, res.Words, 1)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], context.Canceled.Error())
}

func TestGenerateVocabulary_DebugDumpOnParseFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	completer := mocks.NewMockCompleterWithResponses("Entschuldigung, das kann ich nicht.")
	fixed := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	gen := newTestGenerator(t, completer,
		config.GenerationConfig{ChunkSize: 40, DebugDir: dir},
		generation.WithClock(func() time.Time { return fixed }))

	res := gen.GenerateVocabulary(context.Background(), generation.VocabularyRequest{
		Category: "animals", Count: 10, Difficulty: domain.LevelA1,
	})

	assert.Empty(t, res.Words)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "debug dump: ")
	assert.Contains(t, res.Errors[0], generation.ErrParseFailure.Error())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "vocabulary_20261014T120000"))
	assert.True(t, strings.HasSuffix(entries[0].Name(), "_chunk1.txt"))

	content, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(content), "=== RAW RESPONSE ===")
	assert.Contains(t, string(content), "Entschuldigung")
}

func TestGenerateExercises(t *testing.T) {
	t.Parallel()

	response := `[
		{"exercise_type":"Fill_Blank","question_text":"Ich gebe ___ Mann das Buch.","correct_answer":"dem",
		 "hints":"dative, masculine","explanation":"geben takes a dative object"},
		{"exercise_type":"idiom","question_text":"Was bedeutet das?","correct_answer":"nichts"},
		{"exercise_type":"multiple_choice","difficulty_level":"b1","question_text":"Mit ___ Freundin?",
		 "correct_answer":"meiner","alternative_answers":["meine","meinen"]}
	]`
	completer := mocks.NewMockCompleterWithResponses(response)
	gen := newTestGenerator(t, completer, config.GenerationConfig{ChunkSize: 20})

	topic := domain.GrammarTopic{ID: 7, Name: "Dative case", Category: "cases", Difficulty: domain.LevelA2}
	res := gen.GenerateExercises(context.Background(), generation.ExerciseRequest{Topic: topic, Count: 3})

	assert.Equal(t, 1, res.AICalls)
	require.Len(t, res.Exercises, 2)
	for _, e := range res.Exercises {
		assert.Equal(t, int64(7), e.TopicID)
	}

	first := res.Exercises[0]
	assert.Equal(t, domain.ExerciseFillBlank, first.ExerciseType)
	assert.Equal(t, domain.LevelA2, first.Difficulty, "defaults to the topic level")
	assert.Equal(t, domain.LooseList(`["dative", "masculine"]`), first.Hints)

	second := res.Exercises[1]
	assert.Equal(t, domain.LevelB1, second.Difficulty)
	assert.Equal(t, domain.LooseList(`["meine", "meinen"]`), second.AlternativeAnswers)

	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], `exercise_type "idiom" is not supported`)

	prompts := completer.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "Dative case")
	for _, typ := range domain.ExerciseTypes() {
		assert.Contains(t, prompts[0], string(typ))
	}
}

func TestGenerateTopic(t *testing.T) {
	t.Parallel()

	t.Run("spec fields win over model output", func(t *testing.T) {
		t.Parallel()
		completer := mocks.NewMockCompleterWithResponses(`{"name":"Something else","name_de":" Der Dativ ",` +
			`"category":"verbs","difficulty_level":"C2","description":"Practise the dative case.",` +
			`"explanation":"Indirect objects take the dative."}`)
		gen := newTestGenerator(t, completer, config.GenerationConfig{ChunkSize: 20})

		res := gen.GenerateTopic(context.Background(), config.TopicSpec{
			Name: "Dative case", Category: "cases", Difficulty: "a2",
		})

		require.NotNil(t, res.Topic)
		assert.Empty(t, res.Failure)
		assert.Equal(t, 1, res.AICalls)
		assert.Equal(t, "Dative case", res.Topic.Name)
		assert.Equal(t, "cases", res.Topic.Category)
		assert.Equal(t, domain.LevelA2, res.Topic.Difficulty)
		assert.Equal(t, "Der Dativ", res.Topic.NameDE)
		assert.Zero(t, res.Topic.ID)
	})

	t.Run("missing description fails validation", func(t *testing.T) {
		t.Parallel()
		completer := mocks.NewMockCompleterWithResponses(`{"name_de":"Der Dativ"}`)
		gen := newTestGenerator(t, completer, config.GenerationConfig{ChunkSize: 20})

		res := gen.GenerateTopic(context.Background(), config.TopicSpec{
			Name: "Dative case", Category: "cases", Difficulty: "A2",
		})

		assert.Nil(t, res.Topic)
		assert.Contains(t, res.Failure, "description is required")
	})

	t.Run("invalid level makes no AI call", func(t *testing.T) {
		t.Parallel()
		completer := &mocks.MockCompleter{}
		gen := newTestGenerator(t, completer, config.GenerationConfig{ChunkSize: 20})

		res := gen.GenerateTopic(context.Background(), config.TopicSpec{
			Name: "Dative case", Category: "cases", Difficulty: "D1",
		})

		assert.Nil(t, res.Topic)
		assert.NotEmpty(t, res.Failure)
		assert.Zero(t, completer.Calls())
	})

	t.Run("completer error", func(t *testing.T) {
		t.Parallel()
		completer := mocks.NewMockCompleterWithError(errors.New("boom"))
		gen := newTestGenerator(t, completer, config.GenerationConfig{ChunkSize: 20})

		res := gen.GenerateTopic(context.Background(), config.TopicSpec{
			Name: "Dative case", Category: "cases", Difficulty: "A2",
		})

		assert.Nil(t, res.Topic)
		assert.Contains(t, res.Failure, "boom")
	})
}
