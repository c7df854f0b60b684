package gaps_test

import (
	"context"
	"errors"
	"testing"

	"github.com/phrazzld/scry-feeder/internal/config"
	"github.com/phrazzld/scry-feeder/internal/domain"
	"github.com/phrazzld/scry-feeder/internal/gaps"
	"github.com/phrazzld/scry-feeder/internal/mocks"
	"github.com/phrazzld/scry-feeder/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countsStore returns a vocabulary store with fixed grouped counts.
func countsStore(byCategory, byLevel map[string]int) *mocks.MockVocabularyStore {
	s := mocks.NewMockVocabularyStore()
	s.CountGroupedByFn = func(_ context.Context, field string, _ store.Filters) (map[string]int, error) {
		switch field {
		case "category":
			return byCategory, nil
		case "difficulty_level":
			return byLevel, nil
		}
		return nil, store.ErrUnknownField
	}
	return s
}

func vocabConfig() config.VocabularyConfig {
	return config.VocabularyConfig{
		MaxWordsPerRun: 100,
		CategoryTargets: map[string]int{
			"business": 3500,
			"food":     3200,
		},
		CEFRTargets: map[string]float64{
			"A1": 20, "A2": 20, "B1": 20, "B2": 20, "C1": 10, "C2": 10,
		},
	}
}

func TestAnalyzeCategoryGaps_RanksLargeGapFirst(t *testing.T) {
	s := countsStore(map[string]int{"business": 150, "food": 3000}, nil)
	a := gaps.NewVocabularyAnalyzer(s, vocabConfig(), nil)

	result, err := a.AnalyzeCategoryGaps(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 2)

	business := result[0]
	assert.Equal(t, "business", business.Category)
	assert.Equal(t, 3350, business.Gap)
	assert.InDelta(t, 95.7, business.GapPct, 0.05)
	// 50 base + 20 capped size bonus + 15 large gap bonus
	assert.Equal(t, 85, business.Priority)

	food := result[1]
	assert.Equal(t, "food", food.Category)
	assert.Equal(t, 200, food.Gap)
	assert.InDelta(t, 6.25, food.GapPct, 0.001)
	assert.Equal(t, 52, food.Priority)
}

func TestAnalyzeCategoryGaps_PriorityBonus(t *testing.T) {
	cfg := vocabConfig()
	cfg.PriorityCategories = []string{"food"}
	s := countsStore(map[string]int{"business": 3400, "food": 3000}, nil)
	a := gaps.NewVocabularyAnalyzer(s, cfg, nil)

	result, err := a.AnalyzeCategoryGaps(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 2)

	assert.Equal(t, "food", result[0].Category)
	assert.True(t, result[0].IsPriority)
	assert.Equal(t, 82, result[0].Priority)
	assert.Equal(t, "business", result[1].Category)
	assert.Equal(t, 51, result[1].Priority)
}

func TestAnalyzeCategoryGaps_NeverNegative(t *testing.T) {
	s := countsStore(map[string]int{"business": 9000, "food": 3200}, nil)
	a := gaps.NewVocabularyAnalyzer(s, vocabConfig(), nil)

	result, err := a.AnalyzeCategoryGaps(context.Background())
	require.NoError(t, err)
	for _, g := range result {
		assert.GreaterOrEqual(t, g.Gap, 0, g.Category)
		assert.GreaterOrEqual(t, g.GapPct, 0.0, g.Category)
		assert.Equal(t, 50, g.Priority, g.Category)
	}
}

func TestAnalyzeCategoryGaps_StoreError(t *testing.T) {
	s := mocks.NewMockVocabularyStore()
	boom := errors.New("connection refused")
	s.CountGroupedByFn = func(context.Context, string, store.Filters) (map[string]int, error) {
		return nil, boom
	}
	a := gaps.NewVocabularyAnalyzer(s, vocabConfig(), nil)

	_, err := a.AnalyzeCategoryGaps(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestAnalyzeCEFRDistribution(t *testing.T) {
	s := countsStore(nil, map[string]int{"A1": 50, "A2": 30, "B1": 20})
	a := gaps.NewVocabularyAnalyzer(s, vocabConfig(), nil)

	shares, err := a.AnalyzeCEFRDistribution(context.Background())
	require.NoError(t, err)
	require.Len(t, shares, 6)

	assert.Equal(t, domain.LevelA1, shares[0].Level)
	assert.InDelta(t, 50.0, shares[0].CurrentPct, 0.001)
	assert.InDelta(t, 30.0, shares[0].GapPct, 0.001)

	assert.Equal(t, domain.LevelB2, shares[3].Level)
	assert.Equal(t, 0, shares[3].Current)
	assert.InDelta(t, -20.0, shares[3].GapPct, 0.001)
}

func TestAnalyzeCEFRDistribution_EmptyCorpus(t *testing.T) {
	s := countsStore(nil, map[string]int{})
	a := gaps.NewVocabularyAnalyzer(s, vocabConfig(), nil)

	shares, err := a.AnalyzeCEFRDistribution(context.Background())
	require.NoError(t, err)
	for _, share := range shares {
		assert.Zero(t, share.CurrentPct)
		assert.Equal(t, -share.TargetPct, share.GapPct)
	}
}

func TestRecommendNextBatch(t *testing.T) {
	t.Run("picks top category and most under-represented level", func(t *testing.T) {
		s := countsStore(
			map[string]int{"business": 150, "food": 3000},
			map[string]int{"A1": 50, "A2": 30, "B1": 20},
		)
		a := gaps.NewVocabularyAnalyzer(s, vocabConfig(), nil)

		rec, err := a.RecommendNextBatch(context.Background(), 100)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "business", rec.Category)
		// B2 is 20 points under target, the largest shortfall before C1/C2 at 10.
		assert.Equal(t, domain.LevelB2, rec.Difficulty)
		assert.Equal(t, 100, rec.WordCount)
		assert.Equal(t, 85, rec.Priority)
		assert.Contains(t, rec.Reason, "business")
	})

	t.Run("word count bounded by gap", func(t *testing.T) {
		s := countsStore(map[string]int{"business": 3490, "food": 3200}, map[string]int{})
		a := gaps.NewVocabularyAnalyzer(s, vocabConfig(), nil)

		rec, err := a.RecommendNextBatch(context.Background(), 100)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "business", rec.Category)
		assert.Equal(t, 10, rec.WordCount)
	})

	t.Run("nil when every category is full", func(t *testing.T) {
		s := countsStore(map[string]int{"business": 3500, "food": 4000}, map[string]int{})
		a := gaps.NewVocabularyAnalyzer(s, vocabConfig(), nil)

		rec, err := a.RecommendNextBatch(context.Background(), 100)
		require.NoError(t, err)
		assert.Nil(t, rec)
	})
}

func TestRecommendNextBatch_InMemoryCorpus(t *testing.T) {
	cfg := vocabConfig()
	cfg.CategoryTargets = map[string]int{"animals": 3}
	s := mocks.NewMockVocabularyStore(
		domain.VocabularyWord{Word: "der Hund", Category: "animals", Difficulty: domain.LevelA1},
		domain.VocabularyWord{Word: "die Katze", Category: "animals", Difficulty: domain.LevelA1},
	)
	a := gaps.NewVocabularyAnalyzer(s, cfg, nil)

	rec, err := a.RecommendNextBatch(context.Background(), 50)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "animals", rec.Category)
	assert.Equal(t, 1, rec.WordCount)
	assert.Equal(t, domain.LevelA2, rec.Difficulty)
}
