package validation

import "github.com/phrazzld/scry-feeder/internal/domain"

// Quality tiers derived from how many fields of a word are populated.
const (
	QualityPremium  = "premium"
	QualityStandard = "standard"
	QualityBasic    = "basic"
)

// QualityTier grades w: 11 or more populated fields is premium, 8 or more standard.
func QualityTier(w domain.VocabularyWord) string {
	switch n := w.PopulatedFields(); {
	case n >= 11:
		return QualityPremium
	case n >= 8:
		return QualityStandard
	default:
		return QualityBasic
	}
}

// VocabularyDistribution holds histograms over a vocabulary batch.
type VocabularyDistribution struct {
	Total      int            `json:"total"`
	ByLevel    map[string]int `json:"by_level"`
	ByCategory map[string]int `json:"by_category"`
	ByQuality  map[string]int `json:"by_quality"`
}

// AnalyzeVocabulary builds CEFR, category and quality-tier histograms.
func AnalyzeVocabulary(words []domain.VocabularyWord) VocabularyDistribution {
	d := VocabularyDistribution{
		Total:      len(words),
		ByLevel:    make(map[string]int),
		ByCategory: make(map[string]int),
		ByQuality:  make(map[string]int),
	}
	for _, w := range words {
		d.ByLevel[string(w.Difficulty)]++
		d.ByCategory[w.Category]++
		d.ByQuality[QualityTier(w)]++
	}
	return d
}

// ExerciseDistribution holds histograms over an exercise batch.
type ExerciseDistribution struct {
	Total   int            `json:"total"`
	ByLevel map[string]int `json:"by_level"`
	ByType  map[string]int `json:"by_type"`
}

// AnalyzeExercises builds CEFR and exercise-type histograms.
func AnalyzeExercises(exercises []domain.GrammarExercise) ExerciseDistribution {
	d := ExerciseDistribution{
		Total:   len(exercises),
		ByLevel: make(map[string]int),
		ByType:  make(map[string]int),
	}
	for _, e := range exercises {
		d.ByLevel[string(e.Difficulty)]++
		d.ByType[string(e.ExerciseType)]++
	}
	return d
}
