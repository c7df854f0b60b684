package dedup_test

import (
	"testing"

	"github.com/phrazzld/scry-feeder/internal/dedup"
	"github.com/phrazzld/scry-feeder/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"article and spacing", "  Der   Hund  ", "hund"},
		{"annotation", "die Bank (financial)", "bank"},
		{"lone article kept", "der", "der"},
		{"english determiners", "the a cat", "cat"},
		{"verb forms annotation", "laufen (lief, gelaufen)", "laufen"},
		{"nested annotation", "((nested) note) Wort", "wort"},
		{"only leading determiners", "Eine Frage der Zeit", "frage der zeit"},
		{"umlauts preserved", "Die Zahlung", "zahlung"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, dedup.Normalize(tt.input))
		})
	}
}

func FuzzNormalizeIdempotent(f *testing.F) {
	for _, seed := range []string{
		"der Hund", "Die Bank (financial)", "((a) b) c", "the", "  ein  eine  ",
		"Ärger (m.) im Büro", "(unclosed", "a)", "",
	} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, s string) {
		once := dedup.Normalize(s)
		if twice := dedup.Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", s, once, twice)
		}
	})
}

func TestSimilarity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, dedup.Similarity("", ""))
	assert.Equal(t, 0.0, dedup.Similarity("abc", ""))
	assert.Equal(t, 1.0, dedup.Similarity("der Hund", "Hund"))
	assert.InDelta(t, 1-1.0/17, dedup.Similarity("Geschäftsbericht", "Geschäftsberichte"), 1e-9)
}

func TestFuzzyMatch(t *testing.T) {
	t.Parallel()

	assert.True(t, dedup.FuzzyMatch("der Hund", "Hund", dedup.DefaultVocabularyThreshold))
	assert.False(t, dedup.FuzzyMatch("Zahlung", "Zahlungsverkehr", dedup.DefaultVocabularyThreshold))

	pairs := [][2]string{
		{"Zahlung", "Zahlungsverkehr"},
		{"die Rechnung", "Rechnungen"},
		{"Ich gehe nach Hause.", "Ich ging nach Hause."},
		{"", "x"},
	}
	for _, p := range pairs {
		for _, threshold := range []float64{0.5, 0.85, 0.9} {
			assert.Equal(t,
				dedup.FuzzyMatch(p[0], p[1], threshold),
				dedup.FuzzyMatch(p[1], p[0], threshold),
				"FuzzyMatch should be symmetric for %q/%q at %v", p[0], p[1], threshold)
		}
	}
}

func TestFilterVocabulary(t *testing.T) {
	t.Parallel()

	existing := []string{"der Hund", "Zahlung", "der Geschäftsbericht"}
	candidates := []domain.VocabularyWord{
		{Word: "Hund"},
		{Word: "Zahlungsverkehr"},
		{Word: "die Geschäftsberichte"},
		{Word: "die Bank"},
		{Word: "Bank (Geldinstitut)"},
		{Word: "die Rendite"},
	}

	res := dedup.FilterVocabulary(candidates, existing, dedup.DefaultVocabularyThreshold)

	require.Len(t, res.Unique, 3)
	assert.Equal(t, "Zahlungsverkehr", res.Unique[0].Word)
	assert.Equal(t, "die Bank", res.Unique[1].Word)
	assert.Equal(t, "die Rendite", res.Unique[2].Word)

	require.Len(t, res.Duplicates, 3)
	assert.Equal(t, "Hund", res.Duplicates[0].Item.Word)
	assert.Equal(t, "hund", res.Duplicates[0].Match)
	assert.Equal(t, 1.0, res.Duplicates[0].Similarity)
	assert.False(t, res.Duplicates[0].InBatch)

	assert.Equal(t, "die Geschäftsberichte", res.Duplicates[1].Item.Word)
	assert.Equal(t, "geschäftsbericht", res.Duplicates[1].Match)

	assert.Equal(t, "Bank (Geldinstitut)", res.Duplicates[2].Item.Word)
	assert.True(t, res.Duplicates[2].InBatch, "sibling in the same batch should be caught")
}

func TestFilterExercises(t *testing.T) {
	t.Parallel()

	existing := []string{"Ich ___ (gehen) gestern ins Kino."}
	candidates := []domain.GrammarExercise{
		{QuestionText: "Ich ___ gestern ins Kino."},
		{QuestionText: "Wir ___ morgen nach Berlin."},
		{QuestionText: "Wir ___ morgen nach Berlin!"},
	}

	res := dedup.FilterExercises(candidates, existing, dedup.DefaultExerciseThreshold)

	require.Len(t, res.Unique, 1)
	assert.Equal(t, "Wir ___ morgen nach Berlin.", res.Unique[0].QuestionText)
	require.Len(t, res.Duplicates, 2)
	assert.False(t, res.Duplicates[0].InBatch)
	assert.True(t, res.Duplicates[1].InBatch)
}

func TestFilterEmptyInputs(t *testing.T) {
	t.Parallel()

	res := dedup.Filter[string](nil, func(s string) string { return s }, nil, 0.85)
	assert.Empty(t, res.Unique)
	assert.Empty(t, res.Duplicates)

	idx := dedup.NewIndex([]string{"der Hund", "Hund", "die Katze"})
	assert.Equal(t, 2, idx.Len())
}
