package dedup

import (
	"unicode/utf8"

	"github.com/phrazzld/scry-feeder/internal/domain"
)

// Duplicate describes a rejected candidate and what it collided with.
type Duplicate[T any] struct {
	Item       T
	Match      string
	Similarity float64
	// InBatch is true when the collision was with an earlier candidate of the same batch.
	InBatch bool
}

// Result partitions a batch into kept and rejected items, both in input order.
type Result[T any] struct {
	Unique     []T
	Duplicates []Duplicate[T]
}

// Index is a normalized view of an existing corpus slice.
type Index struct {
	keys  []string
	runes []int
	exact map[string]struct{}
}

// NewIndex normalizes existing and indexes it for exact and fuzzy lookups.
func NewIndex(existing []string) *Index {
	idx := &Index{
		keys:  make([]string, 0, len(existing)),
		runes: make([]int, 0, len(existing)),
		exact: make(map[string]struct{}, len(existing)),
	}
	for _, text := range existing {
		idx.add(Normalize(text))
	}
	return idx
}

// Len returns the number of distinct keys in the index.
func (idx *Index) Len() int {
	return len(idx.keys)
}

func (idx *Index) add(key string) {
	if _, ok := idx.exact[key]; ok {
		return
	}
	idx.exact[key] = struct{}{}
	idx.keys = append(idx.keys, key)
	idx.runes = append(idx.runes, utf8.RuneCountInString(key))
}

// lookup returns the first key matching key exactly, or else the most similar
// key at or above threshold.
func (idx *Index) lookup(key string, threshold float64) (string, float64, bool) {
	if _, ok := idx.exact[key]; ok {
		return key, 1, true
	}

	n := utf8.RuneCountInString(key)
	best, bestScore, found := "", 0.0, false
	for i, candidate := range idx.keys {
		if lengthBound(n, idx.runes[i]) < threshold {
			continue
		}
		if score := similarityNormalized(key, candidate); score >= threshold && score > bestScore {
			best, bestScore, found = candidate, score, true
		}
	}
	return best, bestScore, found
}

// Filter splits items into unique and duplicate partitions. Each item's key is
// checked for an exact hit in existing, then fuzzily against every existing
// entry, then against the items already kept from this batch.
func Filter[T any](items []T, key func(T) string, existing *Index, threshold float64) Result[T] {
	if existing == nil {
		existing = NewIndex(nil)
	}
	seen := NewIndex(nil)
	res := Result[T]{Unique: make([]T, 0, len(items))}

	for _, item := range items {
		k := Normalize(key(item))

		if match, score, ok := existing.lookup(k, threshold); ok {
			res.Duplicates = append(res.Duplicates, Duplicate[T]{Item: item, Match: match, Similarity: score})
			continue
		}
		if match, score, ok := seen.lookup(k, threshold); ok {
			res.Duplicates = append(res.Duplicates, Duplicate[T]{Item: item, Match: match, Similarity: score, InBatch: true})
			continue
		}

		seen.add(k)
		res.Unique = append(res.Unique, item)
	}

	return res
}

// FilterVocabulary removes candidates whose word duplicates an existing word or
// an earlier candidate.
func FilterVocabulary(candidates []domain.VocabularyWord, existing []string, threshold float64) Result[domain.VocabularyWord] {
	return Filter(candidates, func(w domain.VocabularyWord) string { return w.Word }, NewIndex(existing), threshold)
}

// FilterExercises removes candidates whose question text duplicates one of
// existing, the question texts of a single topic, or an earlier candidate.
func FilterExercises(candidates []domain.GrammarExercise, existing []string, threshold float64) Result[domain.GrammarExercise] {
	return Filter(candidates, func(e domain.GrammarExercise) string { return e.QuestionText }, NewIndex(existing), threshold)
}
