// Package dedup detects duplicate vocabulary words and grammar exercises
// before they reach the corpus store.
//
// Every comparison happens on the normalized form of the text (see Normalize).
// Matching is exact first and then fuzzy, using an edit-distance similarity
// ratio against the existing corpus slice and the batch's already-kept items.
package dedup

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Default similarity thresholds. Exercise questions are longer, so near-identical
// text is a stronger duplicate signal and the bar is higher.
const (
	DefaultVocabularyThreshold = 0.85
	DefaultExerciseThreshold   = 0.90
)

var parenthetical = regexp.MustCompile(`\([^()]*\)`)

// determiners are the leading article tokens stripped from a key (German and English).
var determiners = map[string]struct{}{
	"der": {}, "die": {}, "das": {}, "den": {}, "dem": {}, "des": {},
	"ein": {}, "eine": {}, "einen": {}, "einem": {}, "einer": {}, "eines": {},
	"the": {}, "a": {}, "an": {},
}

// Normalize returns the comparison key for text: lower-cased, parenthetical
// annotations removed, whitespace collapsed, and leading determiners stripped
// while more than one token remains. Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	s := strings.ToLower(text)

	// Nested annotations unwrap one level per pass.
	for parenthetical.MatchString(s) {
		s = parenthetical.ReplaceAllString(s, " ")
	}

	tokens := strings.Fields(s)
	for len(tokens) > 1 {
		if _, ok := determiners[tokens[0]]; !ok {
			break
		}
		tokens = tokens[1:]
	}

	return strings.Join(tokens, " ")
}

// Similarity returns 1 - levenshtein(a', b')/max(len(a'), len(b')) over the runes
// of the normalized strings a' and b'. Two empty strings are identical.
func Similarity(a, b string) float64 {
	return similarityNormalized(Normalize(a), Normalize(b))
}

// FuzzyMatch reports whether Similarity(a, b) >= threshold.
func FuzzyMatch(a, b string, threshold float64) bool {
	return Similarity(a, b) >= threshold
}

func similarityNormalized(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1
	}
	distance := levenshtein.ComputeDistance(a, b)
	return 1 - float64(distance)/float64(longest)
}

// lengthBound is the best similarity two strings of these rune lengths can reach.
func lengthBound(a, b int) float64 {
	if a == 0 && b == 0 {
		return 1
	}
	if a > b {
		a, b = b, a
	}
	return float64(a) / float64(b)
}
