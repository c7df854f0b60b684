package generation

import (
	"encoding/json"
	"strings"

	"github.com/phrazzld/scry-feeder/internal/domain"
)

var emptyMarkers = map[string]struct{}{
	"": {}, "none": {}, "n/a": {}, "na": {}, "-": {}, "null": {}, "keine": {},
}

// NormalizeList cleans a loosely formatted synonym or antonym value.
// Empty markers (none, n/a, ...) and empty arrays become "", comma-separated
// text becomes a JSON array string, and well-formed non-empty arrays are kept.
func NormalizeList(value domain.LooseList) domain.LooseList {
	s := strings.TrimSpace(string(value))
	if isEmptyMarker(s) {
		return ""
	}

	if strings.HasPrefix(s, "[") {
		var items []any
		if err := json.Unmarshal([]byte(s), &items); err == nil {
			if len(items) == 0 {
				return ""
			}
			return domain.LooseList(s)
		}
		// Not valid JSON; treat the bracket contents as plain text.
		s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	}

	parts := strings.Split(s, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), `"'`)
		if isEmptyMarker(p) {
			continue
		}
		items = append(items, p)
	}
	if len(items) == 0 {
		return ""
	}
	return domain.LooseList(domain.FormatList(items))
}

func isEmptyMarker(s string) bool {
	_, ok := emptyMarkers[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// postProcessWord normalizes list fields and fills request-level defaults the
// model left out. A requested category always replaces the model's, so stored
// rows carry the configured key the gap analyzer and dedup filter query by.
func postProcessWord(w domain.VocabularyWord, req VocabularyRequest) domain.VocabularyWord {
	w.Word = strings.TrimSpace(w.Word)
	w.Synonyms = NormalizeList(w.Synonyms)
	w.Antonyms = NormalizeList(w.Antonyms)
	w.PartOfSpeech = strings.ToLower(strings.TrimSpace(w.PartOfSpeech))
	w.Gender = strings.ToLower(strings.TrimSpace(w.Gender))
	if req.Category != "" {
		w.Category = req.Category
	}
	if w.Subcategory == "" {
		w.Subcategory = req.Subcategory
	}
	if w.Difficulty == "" {
		w.Difficulty = req.Difficulty
	} else if level, err := domain.ParseLevel(string(w.Difficulty)); err == nil {
		w.Difficulty = level
	}
	return w
}

func postProcessExercise(e domain.GrammarExercise, req ExerciseRequest) domain.GrammarExercise {
	e.TopicID = req.Topic.ID
	e.QuestionText = strings.TrimSpace(e.QuestionText)
	e.CorrectAnswer = strings.TrimSpace(e.CorrectAnswer)
	e.AlternativeAnswers = NormalizeList(e.AlternativeAnswers)
	e.Hints = NormalizeList(e.Hints)
	e.ExerciseType = domain.ExerciseType(strings.ToLower(strings.TrimSpace(string(e.ExerciseType))))
	if e.Difficulty == "" {
		e.Difficulty = req.difficulty()
	} else if level, err := domain.ParseLevel(string(e.Difficulty)); err == nil {
		e.Difficulty = level
	}
	return e
}
