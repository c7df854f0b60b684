// Package validation checks AI-generated vocabulary words, grammar exercises
// and grammar topics before they are deduplicated and stored.
//
// Invalid items are dropped from a batch and reported as errors. Exact
// case-insensitive repeats within one batch are only warnings; near-duplicates
// are the deduplicator's concern.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/scry-feeder/internal/domain"
)

// listPattern matches a JSON array string of one or more strings: ["a", "b"].
var listPattern = regexp.MustCompile(`^\[\s*"(?:[^"\\]|\\.)*"(?:\s*,\s*"(?:[^"\\]|\\.)*")*\s*\]$`)

// Rules are the configured value sets items are checked against.
// An empty set disables the corresponding check.
type Rules struct {
	Categories    []string
	PartsOfSpeech []string
}

// Validator applies struct tags and business rules to generated items.
type Validator struct {
	validate      *validator.Validate
	categories    map[string]struct{}
	partsOfSpeech map[string]struct{}
}

// New creates a Validator for rules.
func New(rules Rules) *Validator {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{
		validate:      validate,
		categories:    toSet(rules.Categories),
		partsOfSpeech: toSet(rules.PartsOfSpeech),
	}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(v)] = struct{}{}
	}
	return set
}

// Report is the outcome of validating one batch.
type Report[T any] struct {
	Valid    []T
	Errors   []string
	Warnings []string
}

// Invalid returns how many items were rejected.
func (r Report[T]) Invalid(total int) int {
	return total - len(r.Valid)
}

// ValidateVocabulary validates words and returns the valid ones in input order.
func (v *Validator) ValidateVocabulary(words []domain.VocabularyWord) Report[domain.VocabularyWord] {
	report := Report[domain.VocabularyWord]{Valid: make([]domain.VocabularyWord, 0, len(words))}
	seen := make(map[string]int, len(words))

	for i, w := range words {
		if err := v.CheckWord(w); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("item %d (%q): %v", i, w.Word, err))
			continue
		}

		key := strings.ToLower(strings.TrimSpace(w.Word))
		if first, ok := seen[key]; ok {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("item %d (%q) repeats item %d in the same batch", i, w.Word, first))
		} else {
			seen[key] = i
		}
		report.Valid = append(report.Valid, w)
	}

	return report
}

// CheckWord validates a single vocabulary word.
func (v *Validator) CheckWord(w domain.VocabularyWord) error {
	var problems []string

	problems = append(problems, v.structProblems(w)...)

	if w.Difficulty != "" && !w.Difficulty.Valid() {
		problems = append(problems, fmt.Sprintf("difficulty_level %q is not a CEFR level", w.Difficulty))
	}
	if w.Category != "" && len(v.categories) > 0 {
		if _, ok := v.categories[strings.ToLower(w.Category)]; !ok {
			problems = append(problems, fmt.Sprintf("category %q is not configured", w.Category))
		}
	}
	if w.PartOfSpeech != "" && len(v.partsOfSpeech) > 0 {
		if _, ok := v.partsOfSpeech[strings.ToLower(w.PartOfSpeech)]; !ok {
			problems = append(problems, fmt.Sprintf("part_of_speech %q is not configured", w.PartOfSpeech))
		}
	}

	if strings.EqualFold(w.PartOfSpeech, "noun") {
		if p := checkNounArticle(w.Word, w.Gender); p != "" {
			problems = append(problems, p)
		}
	}

	flags := []struct {
		name string
		flag domain.Flag
	}{
		{"is_idiom", w.IsIdiom},
		{"is_compound", w.IsCompound},
		{"is_separable_verb", w.IsSeparableVerb},
	}
	for _, f := range flags {
		if f.flag.Invalid {
			problems = append(problems, fmt.Sprintf("%s must be boolean or 0/1, got %s", f.name, f.flag.Raw))
		}
	}

	problems = append(problems, listProblem("synonyms", w.Synonyms)...)
	problems = append(problems, listProblem("antonyms", w.Antonyms)...)

	return joinProblems(problems)
}

func checkNounArticle(word, gender string) string {
	if gender == "" {
		return "nouns require a gender"
	}
	article := domain.ArticleFor(gender)
	if article == "" {
		return fmt.Sprintf("gender %q is not masculine, feminine or neuter", gender)
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(word)), article+" ") {
		return fmt.Sprintf("%s noun must start with %q", gender, article+" ")
	}
	return ""
}

// ValidateExercises validates exercises and returns the valid ones in input order.
func (v *Validator) ValidateExercises(exercises []domain.GrammarExercise) Report[domain.GrammarExercise] {
	report := Report[domain.GrammarExercise]{Valid: make([]domain.GrammarExercise, 0, len(exercises))}
	seen := make(map[string]int, len(exercises))

	for i, e := range exercises {
		if err := v.CheckExercise(e); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("exercise %d (%q): %v", i, e.QuestionText, err))
			continue
		}

		key := strings.ToLower(strings.TrimSpace(e.QuestionText))
		if first, ok := seen[key]; ok {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("exercise %d repeats exercise %d in the same batch", i, first))
		} else {
			seen[key] = i
		}
		report.Valid = append(report.Valid, e)
	}

	return report
}

// CheckExercise validates a single grammar exercise.
func (v *Validator) CheckExercise(e domain.GrammarExercise) error {
	problems := v.structProblems(e)

	if e.ExerciseType != "" && !e.ExerciseType.Valid() {
		problems = append(problems, fmt.Sprintf("exercise_type %q is not supported", e.ExerciseType))
	}
	if e.Difficulty != "" && !e.Difficulty.Valid() {
		problems = append(problems, fmt.Sprintf("difficulty_level %q is not a CEFR level", e.Difficulty))
	}
	problems = append(problems, listProblem("alternative_answers", e.AlternativeAnswers)...)
	problems = append(problems, listProblem("hints", e.Hints)...)

	return joinProblems(problems)
}

// CheckTopic validates AI-authored topic metadata.
func (v *Validator) CheckTopic(t domain.GrammarTopic) error {
	problems := v.structProblems(t)
	if t.Difficulty != "" && !t.Difficulty.Valid() {
		problems = append(problems, fmt.Sprintf("difficulty_level %q is not a CEFR level", t.Difficulty))
	}
	return joinProblems(problems)
}

func (v *Validator) structProblems(s any) []string {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			problems = append(problems, fmt.Sprintf("%s is required", fe.Field()))
		case "oneof":
			problems = append(problems, fmt.Sprintf("%s must be one of [%s], got %v", fe.Field(), fe.Param(), fe.Value()))
		default:
			problems = append(problems, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return problems
}

func listProblem(name string, list domain.LooseList) []string {
	if list == "" || listPattern.MatchString(string(list)) {
		return nil
	}
	return []string{fmt.Sprintf("%s must be a JSON array of strings, got %s", name, list)}
}

func joinProblems(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(problems, "; "))
}
