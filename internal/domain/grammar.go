package domain

import (
	"fmt"
	"time"
)

// ExerciseType is the form a grammar exercise takes.
type ExerciseType string

// The fixed set of exercise types every topic should eventually cover.
const (
	ExerciseFillBlank        ExerciseType = "fill_blank"
	ExerciseMultipleChoice   ExerciseType = "multiple_choice"
	ExerciseTranslation      ExerciseType = "translation"
	ExerciseErrorCorrection  ExerciseType = "error_correction"
	ExerciseSentenceBuilding ExerciseType = "sentence_building"
)

// ExerciseTypes returns the fixed exercise-type set in canonical order.
func ExerciseTypes() []ExerciseType {
	return []ExerciseType{
		ExerciseFillBlank,
		ExerciseMultipleChoice,
		ExerciseTranslation,
		ExerciseErrorCorrection,
		ExerciseSentenceBuilding,
	}
}

// Valid reports whether t belongs to the fixed set.
func (t ExerciseType) Valid() bool {
	for _, known := range ExerciseTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// ParseExerciseType validates s as an exercise type.
func ParseExerciseType(s string) (ExerciseType, error) {
	t := ExerciseType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidExerciseType, s)
	}
	return t, nil
}

// GrammarTopic is a grammar subject that exercises are grouped under.
type GrammarTopic struct {
	ID          int64     `json:"id,omitempty"`
	Name        string    `json:"name" validate:"required"`
	NameDE      string    `json:"name_de,omitempty"`
	Category    string    `json:"category" validate:"required"`
	Subcategory string    `json:"subcategory,omitempty"`
	Difficulty  Level     `json:"difficulty_level" validate:"required"`
	Description string    `json:"description" validate:"required"`
	Explanation string    `json:"explanation,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// GrammarExercise is a single practice item belonging to a topic.
type GrammarExercise struct {
	ID                 int64        `json:"id,omitempty"`
	TopicID            int64        `json:"topic_id,omitempty"`
	ExerciseType       ExerciseType `json:"exercise_type" validate:"required"`
	Difficulty         Level        `json:"difficulty_level" validate:"required"`
	QuestionText       string       `json:"question_text" validate:"required"`
	CorrectAnswer      string       `json:"correct_answer" validate:"required"`
	AlternativeAnswers LooseList    `json:"alternative_answers,omitempty"`
	Explanation        string       `json:"explanation,omitempty"`
	Hints              LooseList    `json:"hints,omitempty"`
	ContextCategory    string       `json:"context_category,omitempty"`
	CreatedAt          time.Time    `json:"created_at,omitempty"`
}
