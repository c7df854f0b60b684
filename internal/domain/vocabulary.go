package domain

import "time"

// Grammatical genders and the article a noun of that gender takes.
const (
	GenderMasculine = "masculine"
	GenderFeminine  = "feminine"
	GenderNeuter    = "neuter"
)

// ArticleFor returns the definite article for gender, or "" for an unknown gender.
func ArticleFor(gender string) string {
	switch gender {
	case GenderMasculine:
		return "der"
	case GenderFeminine:
		return "die"
	case GenderNeuter:
		return "das"
	}
	return ""
}

// VocabularyWord is a single German vocabulary entry.
// JSON names match the field schema requested from the generative AI.
// Nouns carry their article in Word ("der Hund").
type VocabularyWord struct {
	ID              int64     `json:"id,omitempty"`
	Word            string    `json:"word" validate:"required"`
	Translation     string    `json:"translation_en" validate:"required"`
	PartOfSpeech    string    `json:"part_of_speech" validate:"required"`
	Gender          string    `json:"gender,omitempty" validate:"omitempty,oneof=masculine feminine neuter"`
	PluralForm      string    `json:"plural_form,omitempty"`
	Difficulty      Level     `json:"difficulty_level" validate:"required"`
	Category        string    `json:"category" validate:"required"`
	Subcategory     string    `json:"subcategory,omitempty"`
	ExampleDE       string    `json:"example_sentence_de" validate:"required"`
	ExampleEN       string    `json:"example_sentence_en" validate:"required"`
	Pronunciation   string    `json:"pronunciation,omitempty"`
	DefinitionDE    string    `json:"definition_de,omitempty"`
	Synonyms        LooseList `json:"synonyms,omitempty"`
	Antonyms        LooseList `json:"antonyms,omitempty"`
	UsageNotes      string    `json:"usage_notes,omitempty"`
	IsIdiom         Flag      `json:"is_idiom"`
	IsCompound      Flag      `json:"is_compound"`
	IsSeparableVerb Flag      `json:"is_separable_verb"`
	CreatedAt       time.Time `json:"created_at,omitempty"`
}

// PopulatedFields counts the non-empty text fields of w.
// The validator derives the quality tier from this count.
func (w *VocabularyWord) PopulatedFields() int {
	fields := []string{
		w.Word, w.Translation, w.PartOfSpeech, w.Gender, w.PluralForm,
		string(w.Difficulty), w.Category, w.Subcategory, w.ExampleDE, w.ExampleEN,
		w.Pronunciation, w.DefinitionDE, string(w.Synonyms), string(w.Antonyms), w.UsageNotes,
	}
	n := 0
	for _, f := range fields {
		if f != "" {
			n++
		}
	}
	return n
}
