package domain

import (
	"encoding/json"
	"testing"
)

func TestFlagUnmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		value   bool
		invalid bool
	}{
		{`true`, true, false},
		{`false`, false, false},
		{`1`, true, false},
		{`0`, false, false},
		{`"1"`, true, false},
		{`"0"`, false, false},
		{`"true"`, true, false},
		{`"false"`, false, false},
		{`null`, false, false},
		{`"yes"`, false, true},
		{`2`, false, true},
		{`""`, false, true},
	}

	for _, tt := range tests {
		var f Flag
		if err := json.Unmarshal([]byte(tt.input), &f); err != nil {
			t.Fatalf("Unmarshal(%s) returned error: %v", tt.input, err)
		}
		if f.Value != tt.value || f.Invalid != tt.invalid {
			t.Errorf("Unmarshal(%s) = {Value:%v Invalid:%v}, want {Value:%v Invalid:%v}",
				tt.input, f.Value, f.Invalid, tt.value, tt.invalid)
		}
	}
}

func TestFlagInsideRecord(t *testing.T) {
	t.Parallel()

	var w VocabularyWord
	input := `{"word":"abheben","is_separable_verb":"1","is_idiom":0,"is_compound":"maybe"}`
	if err := json.Unmarshal([]byte(input), &w); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if !w.IsSeparableVerb.Value || w.IsSeparableVerb.Invalid {
		t.Errorf("is_separable_verb decoded as %+v", w.IsSeparableVerb)
	}
	if w.IsIdiom.Value || w.IsIdiom.Invalid {
		t.Errorf("is_idiom decoded as %+v", w.IsIdiom)
	}
	if !w.IsCompound.Invalid {
		t.Errorf("is_compound should be invalid, got %+v", w.IsCompound)
	}
	if w.IsCompound.Raw != `"maybe"` {
		t.Errorf("is_compound raw = %q", w.IsCompound.Raw)
	}
}

func TestLooseListUnmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  LooseList
	}{
		{`"schnell, rasch"`, "schnell, rasch"},
		{`["schnell","rasch"]`, `["schnell", "rasch"]`},
		{`[]`, "[]"},
		{`null`, ""},
		{`"[\"a\", \"b\"]"`, `["a", "b"]`},
	}

	for _, tt := range tests {
		var l LooseList
		if err := json.Unmarshal([]byte(tt.input), &l); err != nil {
			t.Fatalf("Unmarshal(%s) returned error: %v", tt.input, err)
		}
		if l != tt.want {
			t.Errorf("Unmarshal(%s) = %q, want %q", tt.input, l, tt.want)
		}
	}
}

func TestFormatList(t *testing.T) {
	t.Parallel()

	if got := FormatList([]string{"Geld", "Kapital"}); got != `["Geld", "Kapital"]` {
		t.Errorf("FormatList = %q", got)
	}
	if got := FormatList(nil); got != "[]" {
		t.Errorf("FormatList(nil) = %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	l, err := ParseLevel(" b2 ")
	if err != nil || l != LevelB2 {
		t.Errorf("ParseLevel(\" b2 \") = %q, %v", l, err)
	}
	if _, err := ParseLevel("D1"); err == nil {
		t.Error("expected error for D1")
	}
	if LevelA2.Tier() != TierFoundational || LevelB1.Tier() != TierCore || LevelC2.Tier() != TierAdvanced {
		t.Error("unexpected tier mapping")
	}
}

func TestPopulatedFields(t *testing.T) {
	t.Parallel()

	w := VocabularyWord{
		Word:         "der Hund",
		Translation:  "dog",
		PartOfSpeech: "noun",
		Gender:       GenderMasculine,
		Difficulty:   LevelA1,
		Category:     "everyday",
		ExampleDE:    "Der Hund bellt.",
		ExampleEN:    "The dog barks.",
	}
	if n := w.PopulatedFields(); n != 8 {
		t.Errorf("PopulatedFields = %d, want 8", n)
	}
}
