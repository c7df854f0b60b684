package domain

import (
	"fmt"
	"strings"
)

// Level is a CEFR proficiency level.
type Level string

// CEFR levels, easiest first.
const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
	LevelC2 Level = "C2"
)

// Levels returns every CEFR level in ascending order.
func Levels() []Level {
	return []Level{LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2}
}

// Valid reports whether l is one of the six CEFR levels.
func (l Level) Valid() bool {
	switch l {
	case LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2:
		return true
	}
	return false
}

// Tier groups levels into foundational (A), core (B) and advanced (C).
func (l Level) Tier() Tier {
	switch l {
	case LevelA1, LevelA2:
		return TierFoundational
	case LevelB1, LevelB2:
		return TierCore
	default:
		return TierAdvanced
	}
}

// ParseLevel parses a CEFR level case-insensitively.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
	return l, nil
}

// Tier is a coarse difficulty band used by grammar prioritization.
type Tier int

// Difficulty tiers.
const (
	TierFoundational Tier = iota
	TierCore
	TierAdvanced
)

// ContentType identifies which corpus a run feeds.
type ContentType string

// Content types.
const (
	ContentVocabulary ContentType = "vocabulary"
	ContentGrammar    ContentType = "grammar"
)

// Valid reports whether t is vocabulary or grammar.
func (t ContentType) Valid() bool {
	return t == ContentVocabulary || t == ContentGrammar
}

// ParseContentType parses "vocabulary" or "grammar".
func ParseContentType(s string) (ContentType, error) {
	t := ContentType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidContentType, s)
	}
	return t, nil
}
