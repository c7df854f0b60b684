package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Flag is a lenient boolean decoded from AI output.
// It accepts true/false, 0/1, "0"/"1" and "true"/"false". Any other value
// decodes without error but leaves Invalid set, so the validator can report it.
type Flag struct {
	Value   bool
	Invalid bool
	Raw     string
}

// NewFlag returns a valid flag holding v.
func NewFlag(v bool) Flag {
	return Flag{Value: v}
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	*f = Flag{Raw: raw}

	if raw == "null" {
		return nil
	}

	switch strings.Trim(strings.ToLower(raw), `"`) {
	case "true", "1":
		f.Value = true
	case "false", "0":
	default:
		f.Invalid = true
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Value)
}

// LooseList holds a synonym or antonym list in its persisted form: a JSON
// array string such as ["a", "b"]. It decodes from either a JSON string
// (kept verbatim for post-processing) or a JSON array (compacted).
type LooseList string

// UnmarshalJSON implements json.Unmarshaler.
func (l *LooseList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*l = ""
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("%w: list string: %v", ErrInvalidFormat, err)
		}
		*l = LooseList(s)
	case '[':
		var items []any
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return fmt.Errorf("%w: list array: %v", ErrInvalidFormat, err)
		}
		*l = LooseList(formatList(items))
	default:
		*l = LooseList(trimmed)
	}
	return nil
}

// FormatList renders items as the canonical `["a", "b"]` array string.
func FormatList(items []string) string {
	values := make([]any, len(items))
	for i, item := range items {
		values[i] = item
	}
	return formatList(values)
}

func formatList(items []any) string {
	if len(items) == 0 {
		return "[]"
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			s = fmt.Sprint(item)
		}
		encoded, _ := json.Marshal(s)
		parts = append(parts, string(encoded))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
