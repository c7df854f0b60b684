package generation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Parse strategies, reported for logging.
const (
	StrategyRaw      = "raw"
	StrategyFenced   = "fenced"
	StrategyBracket  = "bracket"
	StrategyRepaired = "repaired"
	StrategyTruncate = "truncated"
)

var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")

// ExtractJSON recovers a JSON value whose top level starts with open ('[' or '{')
// from model output. Strategies are tried in order: the raw text, the contents
// of a Markdown code fence, the outermost bracket pair, and finally structural
// repair (trailing commas dropped, unterminated strings and brackets closed,
// and if that is still invalid, the value cut back to its last complete
// element). It returns the JSON, the strategy that produced it, and on failure
// the best extracted text together with an error wrapping ErrParseFailure.
func ExtractJSON(text string, open byte) ([]byte, string, error) {
	closeCh := closerFor(open)
	if closeCh == 0 {
		return nil, "", fmt.Errorf("%w: unsupported opening token %q", ErrParseFailure, open)
	}

	candidate := strings.TrimSpace(text)
	if isJSONValue(candidate, open) {
		return []byte(candidate), StrategyRaw, nil
	}

	candidate = stripFences(candidate)
	if isJSONValue(candidate, open) {
		return []byte(candidate), StrategyFenced, nil
	}

	start := strings.IndexByte(candidate, open)
	if start < 0 {
		return []byte(candidate), "", fmt.Errorf("%w: no %q found in response", ErrParseFailure, open)
	}
	candidate = candidate[start:]
	if end := matchingClose(candidate); end > 0 {
		bracketed := candidate[:end+1]
		if isJSONValue(bracketed, open) {
			return []byte(bracketed), StrategyBracket, nil
		}
		candidate = bracketed
	}

	repaired, lastComplete := repair(candidate)
	if isJSONValue(repaired, open) {
		return []byte(repaired), StrategyRepaired, nil
	}

	if lastComplete > 0 {
		cut, _ := repair(candidate[:lastComplete])
		if isJSONValue(cut, open) {
			return []byte(cut), StrategyTruncate, nil
		}
	}

	return []byte(candidate), "", fmt.Errorf("%w: all strategies exhausted", ErrParseFailure)
}

func closerFor(open byte) byte {
	switch open {
	case '[':
		return ']'
	case '{':
		return '}'
	}
	return 0
}

func isJSONValue(s string, open byte) bool {
	return len(s) > 0 && s[0] == open && json.Valid([]byte(s))
}

// stripFences returns the body of the first Markdown code fence, or drops an
// opening fence left unterminated by truncation.
func stripFences(s string) string {
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			return strings.TrimSpace(s[nl+1:])
		}
	}
	return s
}

// matchingClose returns the index of the bracket closing s[0], or -1.
func matchingClose(s string) int {
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// repair removes trailing commas and closes whatever is left open.
// It also returns the offset just past the last element completed at depth 1,
// which is where a truncated top-level array or object can be cut.
func repair(s string) (string, int) {
	var out bytes.Buffer
	out.Grow(len(s) + 8)

	var stack []byte
	inString, escaped := false, false
	lastComplete := 0

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			out.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '[', '{':
			stack = append(stack, closerFor(c))
		case ']', '}':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if len(stack) == 1 {
				lastComplete = i + 1
			}
		case ',':
			if next := nextSignificant(s, i+1); next == ']' || next == '}' || next == 0 {
				continue
			}
		}
		out.WriteByte(c)
	}

	if inString {
		if escaped {
			out.Truncate(out.Len() - 1)
		}
		out.WriteByte('"')
	}

	repaired := strings.TrimRight(out.String(), " \t\r\n")
	repaired = strings.TrimSuffix(repaired, ",")
	for i := len(stack) - 1; i >= 0; i-- {
		repaired += string(stack[i])
	}
	return repaired, lastComplete
}

// nextSignificant returns the next non-whitespace byte at or after i, or 0.
func nextSignificant(s string, i int) byte {
	for ; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return s[i]
	}
	return 0
}
