// Package redact masks credentials before they reach logs, the monitoring
// endpoints or the printed configuration. It covers database connection
// strings, API keys (including Gemini "AIza" keys) and password parameters.
package redact

import (
	"net/url"
	"regexp"
)

// Placeholders substituted for redacted values.
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
)

var (
	// userinfo of a URL-style connection string
	dbConnRegex = regexp.MustCompile(`(?i)\b(postgres|postgresql|pgx)://[^@\s/]+@`)

	passwordRegex = regexp.MustCompile(`(?i)\b(password|passwd|pwd)([=:]\s*['"]?)[^'"&\s]{3,}`)
	apiKeyRegex   = regexp.MustCompile(
		`(?i)\b(api[_-]?key|gemini[_-]api[_-]key|token|secret|key)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`,
	)
	googleKeyRegex = regexp.MustCompile(`\bAIza[0-9A-Za-z_\-]{20,}`)

	replacements = []struct {
		pattern     *regexp.Regexp
		replacement string
	}{
		{dbConnRegex, "${1}://" + RedactedCredentialPlaceholder + "@"},
		{passwordRegex, "${1}${2}" + RedactedCredentialPlaceholder},
		{apiKeyRegex, "${1}${2}" + RedactedKeyPlaceholder},
		{googleKeyRegex, RedactedKeyPlaceholder},
	}
)

// String redacts credentials from input.
func String(input string) string {
	if input == "" {
		return input
	}
	result := input
	for _, r := range replacements {
		result = r.pattern.ReplaceAllString(result, r.replacement)
	}
	return result
}

// Error redacts credentials from err's message.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

// URL replaces the password of a connection URL, keeping user, host and
// database visible. Unparsable input falls back to String.
func URL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return String(raw)
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

// Secret returns RedactionPlaceholder for a non-empty secret and "" otherwise,
// so a printed configuration shows whether a secret is set.
func Secret(value string) string {
	if value == "" {
		return ""
	}
	return RedactionPlaceholder
}
