package generation

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/phrazzld/scry-feeder/internal/domain"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(
	template.New("prompts").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(promptFS, "prompts/*.tmpl"),
)

// maxExcludedInPrompt bounds how many existing items are listed in a prompt.
const maxExcludedInPrompt = 60

var levelGuidance = map[domain.Level]string{
	domain.LevelA1: "very common everyday words and short, simple sentences in the present tense",
	domain.LevelA2: "frequent words for routine situations; simple past events with Perfekt",
	domain.LevelB1: "standard vocabulary for work, travel and opinions; subordinate clauses",
	domain.LevelB2: "abstract and professional vocabulary; nuanced connectors and passive voice",
	domain.LevelC1: "precise, idiomatic and formal language for complex professional topics",
	domain.LevelC2: "rare, highly nuanced and stylistically marked expressions",
}

// LevelGuidance describes what content at level should look like.
func LevelGuidance(level domain.Level) string {
	if g, ok := levelGuidance[level]; ok {
		return g
	}
	return levelGuidance[domain.LevelB1]
}

type vocabularyPrompt struct {
	Count           int
	Category        string
	Subcategory     string
	Difficulty      domain.Level
	LevelGuidance   string
	PartsOfSpeech   []string
	ExamplesPerWord int
	Exclude         []string
}

type exercisePrompt struct {
	Count         int
	Topic         domain.GrammarTopic
	Difficulty    domain.Level
	LevelGuidance string
	Types         []string
	Exclude       []string
}

type topicPrompt struct {
	Name          string
	Category      string
	Difficulty    domain.Level
	LevelGuidance string
}

func renderPrompt(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template %s: %w", name, err)
	}
	return buf.String(), nil
}

func limitExcluded(items []string) []string {
	if len(items) <= maxExcludedInPrompt {
		return items
	}
	return items[:maxExcludedInPrompt]
}
