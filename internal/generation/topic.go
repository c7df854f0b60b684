package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/scry-feeder/internal/config"
	"github.com/phrazzld/scry-feeder/internal/domain"
)

// TopicResult is the outcome of GenerateTopic.
type TopicResult struct {
	Topic   *domain.GrammarTopic
	AICalls int
	Errors  []string
	// Failure is non-empty when no valid topic was produced.
	Failure string
}

// GenerateTopic asks the AI for the metadata of a new grammar topic.
// Name, category and difficulty always follow spec, whatever the model returns.
func (g *Generator) GenerateTopic(ctx context.Context, spec config.TopicSpec) TopicResult {
	var res TopicResult
	level, err := domain.ParseLevel(spec.Difficulty)
	if err != nil {
		res.Failure = fmt.Sprintf("%s: %v", ErrGenerationFailed.Error(), err)
		return res
	}

	log := g.logger.With(slog.String("topic", spec.Name), slog.String("category", spec.Category))
	log.InfoContext(ctx, "generating topic metadata")

	prompt, err := renderPrompt("topic.tmpl", topicPrompt{
		Name:          spec.Name,
		Category:      spec.Category,
		Difficulty:    level,
		LevelGuidance: LevelGuidance(level),
	})
	if err != nil {
		res.Failure = fmt.Sprintf("%s: %v", ErrGenerationFailed.Error(), err)
		return res
	}

	res.AICalls = 1
	text, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		res.Failure = failureReason(res.Errors)
		log.WarnContext(ctx, "topic generation failed", slog.String("error", err.Error()))
		return res
	}

	payload, _, err := ExtractJSON(text, '{')
	if err != nil {
		path := g.dumpDebug("topic", 1, text, payload)
		res.Errors = append(res.Errors, fmt.Sprintf("%v (debug dump: %s)", err, path))
		res.Failure = failureReason(res.Errors)
		return res
	}

	var topic domain.GrammarTopic
	if err := json.Unmarshal(payload, &topic); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("%v: %v", ErrInvalidResponse, err))
		res.Failure = failureReason(res.Errors)
		return res
	}

	topic.ID = 0
	topic.Name = spec.Name
	topic.Category = spec.Category
	topic.Difficulty = level
	topic.NameDE = strings.TrimSpace(topic.NameDE)
	topic.Description = strings.TrimSpace(topic.Description)

	if err := g.validator.CheckTopic(topic); err != nil {
		res.Errors = append(res.Errors, err.Error())
		res.Failure = failureReason(res.Errors)
		return res
	}

	res.Topic = &topic
	log.InfoContext(ctx, "topic metadata generated", slog.String("name_de", topic.NameDE))
	return res
}
