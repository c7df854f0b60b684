package generation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-feeder/internal/domain"
	"github.com/phrazzld/scry-feeder/internal/validation"
)

// ExerciseRequest describes one exercise batch for a single topic.
type ExerciseRequest struct {
	Topic domain.GrammarTopic
	Count int
	// Types are the exercise types to cover; empty means the full set.
	Types []domain.ExerciseType
	// Difficulty defaults to the topic's level.
	Difficulty domain.Level
	// Exclude lists existing question texts of the topic.
	Exclude []string
}

func (r ExerciseRequest) difficulty() domain.Level {
	if r.Difficulty != "" {
		return r.Difficulty
	}
	return r.Topic.Difficulty
}

func (r ExerciseRequest) types() []string {
	types := r.Types
	if len(types) == 0 {
		types = domain.ExerciseTypes()
	}
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

// ExerciseResult is the outcome of GenerateExercises.
type ExerciseResult struct {
	Exercises    []domain.GrammarExercise
	AICalls      int
	Errors       []string
	Warnings     []string
	Distribution validation.ExerciseDistribution
	// Failure is non-empty when no valid exercises were produced.
	Failure string
}

// GenerateExercises produces up to req.Count validated exercises for req.Topic.
// Every returned exercise carries the topic's id.
func (g *Generator) GenerateExercises(ctx context.Context, req ExerciseRequest) ExerciseResult {
	var res ExerciseResult
	if req.Count <= 0 {
		res.Failure = fmt.Sprintf("%s: requested count must be positive", ErrGenerationFailed.Error())
		return res
	}

	log := g.logger.With(
		slog.String("topic", req.Topic.Name),
		slog.Int64("topic_id", req.Topic.ID),
		slog.Int("count", req.Count))
	log.InfoContext(ctx, "generating exercises")

	types := req.types()
	render := func(size int) (string, error) {
		return renderPrompt("exercises.tmpl", exercisePrompt{
			Count:         size,
			Topic:         req.Topic,
			Difficulty:    req.difficulty(),
			LevelGuidance: LevelGuidance(req.difficulty()),
			Types:         types,
			Exclude:       limitExcluded(req.Exclude),
		})
	}

	outcomes, calls := g.runChunks(ctx, "exercises", req.Count, '[', render)
	res.AICalls = calls

	var candidates []domain.GrammarExercise
	for i, out := range outcomes {
		if out.err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("chunk %d: %v", i+1, out.err))
			continue
		}
		exercises, decodeErrs := decodeElements[domain.GrammarExercise](out.payload)
		for _, err := range decodeErrs {
			res.Errors = append(res.Errors, fmt.Sprintf("chunk %d: %v", i+1, err))
		}
		for _, e := range exercises {
			candidates = append(candidates, postProcessExercise(e, req))
		}
	}

	report := g.validator.ValidateExercises(candidates)
	res.Exercises = report.Valid
	res.Errors = append(res.Errors, report.Errors...)
	res.Warnings = report.Warnings
	res.Distribution = validation.AnalyzeExercises(report.Valid)

	if len(res.Exercises) == 0 {
		res.Failure = failureReason(res.Errors)
	}

	log.InfoContext(ctx, "exercise generation finished",
		slog.Int("ai_calls", res.AICalls),
		slog.Int("candidates", len(candidates)),
		slog.Int("valid", len(res.Exercises)),
		slog.Int("errors", len(res.Errors)))
	return res
}
