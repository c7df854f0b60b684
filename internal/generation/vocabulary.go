package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-feeder/internal/domain"
	"github.com/phrazzld/scry-feeder/internal/validation"
)

// VocabularyRequest describes one vocabulary batch.
type VocabularyRequest struct {
	Category      string
	Subcategory   string
	Count         int
	Difficulty    domain.Level
	PartsOfSpeech []string
	// Exclude lists existing words the model is told to avoid.
	Exclude []string
}

// VocabularyResult is the outcome of GenerateVocabulary.
type VocabularyResult struct {
	Words        []domain.VocabularyWord
	AICalls      int
	Errors       []string
	Warnings     []string
	Distribution validation.VocabularyDistribution
	// Failure is non-empty when no valid words were produced.
	Failure string
}

// GenerateVocabulary produces up to req.Count validated words, chunking the
// request into sequential AI calls when it exceeds the chunk size.
func (g *Generator) GenerateVocabulary(ctx context.Context, req VocabularyRequest) VocabularyResult {
	var res VocabularyResult
	if req.Count <= 0 {
		res.Failure = fmt.Sprintf("%s: requested count must be positive", ErrGenerationFailed.Error())
		return res
	}

	log := g.logger.With(
		slog.String("category", req.Category),
		slog.String("difficulty", string(req.Difficulty)),
		slog.Int("count", req.Count))
	log.InfoContext(ctx, "generating vocabulary")

	render := func(size int) (string, error) {
		return renderPrompt("vocabulary.tmpl", vocabularyPrompt{
			Count:           size,
			Category:        req.Category,
			Subcategory:     req.Subcategory,
			Difficulty:      req.Difficulty,
			LevelGuidance:   LevelGuidance(req.Difficulty),
			PartsOfSpeech:   req.PartsOfSpeech,
			ExamplesPerWord: g.examples,
			Exclude:         limitExcluded(req.Exclude),
		})
	}

	outcomes, calls := g.runChunks(ctx, "vocabulary", req.Count, '[', render)
	res.AICalls = calls

	var candidates []domain.VocabularyWord
	for i, out := range outcomes {
		if out.err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("chunk %d: %v", i+1, out.err))
			continue
		}
		words, decodeErrs := decodeElements[domain.VocabularyWord](out.payload)
		for _, err := range decodeErrs {
			res.Errors = append(res.Errors, fmt.Sprintf("chunk %d: %v", i+1, err))
		}
		for _, w := range words {
			candidates = append(candidates, postProcessWord(w, req))
		}
	}

	report := g.validator.ValidateVocabulary(candidates)
	res.Words = report.Valid
	res.Errors = append(res.Errors, report.Errors...)
	res.Warnings = report.Warnings
	res.Distribution = validation.AnalyzeVocabulary(report.Valid)

	if len(res.Words) == 0 {
		res.Failure = failureReason(res.Errors)
	}

	log.InfoContext(ctx, "vocabulary generation finished",
		slog.Int("ai_calls", res.AICalls),
		slog.Int("candidates", len(candidates)),
		slog.Int("valid", len(res.Words)),
		slog.Int("errors", len(res.Errors)),
		slog.Int("warnings", len(res.Warnings)))
	return res
}

// decodeElements decodes each element of a JSON array on its own, so one
// malformed element does not discard its siblings.
func decodeElements[T any](payload []byte) ([]T, []error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, []error{fmt.Errorf("%w: %v", ErrInvalidResponse, err)}
	}

	items := make([]T, 0, len(raw))
	var errs []error
	for i, element := range raw {
		var item T
		if err := json.Unmarshal(element, &item); err != nil {
			errs = append(errs, fmt.Errorf("%w: element %d: %v", ErrInvalidResponse, i, err))
			continue
		}
		items = append(items, item)
	}
	return items, errs
}
