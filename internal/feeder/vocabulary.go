package feeder

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-feeder/internal/config"
	"github.com/phrazzld/scry-feeder/internal/dedup"
	"github.com/phrazzld/scry-feeder/internal/domain"
	"github.com/phrazzld/scry-feeder/internal/generation"
	"github.com/phrazzld/scry-feeder/internal/store"
	"github.com/phrazzld/scry-feeder/internal/tracker"
)

// VocabularyFeeder runs one governed vocabulary batch.
type VocabularyFeeder struct {
	base
	store     store.VocabularyStore
	analyzer  VocabularyRecommender
	generator VocabularyGenerator
	cfg       config.VocabularyConfig
	snapshot  tracker.ConfigSnapshot
}

// NewVocabularyFeeder creates a VocabularyFeeder. Every collaborator is required.
func NewVocabularyFeeder(
	vocab store.VocabularyStore,
	transactor store.Transactor,
	analyzer VocabularyRecommender,
	generator VocabularyGenerator,
	log ExecutionLog,
	cfg config.Config,
	logger *slog.Logger,
	opts ...Option,
) (*VocabularyFeeder, error) {
	switch {
	case vocab == nil:
		return nil, fmt.Errorf("%w: vocabulary store", ErrMissingDependency)
	case transactor == nil:
		return nil, fmt.Errorf("%w: transactor", ErrMissingDependency)
	case analyzer == nil:
		return nil, fmt.Errorf("%w: gap analyzer", ErrMissingDependency)
	case generator == nil:
		return nil, fmt.Errorf("%w: generator", ErrMissingDependency)
	case log == nil:
		return nil, fmt.Errorf("%w: execution log", ErrMissingDependency)
	}

	return &VocabularyFeeder{
		base:      newBase(domain.ContentVocabulary, log, transactor, logger, opts),
		store:     vocab,
		analyzer:  analyzer,
		generator: generator,
		cfg:       cfg.Vocabulary,
		snapshot: tracker.ConfigSnapshot{
			MaxPerRun:           cfg.Vocabulary.MaxWordsPerRun,
			DailyCap:            cfg.Vocabulary.DailyCap,
			WeeklyCap:           cfg.Vocabulary.WeeklyCap,
			GlobalCap:           cfg.Vocabulary.GlobalCap,
			ChunkSize:           cfg.Generation.ChunkSize,
			SimilarityThreshold: cfg.Vocabulary.SimilarityThreshold,
			Model:               cfg.LLM.ModelName,
		},
	}, nil
}

// Caps returns the vocabulary caps.
func (f *VocabularyFeeder) Caps() tracker.Caps {
	return tracker.Caps{Daily: f.cfg.DailyCap, Weekly: f.cfg.WeeklyCap, Global: f.cfg.GlobalCap}
}

// Run executes one batch and returns the logged record.
func (f *VocabularyFeeder) Run(ctx context.Context, opts RunOptions) (tracker.Record, error) {
	snapshot := f.snapshot
	snapshot.Force = opts.Force
	r := f.begin(snapshot)
	res := &r.record.Results

	f.logger.InfoContext(ctx, "vocabulary run started",
		slog.Int("max_words", f.cfg.MaxWordsPerRun),
		slog.Bool("force", opts.Force))

	if ok, reason := f.capCheck(ctx, f.cfg.MaxWordsPerRun, f.Caps(), opts); !ok {
		return f.finish(ctx, r, tracker.StatusSkipped, reason)
	}

	rec, err := f.analyzer.RecommendNextBatch(ctx, f.cfg.MaxWordsPerRun)
	if err != nil {
		r.addErrors(fmt.Sprintf("gap analysis: %v", err))
		return f.finish(ctx, r, tracker.StatusFailed, "gap analysis failed")
	}
	if rec == nil {
		return f.finish(ctx, r, tracker.StatusSkipped, ReasonNoGaps)
	}
	res.Category = rec.Category
	res.Difficulty = string(rec.Difficulty)
	res.Requested = rec.WordCount

	existing, err := f.store.QueryDistinctValues(ctx, "word", store.Filters{"category": rec.Category})
	if err != nil {
		r.addErrors(fmt.Sprintf("load existing words: %v", err))
		return f.finish(ctx, r, tracker.StatusFailed, "loading existing corpus failed")
	}
	f.logger.DebugContext(ctx, "existing corpus loaded",
		slog.String("category", rec.Category),
		slog.Int("words", len(existing)))

	gen := f.generator.GenerateVocabulary(ctx, generation.VocabularyRequest{
		Category:      rec.Category,
		Count:         rec.WordCount,
		Difficulty:    rec.Difficulty,
		PartsOfSpeech: f.cfg.PartsOfSpeech,
		Exclude:       existing,
	})
	res.AICalls = gen.AICalls
	res.Generated = len(gen.Words)
	r.addErrors(gen.Errors...)
	for _, w := range gen.Warnings {
		f.logger.DebugContext(ctx, "validation warning", slog.String("warning", w))
	}
	if len(gen.Words) == 0 {
		if gen.Failure != "" {
			r.addErrors(gen.Failure)
		}
		return f.finish(ctx, r, tracker.StatusFailed, ReasonGenerationFailed)
	}

	filtered := dedup.FilterVocabulary(gen.Words, existing, f.cfg.SimilarityThreshold)
	res.DuplicatesSkipped = len(filtered.Duplicates)
	for _, d := range filtered.Duplicates {
		f.logger.DebugContext(ctx, "duplicate skipped",
			slog.String("word", d.Item.Word),
			slog.String("match", d.Match),
			slog.Float64("similarity", d.Similarity),
			slog.Bool("in_batch", d.InBatch))
	}

	out := insertEach(ctx, f.transactor, filtered.Unique,
		func(w domain.VocabularyWord) string { return fmt.Sprintf("word %q", w.Word) },
		func(ctx context.Context, tx *sql.Tx, w *domain.VocabularyWord) (bool, error) {
			return f.store.WithTx(tx).InsertIgnoringDuplicates(ctx, w)
		})
	res.Inserted = out.inserted
	res.DBSkipped = out.dbSkipped
	res.InsertErrors = out.failed
	r.addErrors(out.errors...)

	f.logger.InfoContext(ctx, "vocabulary batch inserted",
		slog.String("category", rec.Category),
		slog.Int("generated", res.Generated),
		slog.Int("duplicates_skipped", res.DuplicatesSkipped),
		slog.Int("inserted", res.Inserted),
		slog.Int("db_skipped", res.DBSkipped),
		slog.Int("insert_errors", res.InsertErrors))

	return f.finish(ctx, r, tracker.StatusCompleted, "")
}
