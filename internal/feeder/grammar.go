package feeder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-feeder/internal/config"
	"github.com/phrazzld/scry-feeder/internal/dedup"
	"github.com/phrazzld/scry-feeder/internal/domain"
	"github.com/phrazzld/scry-feeder/internal/gaps"
	"github.com/phrazzld/scry-feeder/internal/generation"
	"github.com/phrazzld/scry-feeder/internal/store"
	"github.com/phrazzld/scry-feeder/internal/tracker"
)

// GrammarFeeder runs one governed grammar batch across several topics.
type GrammarFeeder struct {
	base
	store     store.GrammarStore
	analyzer  TopicRecommender
	generator GrammarGenerator
	cfg       config.GrammarConfig
	snapshot  tracker.ConfigSnapshot
}

// NewGrammarFeeder creates a GrammarFeeder. Every collaborator is required.
func NewGrammarFeeder(
	grammar store.GrammarStore,
	transactor store.Transactor,
	analyzer TopicRecommender,
	generator GrammarGenerator,
	log ExecutionLog,
	cfg config.Config,
	logger *slog.Logger,
	opts ...Option,
) (*GrammarFeeder, error) {
	switch {
	case grammar == nil:
		return nil, fmt.Errorf("%w: grammar store", ErrMissingDependency)
	case transactor == nil:
		return nil, fmt.Errorf("%w: transactor", ErrMissingDependency)
	case analyzer == nil:
		return nil, fmt.Errorf("%w: gap analyzer", ErrMissingDependency)
	case generator == nil:
		return nil, fmt.Errorf("%w: generator", ErrMissingDependency)
	case log == nil:
		return nil, fmt.Errorf("%w: execution log", ErrMissingDependency)
	}

	return &GrammarFeeder{
		base:      newBase(domain.ContentGrammar, log, transactor, logger, opts),
		store:     grammar,
		analyzer:  analyzer,
		generator: generator,
		cfg:       cfg.Grammar,
		snapshot: tracker.ConfigSnapshot{
			MaxPerRun:           cfg.Grammar.MaxExercisesPerRun,
			DailyCap:            cfg.Grammar.DailyCap,
			WeeklyCap:           cfg.Grammar.WeeklyCap,
			GlobalCap:           cfg.Grammar.GlobalCap,
			ChunkSize:           cfg.Generation.ChunkSize,
			SimilarityThreshold: cfg.Grammar.SimilarityThreshold,
			Model:               cfg.LLM.ModelName,
		},
	}, nil
}

// Caps returns the grammar exercise caps.
func (f *GrammarFeeder) Caps() tracker.Caps {
	return tracker.Caps{Daily: f.cfg.DailyCap, Weekly: f.cfg.WeeklyCap, Global: f.cfg.GlobalCap}
}

// Run executes one batch over the recommended topics and returns the logged record.
func (f *GrammarFeeder) Run(ctx context.Context, opts RunOptions) (tracker.Record, error) {
	snapshot := f.snapshot
	snapshot.Force = opts.Force
	r := f.begin(snapshot)
	res := &r.record.Results

	f.logger.InfoContext(ctx, "grammar run started",
		slog.Int("max_exercises", f.cfg.MaxExercisesPerRun),
		slog.Int("max_topics", f.cfg.MaxTopicsPerRun),
		slog.Bool("force", opts.Force))

	if ok, reason := f.capCheck(ctx, f.cfg.MaxExercisesPerRun, f.Caps(), opts); !ok {
		return f.finish(ctx, r, tracker.StatusSkipped, reason)
	}

	recs, err := f.analyzer.RecommendNextTopics(ctx, f.cfg.MaxTopicsPerRun)
	if err != nil {
		r.addErrors(fmt.Sprintf("gap analysis: %v", err))
		return f.finish(ctx, r, tracker.StatusFailed, "gap analysis failed")
	}
	if len(recs) == 0 {
		return f.finish(ctx, r, tracker.StatusSkipped, ReasonNoGaps)
	}

	budget := f.cfg.MaxExercisesPerRun
	for _, rec := range recs {
		if budget <= 0 {
			f.logger.InfoContext(ctx, "exercise budget exhausted", slog.Int("remaining_topics", len(recs)-res.TopicsProcessed))
			break
		}
		if err := ctx.Err(); err != nil {
			r.addErrors(fmt.Sprintf("run stopped before topic %q: %v", rec.Name(), err))
			break
		}

		var out topicOutcome
		switch rec.Action {
		case gaps.ActionFillExercises:
			out = f.fillTopic(ctx, rec, min(rec.Count, budget))
		case gaps.ActionCreateTopic:
			out = f.createTopic(ctx, rec, min(rec.Count, budget))
		default:
			r.addErrors(fmt.Sprintf("topic %q: unknown action %q", rec.Name(), rec.Action))
			continue
		}

		res.TopicsProcessed++
		if out.created {
			res.TopicsCreated++
		}
		res.AICalls += out.aiCalls
		res.ExercisesGenerated += out.generated
		res.DuplicatesSkipped += out.duplicates
		res.ExercisesInserted += out.inserted
		res.DBSkipped += out.dbSkipped
		res.InsertErrors += out.failed
		r.addErrors(out.errors...)
		budget -= out.inserted
	}

	if res.ExercisesGenerated == 0 && res.TopicsCreated == 0 {
		return f.finish(ctx, r, tracker.StatusFailed, ReasonGenerationFailed)
	}
	return f.finish(ctx, r, tracker.StatusCompleted, "")
}

// topicOutcome is what one recommendation contributed to the run.
type topicOutcome struct {
	insertOutcome
	created    bool
	aiCalls    int
	generated  int
	duplicates int
}

// fillTopic generates exercises of the topic's missing types and inserts the
// survivors one transaction each.
func (f *GrammarFeeder) fillTopic(ctx context.Context, rec gaps.TopicRecommendation, count int) topicOutcome {
	var out topicOutcome
	topic := *rec.Topic
	label := fmt.Sprintf("topic %q", topic.Name)
	log := f.logger.With(slog.String("topic", topic.Name), slog.Int64("topic_id", topic.ID))

	existing, err := f.store.QueryDistinctValues(ctx, "question_text", store.Filters{"topic_id": topic.ID})
	if err != nil {
		out.errors = append(out.errors, fmt.Sprintf("%s: load existing exercises: %v", label, err))
		return out
	}

	gen := f.generator.GenerateExercises(ctx, generation.ExerciseRequest{
		Topic:   topic,
		Count:   count,
		Types:   rec.MissingTypes,
		Exclude: existing,
	})
	out.aiCalls = gen.AICalls
	out.generated = len(gen.Exercises)
	genErrors := prefixed(label, gen.Errors)
	if len(gen.Exercises) == 0 {
		if gen.Failure != "" {
			genErrors = append(genErrors, fmt.Sprintf("%s: %s", label, gen.Failure))
		}
		out.errors = genErrors
		log.WarnContext(ctx, "no exercises generated for topic")
		return out
	}

	filtered := dedup.FilterExercises(gen.Exercises, existing, f.cfg.SimilarityThreshold)
	out.duplicates = len(filtered.Duplicates)

	inserted := insertEach(ctx, f.transactor, filtered.Unique,
		func(e domain.GrammarExercise) string { return fmt.Sprintf("%s exercise %q", label, e.QuestionText) },
		func(ctx context.Context, tx *sql.Tx, e *domain.GrammarExercise) (bool, error) {
			return f.store.WithTx(tx).InsertIgnoringDuplicates(ctx, e)
		})
	out.errors = genErrors
	out.merge(inserted)

	log.InfoContext(ctx, "topic filled",
		slog.Int("generated", out.generated),
		slog.Int("duplicates_skipped", out.duplicates),
		slog.Int("inserted", out.inserted),
		slog.Int("db_skipped", out.dbSkipped))
	return out
}

// createTopic generates metadata and an initial exercise set for a watchlist
// topic, then inserts the topic and its exercises in one transaction.
// Each exercise runs under its own savepoint, so a failed exercise insert
// only rolls back that exercise. A failed topic insert rolls back the unit.
func (f *GrammarFeeder) createTopic(ctx context.Context, rec gaps.TopicRecommendation, count int) topicOutcome {
	var out topicOutcome
	spec := *rec.Spec
	label := fmt.Sprintf("new topic %q", spec.Name)
	log := f.logger.With(slog.String("topic", spec.Name), slog.String("category", spec.Category))

	meta := f.generator.GenerateTopic(ctx, spec)
	out.aiCalls = meta.AICalls
	if meta.Topic == nil {
		reason := meta.Failure
		if reason == "" {
			reason = ReasonGenerationFailed
		}
		out.errors = append(out.errors, fmt.Sprintf("%s: %v: %s", label, ErrTopicCreation, reason))
		log.WarnContext(ctx, "topic metadata generation failed", slog.String("reason", reason))
		return out
	}
	topic := *meta.Topic

	gen := f.generator.GenerateExercises(ctx, generation.ExerciseRequest{Topic: topic, Count: count})
	out.aiCalls += gen.AICalls
	out.generated = len(gen.Exercises)
	genErrors := prefixed(label, gen.Errors)
	if len(gen.Exercises) == 0 && gen.Failure != "" {
		genErrors = append(genErrors, fmt.Sprintf("%s: %s", label, gen.Failure))
	}

	filtered := dedup.FilterExercises(gen.Exercises, nil, f.cfg.SimilarityThreshold)
	out.duplicates = len(filtered.Duplicates)
	exercises := filtered.Unique

	var unit insertOutcome
	err := f.transactor.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		unit = insertOutcome{}
		s := f.store.WithTx(tx)

		inserted, err := s.InsertTopic(ctx, &topic)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTopicCreation, err)
		}
		if !inserted {
			return fmt.Errorf("%w: topic %q already exists", ErrTopicCreation, topic.Name)
		}

		for i := range exercises {
			e := &exercises[i]
			e.TopicID = topic.ID
			var ok bool
			err := f.transactor.Savepoint(ctx, tx, fmt.Sprintf("exercise_%d", i+1),
				func(ctx context.Context, tx *sql.Tx) error {
					var err error
					ok, err = s.InsertIgnoringDuplicates(ctx, e)
					return err
				})
			switch {
			case errors.Is(err, store.ErrTransactionFailed):
				return err
			case err != nil:
				unit.failed++
				unit.errors = append(unit.errors, fmt.Sprintf("%s exercise %q: %v", label, e.QuestionText, err))
			case ok:
				unit.inserted++
			default:
				unit.dbSkipped++
			}
		}
		return nil
	})

	out.errors = append(out.errors, genErrors...)
	if err != nil {
		if !errors.Is(err, ErrTopicCreation) {
			err = fmt.Errorf("%w: %v", ErrTopicCreation, err)
		}
		out.errors = append(out.errors, fmt.Sprintf("%s: %v", label, err))
		log.WarnContext(ctx, "topic unit rolled back", slog.String("error", err.Error()))
		return out
	}

	out.created = true
	out.merge(unit)
	log.InfoContext(ctx, "topic created",
		slog.Int64("topic_id", topic.ID),
		slog.Int("generated", out.generated),
		slog.Int("inserted", out.inserted),
		slog.Int("insert_errors", out.failed))
	return out
}

func prefixed(label string, msgs []string) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = fmt.Sprintf("%s: %s", label, m)
	}
	return out
}
