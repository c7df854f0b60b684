package feeder

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-feeder/internal/config"
	"github.com/phrazzld/scry-feeder/internal/domain"
	"github.com/phrazzld/scry-feeder/internal/gaps"
	"github.com/phrazzld/scry-feeder/internal/generation"
	"github.com/phrazzld/scry-feeder/internal/store"
	"github.com/phrazzld/scry-feeder/internal/tracker"
)

// ExecutionLog is the part of the tracker the feeders use.
type ExecutionLog interface {
	CanExecute(kind domain.ContentType, requested int, caps tracker.Caps) (bool, string)
	LogExecution(rec tracker.Record) (tracker.Record, error)
}

// VocabularyRecommender picks the next vocabulary batch.
type VocabularyRecommender interface {
	RecommendNextBatch(ctx context.Context, maxWords int) (*gaps.BatchRecommendation, error)
}

// TopicRecommender picks the grammar topics a run works on.
type TopicRecommender interface {
	RecommendNextTopics(ctx context.Context, maxTopics int) ([]gaps.TopicRecommendation, error)
}

// VocabularyGenerator produces validated vocabulary.
type VocabularyGenerator interface {
	GenerateVocabulary(ctx context.Context, req generation.VocabularyRequest) generation.VocabularyResult
}

// GrammarGenerator produces validated exercises and topic metadata.
type GrammarGenerator interface {
	GenerateExercises(ctx context.Context, req generation.ExerciseRequest) generation.ExerciseResult
	GenerateTopic(ctx context.Context, spec config.TopicSpec) generation.TopicResult
}

var (
	_ VocabularyRecommender = (*gaps.VocabularyAnalyzer)(nil)
	_ TopicRecommender      = (*gaps.GrammarAnalyzer)(nil)
	_ VocabularyGenerator   = (*generation.Generator)(nil)
	_ GrammarGenerator      = (*generation.Generator)(nil)
	_ ExecutionLog          = (*tracker.Tracker)(nil)
)

// RunOptions modify a single run.
type RunOptions struct {
	// Force skips the cap check.
	Force bool
}

// Option configures a feeder.
type Option func(*base)

// WithClock replaces time.Now for run timing.
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		b.now = now
	}
}

// base holds what both feeders share.
type base struct {
	kind       domain.ContentType
	tracker    ExecutionLog
	transactor store.Transactor
	logger     *slog.Logger
	now        func() time.Time
}

func newBase(
	kind domain.ContentType,
	log ExecutionLog,
	transactor store.Transactor,
	logger *slog.Logger,
	opts []Option,
) base {
	if logger == nil {
		logger = slog.Default()
	}
	b := base{
		kind:       kind,
		tracker:    log,
		transactor: transactor,
		logger:     logger.With(slog.String("component", string(kind)+"_feeder")),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// run is the state of one execution until it is logged.
type run struct {
	record tracker.Record
	start  time.Time
}

func (b *base) begin(snapshot tracker.ConfigSnapshot) *run {
	return &run{
		record: tracker.Record{Type: b.kind, ConfigSnapshot: snapshot},
		start:  b.now(),
	}
}

func (r *run) addErrors(errs ...string) {
	r.record.Results.Errors = append(r.record.Results.Errors, errs...)
}

// finish stamps the outcome and duration on r and logs it with the tracker.
func (b *base) finish(ctx context.Context, r *run, status tracker.Status, reason string) (tracker.Record, error) {
	r.record.Status = status
	r.record.Results.Reason = reason
	r.record.Results.DurationSeconds = b.now().Sub(r.start).Seconds()

	attrs := []any{
		slog.String("status", string(status)),
		slog.Float64("duration_seconds", r.record.Results.DurationSeconds),
		slog.Int("ai_calls", r.record.Results.AICalls),
		slog.Int("errors", len(r.record.Results.Errors)),
	}
	if reason != "" {
		attrs = append(attrs, slog.String("reason", reason))
	}
	if status == tracker.StatusFailed {
		b.logger.WarnContext(ctx, "run finished", attrs...)
	} else {
		b.logger.InfoContext(ctx, "run finished", attrs...)
	}

	rec, err := b.tracker.LogExecution(r.record)
	if err != nil {
		return rec, fmt.Errorf("failed to log %s execution: %w", b.kind, err)
	}
	return rec, nil
}

// capCheck reports whether the run may proceed and, if not, why.
func (b *base) capCheck(ctx context.Context, requested int, caps tracker.Caps, opts RunOptions) (bool, string) {
	if opts.Force {
		b.logger.WarnContext(ctx, "cap check bypassed", slog.Int("requested", requested))
		return true, tracker.ReasonOK
	}
	ok, reason := b.tracker.CanExecute(b.kind, requested, caps)
	if !ok {
		b.logger.InfoContext(ctx, "run skipped by cap", slog.String("reason", reason))
	}
	return ok, reason
}

// insertOutcome counts the result of a per-item insertion loop.
type insertOutcome struct {
	inserted  int
	dbSkipped int
	failed    int
	errors    []string
}

func (o *insertOutcome) merge(other insertOutcome) {
	o.inserted += other.inserted
	o.dbSkipped += other.dbSkipped
	o.failed += other.failed
	o.errors = append(o.errors, other.errors...)
}

// insertEach inserts items one by one, each inside its own transaction.
// A failed insert is rolled back and recorded; the loop continues.
// A returned false from insert is a DB-level duplicate skip.
func insertEach[T any](
	ctx context.Context,
	transactor store.Transactor,
	items []T,
	label func(T) string,
	insert func(ctx context.Context, tx *sql.Tx, item *T) (bool, error),
) insertOutcome {
	var out insertOutcome
	for i := range items {
		if err := ctx.Err(); err != nil {
			out.errors = append(out.errors, fmt.Sprintf("insertion stopped after %d of %d items: %v", i, len(items), err))
			break
		}

		var inserted bool
		err := transactor.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
			var err error
			inserted, err = insert(ctx, tx, &items[i])
			return err
		})
		switch {
		case err != nil:
			out.failed++
			out.errors = append(out.errors, fmt.Sprintf("%s: %v", label(items[i]), err))
		case inserted:
			out.inserted++
		default:
			out.dbSkipped++
		}
	}
	return out
}
