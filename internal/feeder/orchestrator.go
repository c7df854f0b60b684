package feeder

import (
	"context"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-feeder/internal/tracker"
)

// Runner is one feeder as seen by the orchestrator.
type Runner interface {
	Run(ctx context.Context, opts RunOptions) (tracker.Record, error)
}

var (
	_ Runner = (*VocabularyFeeder)(nil)
	_ Runner = (*GrammarFeeder)(nil)
)

// Selection chooses which feeders a unified run executes.
type Selection struct {
	Vocabulary bool
	Grammar    bool
}

// Both selects every feeder.
func Both() Selection {
	return Selection{Vocabulary: true, Grammar: true}
}

// Summary aggregates the records of one unified run.
type Summary struct {
	Vocabulary      *tracker.Record `json:"vocabulary,omitempty"`
	Grammar         *tracker.Record `json:"grammar,omitempty"`
	DurationSeconds float64         `json:"duration_seconds"`
	// LogErrors holds failures to persist a record; the run itself still happened.
	LogErrors []string `json:"log_errors,omitempty"`
}

// Orchestrator runs the vocabulary and grammar feeders in sequence.
type Orchestrator struct {
	vocabulary Runner
	grammar    Runner
	logger     *slog.Logger
	now        func() time.Time
}

// NewOrchestrator creates an Orchestrator. A nil runner is skipped even when selected.
func NewOrchestrator(vocabulary, grammar Runner, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		vocabulary: vocabulary,
		grammar:    grammar,
		logger:     logger.With(slog.String("component", "orchestrator")),
		now:        time.Now,
	}
}

// Run executes the selected feeders, vocabulary first, and never concurrently.
func (o *Orchestrator) Run(ctx context.Context, sel Selection, opts RunOptions) Summary {
	start := o.now()
	var summary Summary

	o.logger.InfoContext(ctx, "batch run started",
		slog.Bool("vocabulary", sel.Vocabulary),
		slog.Bool("grammar", sel.Grammar),
		slog.Bool("force", opts.Force))

	if sel.Vocabulary && o.vocabulary != nil {
		summary.Vocabulary = o.runOne(ctx, "vocabulary", o.vocabulary, opts, &summary)
	}
	if sel.Grammar && o.grammar != nil {
		summary.Grammar = o.runOne(ctx, "grammar", o.grammar, opts, &summary)
	}

	summary.DurationSeconds = o.now().Sub(start).Seconds()
	o.logger.InfoContext(ctx, "batch run finished",
		slog.Float64("duration_seconds", summary.DurationSeconds))
	return summary
}

func (o *Orchestrator) runOne(
	ctx context.Context,
	name string,
	r Runner,
	opts RunOptions,
	summary *Summary,
) *tracker.Record {
	rec, err := r.Run(ctx, opts)
	if err != nil {
		o.logger.ErrorContext(ctx, "failed to record run",
			slog.String("feeder", name),
			slog.String("error", err.Error()))
		summary.LogErrors = append(summary.LogErrors, err.Error())
	}
	return &rec
}
