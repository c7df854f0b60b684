package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/phrazzld/scry-feeder/internal/domain"
	"github.com/phrazzld/scry-feeder/internal/feeder"
	"github.com/phrazzld/scry-feeder/internal/redact"
	"github.com/phrazzld/scry-feeder/internal/tracker"
)

// maxPrintedErrors is how many errors of one run the summary shows.
const maxPrintedErrors = 3

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// printSummary writes a human-readable outcome of one batch run.
func printSummary(w io.Writer, s feeder.Summary) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Batch run finished in %.1fs\n", s.DurationSeconds)

	if s.Vocabulary == nil && s.Grammar == nil {
		b.WriteString("  nothing was run\n")
	}
	for _, rec := range []*tracker.Record{s.Vocabulary, s.Grammar} {
		if rec != nil {
			writeRecord(&b, *rec)
		}
	}
	for _, msg := range s.LogErrors {
		fmt.Fprintf(&b, "warning: execution log not updated: %s\n", redact.String(msg))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeRecord(b *strings.Builder, rec tracker.Record) {
	r := rec.Results
	fmt.Fprintf(b, "%s: %s", rec.Type, rec.Status)
	if rec.ConfigSnapshot.Force {
		b.WriteString(" (forced)")
	}
	b.WriteString("\n")

	if r.Reason != "" && r.Reason != tracker.ReasonOK {
		fmt.Fprintf(b, "  reason: %s\n", r.Reason)
	}

	if rec.Status != tracker.StatusSkipped {
		if rec.Type == domain.ContentGrammar {
			fmt.Fprintf(b, "  topics processed=%d created=%d\n", r.TopicsProcessed, r.TopicsCreated)
			fmt.Fprintf(b, "  exercises generated=%d inserted=%d", r.ExercisesGenerated, r.ExercisesInserted)
		} else {
			if r.Category != "" {
				fmt.Fprintf(b, "  batch category=%s difficulty=%s requested=%d\n", r.Category, r.Difficulty, r.Requested)
			}
			fmt.Fprintf(b, "  words generated=%d inserted=%d", r.Generated, r.Inserted)
		}
		fmt.Fprintf(b, " duplicates=%d db_skipped=%d insert_errors=%d\n",
			r.DuplicatesSkipped, r.DBSkipped, r.InsertErrors)
	}
	fmt.Fprintf(b, "  ai_calls=%d duration=%.1fs\n", r.AICalls, r.DurationSeconds)

	if len(r.Errors) > 0 {
		shown := r.Errors[:min(len(r.Errors), maxPrintedErrors)]
		fmt.Fprintf(b, "  errors (%d of %d):\n", len(shown), len(r.Errors))
		for _, msg := range shown {
			fmt.Fprintf(b, "    - %s\n", redact.String(msg))
		}
	}
}
