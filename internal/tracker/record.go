package tracker

import (
	"time"

	"github.com/phrazzld/scry-feeder/internal/domain"
)

// Status is the terminal outcome of one feeder run.
type Status string

// Run outcomes.
const (
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Caps are the volume ceilings a content type is held to.
type Caps struct {
	Daily  int `json:"daily"`
	Weekly int `json:"weekly"`
	Global int `json:"global"`
}

// Totals are counts of inserted items over the three cap windows.
type Totals struct {
	Daily  int `json:"daily"`
	Weekly int `json:"weekly"`
	Global int `json:"global"`
}

// ConfigSnapshot is the governing configuration captured with each record.
type ConfigSnapshot struct {
	MaxPerRun           int     `json:"max_per_run"`
	DailyCap            int     `json:"daily_cap"`
	WeeklyCap           int     `json:"weekly_cap"`
	GlobalCap           int     `json:"global_cap"`
	ChunkSize           int     `json:"chunk_size"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	Model               string  `json:"model,omitempty"`
	Force               bool    `json:"force,omitempty"`
}

// Results is the counter block of a record. Vocabulary runs fill the word
// counters, grammar runs the topic and exercise counters.
type Results struct {
	Reason string `json:"reason,omitempty"`

	Category   string `json:"category,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	Requested  int    `json:"requested"`
	Generated  int    `json:"generated"`
	Inserted   int    `json:"inserted"`

	TopicsProcessed    int `json:"topics_processed"`
	TopicsCreated      int `json:"topics_created"`
	ExercisesGenerated int `json:"exercises_generated"`
	ExercisesInserted  int `json:"exercises_inserted"`

	DuplicatesSkipped int      `json:"duplicates_skipped"`
	DBSkipped         int      `json:"db_skipped"`
	InsertErrors      int      `json:"insert_errors"`
	AICalls           int      `json:"ai_calls"`
	DurationSeconds   float64  `json:"duration_seconds"`
	Errors            []string `json:"errors"`
}

// Record is one immutable entry of the execution log.
type Record struct {
	ExecutionID    string             `json:"execution_id"`
	Type           domain.ContentType `json:"type"`
	Status         Status             `json:"status"`
	Timestamp      time.Time          `json:"timestamp"`
	ConfigSnapshot ConfigSnapshot     `json:"config_snapshot"`
	Results        Results            `json:"results"`
	TotalsSnapshot Totals             `json:"totals_snapshot"`
}

// insertedCount is what a record contributes to its content type's totals.
func (r Record) insertedCount() int {
	if r.Status != StatusCompleted {
		return 0
	}
	if r.Type == domain.ContentGrammar {
		return r.Results.ExercisesInserted
	}
	return r.Results.Inserted
}

// Stats summarizes the history of one content type.
type Stats struct {
	Runs          int        `json:"runs"`
	Completed     int        `json:"completed"`
	Skipped       int        `json:"skipped"`
	Failed        int        `json:"failed"`
	TotalInserted int        `json:"total_inserted"`
	LastRun       *time.Time `json:"last_run,omitempty"`
	LastSuccess   *time.Time `json:"last_success,omitempty"`
}

type logFile struct {
	Executions  []Record  `json:"executions"`
	LastUpdated time.Time `json:"last_updated"`
}
