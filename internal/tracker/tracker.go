package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-feeder/internal/domain"
)

// ReasonOK is returned by CanExecute when no cap is violated.
const ReasonOK = "OK"

const backupTimeFormat = "20060102T150405Z"

// Tracker owns the execution log file and its in-memory record list.
// It is safe for concurrent readers; the pipeline is its only writer.
type Tracker struct {
	path   string
	logger *slog.Logger
	clock  func() time.Time

	mu          sync.RWMutex
	records     []Record
	lastUpdated time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now, which tests use to pin the cap windows.
func WithClock(clock func() time.Time) Option {
	return func(t *Tracker) {
		t.clock = clock
	}
}

// New loads the execution log at path. A missing file yields an empty log.
// A file that cannot be parsed is renamed to a timestamped backup and an
// empty log is started in its place.
func New(path string, logger *slog.Logger, opts ...Option) (*Tracker, error) {
	if path == "" {
		return nil, errors.New("tracker log path cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	t := &Tracker{
		path:   path,
		logger: logger.With(slog.String("component", "execution_tracker")),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	if err := t.load(); err != nil {
		return nil, err
	}
	return t, nil
}

// Path returns the location of the log file.
func (t *Tracker) Path() string {
	return t.path
}

func (t *Tracker) load() error {
	data, err := os.ReadFile(t.path)
	if errors.Is(err, fs.ErrNotExist) {
		t.logger.Debug("execution log not found, starting empty", slog.String("path", t.path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read execution log %s: %w", t.path, err)
	}

	var lf logFile
	if err := json.Unmarshal(data, &lf); err != nil {
		backup := fmt.Sprintf("%s.corrupted.%s", t.path, t.clock().UTC().Format(backupTimeFormat))
		if renameErr := os.Rename(t.path, backup); renameErr != nil {
			t.logger.Error("failed to back up corrupted execution log",
				slog.String("path", t.path),
				slog.String("error", renameErr.Error()))
		} else {
			t.logger.Warn("execution log was corrupted, started a new one",
				slog.String("path", t.path),
				slog.String("backup", backup),
				slog.String("error", err.Error()))
		}
		return nil
	}

	for i := range lf.Executions {
		if lf.Executions[i].Results.Errors == nil {
			lf.Executions[i].Results.Errors = []string{}
		}
	}
	t.records = lf.Executions
	t.lastUpdated = lf.LastUpdated
	t.logger.Debug("execution log loaded",
		slog.String("path", t.path),
		slog.Int("records", len(t.records)))
	return nil
}

// save rewrites the whole log through a temp file and rename.
// Callers must hold the write lock.
func (t *Tracker) save() error {
	t.lastUpdated = t.clock().UTC()

	executions := t.records
	if executions == nil {
		executions = []Record{}
	}
	data, err := json.MarshalIndent(logFile{Executions: executions, LastUpdated: t.lastUpdated}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode execution log: %w", err)
	}

	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create execution log directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(t.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp execution log: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write execution log: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to sync execution log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close execution log: %w", err)
	}
	if err := os.Rename(tmpName, t.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace execution log: %w", err)
	}
	return nil
}

// CanExecute checks whether requested more items of kind fit under caps.
// It checks, in order, the global, daily and weekly windows; for each window
// it first checks whether the total already reached the cap and then whether
// the request would push it over. The first violation's reason is returned.
func (t *Tracker) CanExecute(kind domain.ContentType, requested int, caps Caps) (bool, string) {
	totals := t.Totals(kind)

	windows := []struct {
		name  string
		total int
		cap   int
	}{
		{"global", totals.Global, caps.Global},
		{"daily", totals.Daily, caps.Daily},
		{"weekly", totals.Weekly, caps.Weekly},
	}

	for _, w := range windows {
		if w.total >= w.cap {
			return false, fmt.Sprintf("%s %s cap reached (%d/%d)", kind, w.name, w.total, w.cap)
		}
		if w.total+requested > w.cap {
			return false, fmt.Sprintf("%s %s cap would be exceeded (%d + %d requested > %d)",
				kind, w.name, w.total, requested, w.cap)
		}
	}

	return true, ReasonOK
}

// LogExecution stamps rec with an id and timestamp when absent, attaches the
// current totals for audit, appends it and persists the whole log.
// The stored record is returned.
func (t *Tracker) LogExecution(rec Record) (Record, error) {
	if rec.ExecutionID == "" {
		rec.ExecutionID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = t.clock().UTC()
	} else {
		rec.Timestamp = rec.Timestamp.UTC()
	}
	if rec.Results.Errors == nil {
		rec.Results.Errors = []string{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	rec.TotalsSnapshot = t.totalsLocked(rec.Type)
	t.records = append(t.records, rec)

	if err := t.save(); err != nil {
		t.logger.Error("failed to persist execution log",
			slog.String("execution_id", rec.ExecutionID),
			slog.String("error", err.Error()))
		return rec, err
	}

	t.logger.Info("execution logged",
		slog.String("execution_id", rec.ExecutionID),
		slog.String("type", string(rec.Type)),
		slog.String("status", string(rec.Status)))
	return rec, nil
}

// Totals returns the daily, weekly and global inserted counts for kind.
func (t *Tracker) Totals(kind domain.ContentType) Totals {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.totalsLocked(kind)
}

// DailyTotals returns the items of kind inserted since local midnight.
func (t *Tracker) DailyTotals(kind domain.ContentType) int {
	return t.Totals(kind).Daily
}

// WeeklyTotals returns the items of kind inserted since Monday of the current ISO week.
func (t *Tracker) WeeklyTotals(kind domain.ContentType) int {
	return t.Totals(kind).Weekly
}

// GlobalTotals returns every item of kind ever inserted.
func (t *Tracker) GlobalTotals(kind domain.ContentType) int {
	return t.Totals(kind).Global
}

func (t *Tracker) totalsLocked(kind domain.ContentType) Totals {
	now := t.clock()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	// ISO weeks start on Monday.
	weekStart := dayStart.AddDate(0, 0, -((int(now.Weekday()) + 6) % 7))

	var totals Totals
	for _, r := range t.records {
		if r.Type != kind {
			continue
		}
		n := r.insertedCount()
		if n == 0 {
			continue
		}
		totals.Global += n
		if !r.Timestamp.Before(weekStart) {
			totals.Weekly += n
		}
		if !r.Timestamp.Before(dayStart) {
			totals.Daily += n
		}
	}
	return totals
}

// CleanupOldExecutions drops records older than retentionDays and persists
// the trimmed log. It returns the number of records removed.
func (t *Tracker) CleanupOldExecutions(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retention days must be positive, got %d", retentionDays)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.clock().AddDate(0, 0, -retentionDays)
	kept := make([]Record, 0, len(t.records))
	for _, r := range t.records {
		if !r.Timestamp.Before(cutoff) {
			kept = append(kept, r)
		}
	}

	removed := len(t.records) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	t.records = kept
	if err := t.save(); err != nil {
		return removed, err
	}

	t.logger.Info("old executions removed",
		slog.Int("removed", removed),
		slog.Int("retention_days", retentionDays))
	return removed, nil
}

// Records returns a copy of every record in log order.
func (t *Tracker) Records() []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// LastUpdated returns when the log file was last written.
func (t *Tracker) LastUpdated() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastUpdated
}

// History returns up to limit records of kind, newest first.
// An empty kind selects every type; limit <= 0 means no limit.
func (t *Tracker) History(kind domain.ContentType, limit int) []Record {
	t.mu.RLock()
	out := make([]Record, 0, len(t.records))
	for _, r := range t.records {
		if kind == "" || r.Type == kind {
			out = append(out, r)
		}
	}
	t.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Stats summarizes the runs of kind.
func (t *Tracker) Stats(kind domain.ContentType) Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var s Stats
	for _, r := range t.records {
		if r.Type != kind {
			continue
		}
		s.Runs++
		ts := r.Timestamp
		if s.LastRun == nil || ts.After(*s.LastRun) {
			s.LastRun = &ts
		}
		switch r.Status {
		case StatusCompleted:
			s.Completed++
			s.TotalInserted += r.insertedCount()
			if s.LastSuccess == nil || ts.After(*s.LastSuccess) {
				s.LastSuccess = &ts
			}
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}
