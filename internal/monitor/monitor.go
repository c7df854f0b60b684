// Package monitor builds the read-only views behind the --status, --gaps,
// --history and --config commands, and serves the same views over HTTP.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-feeder/internal/config"
	"github.com/phrazzld/scry-feeder/internal/domain"
	"github.com/phrazzld/scry-feeder/internal/gaps"
	"github.com/phrazzld/scry-feeder/internal/redact"
	"github.com/phrazzld/scry-feeder/internal/tracker"
)

// DefaultHistoryLimit is the number of records shown when no limit is given.
const DefaultHistoryLimit = 10

// ExecutionHistory is the read side of the tracker.
type ExecutionHistory interface {
	Path() string
	LastUpdated() time.Time
	Totals(kind domain.ContentType) tracker.Totals
	Stats(kind domain.ContentType) tracker.Stats
	History(kind domain.ContentType, limit int) []tracker.Record
}

// VocabularyAnalyzer reports vocabulary gaps.
type VocabularyAnalyzer interface {
	AnalyzeCategoryGaps(ctx context.Context) ([]gaps.CategoryGap, error)
	AnalyzeCEFRDistribution(ctx context.Context) ([]gaps.LevelShare, error)
	RecommendNextBatch(ctx context.Context, maxWords int) (*gaps.BatchRecommendation, error)
}

// GrammarAnalyzer reports grammar gaps.
type GrammarAnalyzer interface {
	AnalyzeTopicGaps(ctx context.Context) ([]gaps.TopicGap, error)
	AnalyzeMissingTopics(ctx context.Context) ([]config.TopicSpec, error)
	RecommendNextTopics(ctx context.Context, maxTopics int) ([]gaps.TopicRecommendation, error)
}

var (
	_ ExecutionHistory   = (*tracker.Tracker)(nil)
	_ VocabularyAnalyzer = (*gaps.VocabularyAnalyzer)(nil)
	_ GrammarAnalyzer    = (*gaps.GrammarAnalyzer)(nil)
)

// Monitor assembles reports from the tracker, the gap analyzers and the configuration.
type Monitor struct {
	history    ExecutionHistory
	vocabulary VocabularyAnalyzer
	grammar    GrammarAnalyzer
	cfg        config.Config
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a Monitor. The analyzers may be nil when no database is
// available; gap reports then fail with ErrNoAnalyzer.
func New(
	history ExecutionHistory,
	vocabulary VocabularyAnalyzer,
	grammar GrammarAnalyzer,
	cfg config.Config,
	logger *slog.Logger,
) *Monitor {
	if history == nil {
		panic("execution history cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		history:    history,
		vocabulary: vocabulary,
		grammar:    grammar,
		cfg:        cfg,
		logger:     logger.With(slog.String("component", "monitor")),
		now:        time.Now,
	}
}

// ContentStatus is the cap position of one content type.
type ContentStatus struct {
	Caps      tracker.Caps   `json:"caps"`
	Totals    tracker.Totals `json:"totals"`
	Remaining tracker.Totals `json:"remaining"`
	Stats     tracker.Stats  `json:"stats"`
}

// StatusReport shows both content types against their caps.
type StatusReport struct {
	GeneratedAt time.Time     `json:"generated_at"`
	LogPath     string        `json:"log_path"`
	LastUpdated *time.Time    `json:"last_updated,omitempty"`
	Vocabulary  ContentStatus `json:"vocabulary"`
	Grammar     ContentStatus `json:"grammar"`
}

// Status builds the status report.
func (m *Monitor) Status() StatusReport {
	report := StatusReport{
		GeneratedAt: m.now().UTC(),
		LogPath:     m.history.Path(),
		Vocabulary: m.contentStatus(domain.ContentVocabulary, tracker.Caps{
			Daily:  m.cfg.Vocabulary.DailyCap,
			Weekly: m.cfg.Vocabulary.WeeklyCap,
			Global: m.cfg.Vocabulary.GlobalCap,
		}),
		Grammar: m.contentStatus(domain.ContentGrammar, tracker.Caps{
			Daily:  m.cfg.Grammar.DailyCap,
			Weekly: m.cfg.Grammar.WeeklyCap,
			Global: m.cfg.Grammar.GlobalCap,
		}),
	}
	if last := m.history.LastUpdated(); !last.IsZero() {
		report.LastUpdated = &last
	}
	return report
}

func (m *Monitor) contentStatus(kind domain.ContentType, caps tracker.Caps) ContentStatus {
	totals := m.history.Totals(kind)
	return ContentStatus{
		Caps:   caps,
		Totals: totals,
		Remaining: tracker.Totals{
			Daily:  max(0, caps.Daily-totals.Daily),
			Weekly: max(0, caps.Weekly-totals.Weekly),
			Global: max(0, caps.Global-totals.Global),
		},
		Stats: m.history.Stats(kind),
	}
}

// VocabularyGaps is the vocabulary half of a gap report.
type VocabularyGaps struct {
	Categories []gaps.CategoryGap        `json:"categories"`
	CEFR       []gaps.LevelShare         `json:"cefr"`
	Next       *gaps.BatchRecommendation `json:"next,omitempty"`
}

// GrammarGaps is the grammar half of a gap report.
type GrammarGaps struct {
	Topics        []gaps.TopicGap            `json:"topics"`
	MissingTopics []config.TopicSpec         `json:"missing_topics"`
	Next          []gaps.TopicRecommendation `json:"next"`
}

// GapsReport shows what the next runs would generate.
type GapsReport struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Vocabulary  VocabularyGaps `json:"vocabulary"`
	Grammar     GrammarGaps    `json:"grammar"`
}

// Gaps builds the gap report from current corpus counts.
func (m *Monitor) Gaps(ctx context.Context) (GapsReport, error) {
	report := GapsReport{GeneratedAt: m.now().UTC()}
	if m.vocabulary == nil || m.grammar == nil {
		return report, ErrNoAnalyzer
	}

	var err error
	v := &report.Vocabulary
	if v.Categories, err = m.vocabulary.AnalyzeCategoryGaps(ctx); err != nil {
		return report, fmt.Errorf("vocabulary category gaps: %w", err)
	}
	if v.CEFR, err = m.vocabulary.AnalyzeCEFRDistribution(ctx); err != nil {
		return report, fmt.Errorf("vocabulary CEFR distribution: %w", err)
	}
	if v.Next, err = m.vocabulary.RecommendNextBatch(ctx, m.cfg.Vocabulary.MaxWordsPerRun); err != nil {
		return report, fmt.Errorf("vocabulary recommendation: %w", err)
	}

	g := &report.Grammar
	if g.Topics, err = m.grammar.AnalyzeTopicGaps(ctx); err != nil {
		return report, fmt.Errorf("grammar topic gaps: %w", err)
	}
	if g.MissingTopics, err = m.grammar.AnalyzeMissingTopics(ctx); err != nil {
		return report, fmt.Errorf("grammar missing topics: %w", err)
	}
	if g.Next, err = m.grammar.RecommendNextTopics(ctx, m.cfg.Grammar.MaxTopicsPerRun); err != nil {
		return report, fmt.Errorf("grammar recommendation: %w", err)
	}

	m.logger.DebugContext(ctx, "gap report built",
		slog.Int("categories", len(v.Categories)),
		slog.Int("topics_with_gaps", len(g.Topics)),
		slog.Int("missing_topics", len(g.MissingTopics)))
	return report, nil
}

// History returns up to limit records of kind, newest first. An empty kind
// selects both types; a non-positive limit uses DefaultHistoryLimit.
func (m *Monitor) History(kind domain.ContentType, limit int) []tracker.Record {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return m.history.History(kind, limit)
}

// Config returns the configuration with secrets masked.
func (m *Monitor) Config() config.Config {
	cfg := m.cfg
	cfg.Database.URL = redact.URL(cfg.Database.URL)
	cfg.LLM.GeminiAPIKey = redact.Secret(cfg.LLM.GeminiAPIKey)
	return cfg
}
