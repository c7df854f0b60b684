package gaps

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/phrazzld/scry-feeder/internal/config"
	"github.com/phrazzld/scry-feeder/internal/domain"
	"github.com/phrazzld/scry-feeder/internal/platform/logger"
	"github.com/phrazzld/scry-feeder/internal/store"
)

// Vocabulary priority weights.
const (
	vocabularyBaseScore     = 50
	priorityCategoryBonus   = 30
	maxGapSizeBonus         = 20
	gapSizeBonusUnit        = 100
	largeGapBonus           = 15
	largeGapPercentageLimit = 50.0
)

// CategoryGap is the shortfall of one vocabulary category.
type CategoryGap struct {
	Category   string  `json:"category"`
	Current    int     `json:"current"`
	Target     int     `json:"target"`
	Gap        int     `json:"gap"`
	GapPct     float64 `json:"gap_pct"`
	IsPriority bool    `json:"is_priority"`
	Priority   int     `json:"priority"`
}

// LevelShare compares one CEFR level's share of the corpus to its target.
// GapPct is negative when the level is under target.
type LevelShare struct {
	Level      domain.Level `json:"level"`
	Current    int          `json:"current"`
	CurrentPct float64      `json:"current_pct"`
	TargetPct  float64      `json:"target_pct"`
	GapPct     float64      `json:"gap_pct"`
}

// BatchRecommendation is the next vocabulary batch to generate.
type BatchRecommendation struct {
	Category   string       `json:"category"`
	Difficulty domain.Level `json:"difficulty"`
	WordCount  int          `json:"word_count"`
	Priority   int          `json:"priority"`
	Reason     string       `json:"reason"`
}

// VocabularyAnalyzer computes vocabulary gaps from grouped corpus counts.
type VocabularyAnalyzer struct {
	store    store.VocabularyStore
	cfg      config.VocabularyConfig
	priority map[string]struct{}
	logger   *slog.Logger
}

// NewVocabularyAnalyzer creates a VocabularyAnalyzer over s.
func NewVocabularyAnalyzer(
	s store.VocabularyStore,
	cfg config.VocabularyConfig,
	logger *slog.Logger,
) *VocabularyAnalyzer {
	if s == nil {
		panic("vocabulary store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	priority := make(map[string]struct{}, len(cfg.PriorityCategories))
	for _, c := range cfg.PriorityCategories {
		priority[c] = struct{}{}
	}

	return &VocabularyAnalyzer{
		store:    s,
		cfg:      cfg,
		priority: priority,
		logger:   logger.With(slog.String("component", "vocabulary_gap_analyzer")),
	}
}

// AnalyzeCategoryGaps returns one gap per configured category, most urgent first.
// Categories already at or above target are included with a zero gap.
func (a *VocabularyAnalyzer) AnalyzeCategoryGaps(ctx context.Context) ([]CategoryGap, error) {
	counts, err := a.store.CountGroupedBy(ctx, "category", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count vocabulary by category: %w", err)
	}

	gaps := make([]CategoryGap, 0, len(a.cfg.CategoryTargets))
	for category, target := range a.cfg.CategoryTargets {
		_, isPriority := a.priority[category]
		gaps = append(gaps, categoryGap(category, counts[category], target, isPriority))
	}

	sort.Slice(gaps, func(i, j int) bool {
		if gaps[i].Priority != gaps[j].Priority {
			return gaps[i].Priority > gaps[j].Priority
		}
		if gaps[i].Gap != gaps[j].Gap {
			return gaps[i].Gap > gaps[j].Gap
		}
		return gaps[i].Category < gaps[j].Category
	})

	logger.FromContextOrDefault(ctx, a.logger).DebugContext(ctx, "category gaps analyzed",
		slog.Int("categories", len(gaps)))
	return gaps, nil
}

func categoryGap(category string, current, target int, isPriority bool) CategoryGap {
	gap := target - current
	if gap < 0 {
		gap = 0
	}

	var pct float64
	if target > 0 {
		pct = float64(gap) / float64(target) * 100
	}

	score := vocabularyBaseScore
	if isPriority {
		score += priorityCategoryBonus
	}
	score += min(gap/gapSizeBonusUnit, maxGapSizeBonus)
	if pct > largeGapPercentageLimit {
		score += largeGapBonus
	}

	return CategoryGap{
		Category:   category,
		Current:    current,
		Target:     target,
		Gap:        gap,
		GapPct:     pct,
		IsPriority: isPriority,
		Priority:   score,
	}
}

// AnalyzeCEFRDistribution returns the share of every CEFR level that has a
// configured target, in ascending level order.
func (a *VocabularyAnalyzer) AnalyzeCEFRDistribution(ctx context.Context) ([]LevelShare, error) {
	counts, err := a.store.CountGroupedBy(ctx, "difficulty_level", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count vocabulary by difficulty: %w", err)
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	shares := make([]LevelShare, 0, len(a.cfg.CEFRTargets))
	for _, level := range domain.Levels() {
		target, ok := a.cfg.CEFRTargets[string(level)]
		if !ok {
			continue
		}
		current := counts[string(level)]
		var pct float64
		if total > 0 {
			pct = float64(current) / float64(total) * 100
		}
		shares = append(shares, LevelShare{
			Level:      level,
			Current:    current,
			CurrentPct: pct,
			TargetPct:  target,
			GapPct:     pct - target,
		})
	}
	return shares, nil
}

// RecommendNextBatch picks the most urgent category with a gap and the most
// under-represented CEFR level. It returns nil when every category is at target.
func (a *VocabularyAnalyzer) RecommendNextBatch(ctx context.Context, maxWords int) (*BatchRecommendation, error) {
	gaps, err := a.AnalyzeCategoryGaps(ctx)
	if err != nil {
		return nil, err
	}

	var top *CategoryGap
	for i := range gaps {
		if gaps[i].Gap > 0 {
			top = &gaps[i]
			break
		}
	}
	if top == nil {
		return nil, nil
	}

	shares, err := a.AnalyzeCEFRDistribution(ctx)
	if err != nil {
		return nil, err
	}
	level := mostUnderTarget(shares)

	rec := &BatchRecommendation{
		Category:   top.Category,
		Difficulty: level,
		WordCount:  min(maxWords, top.Gap),
		Priority:   top.Priority,
		Reason: fmt.Sprintf("category %s is %.1f%% below target (%d/%d); %s is the most under-represented level",
			top.Category, top.GapPct, top.Current, top.Target, level),
	}

	logger.FromContextOrDefault(ctx, a.logger).InfoContext(ctx, "vocabulary batch recommended",
		slog.String("category", rec.Category),
		slog.String("difficulty", string(rec.Difficulty)),
		slog.Int("word_count", rec.WordCount),
		slog.Int("priority", rec.Priority))
	return rec, nil
}

// mostUnderTarget returns the level with the most negative gap, preferring
// the easier level on ties. Without targets it falls back to A1.
func mostUnderTarget(shares []LevelShare) domain.Level {
	if len(shares) == 0 {
		return domain.LevelA1
	}
	best := shares[0]
	for _, s := range shares[1:] {
		if s.GapPct < best.GapPct {
			best = s
		}
	}
	return best.Level
}
