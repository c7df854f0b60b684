package gaps

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/phrazzld/scry-feeder/internal/config"
	"github.com/phrazzld/scry-feeder/internal/dedup"
	"github.com/phrazzld/scry-feeder/internal/domain"
	"github.com/phrazzld/scry-feeder/internal/platform/logger"
	"github.com/phrazzld/scry-feeder/internal/store"
)

// Action tells the grammar feeder what to do with a recommendation.
type Action string

// Recommendation actions.
const (
	ActionFillExercises Action = "fill_exercises"
	ActionCreateTopic   Action = "create_topic"
)

// Grammar priority weights.
const (
	grammarBaseScore        = 50
	priorityTopicBonus      = 15
	missingTypeBonusPerType = 2
	maxMissingTypeBonus     = 10
	createTopicPriority     = 40
)

var tierBonus = map[domain.Tier]int{
	domain.TierFoundational: 20,
	domain.TierCore:         10,
	domain.TierAdvanced:     0,
}

// TopicGap is the shortfall of one existing grammar topic.
type TopicGap struct {
	Topic         domain.GrammarTopic   `json:"topic"`
	CurrentTotal  int                   `json:"current_total"`
	Target        int                   `json:"target"`
	GapSize       int                   `json:"gap_size"`
	CompletionPct float64               `json:"completion_pct"`
	MissingTypes  []domain.ExerciseType `json:"missing_types"`
	Priority      int                   `json:"priority"`
}

// TopicRecommendation is one unit of work for the grammar feeder.
// Topic is set for fill_exercises, Spec for create_topic.
type TopicRecommendation struct {
	Action       Action                `json:"action"`
	Topic        *domain.GrammarTopic  `json:"topic,omitempty"`
	Spec         *config.TopicSpec     `json:"spec,omitempty"`
	Count        int                   `json:"count"`
	MissingTypes []domain.ExerciseType `json:"missing_types,omitempty"`
	Priority     int                   `json:"priority"`
	Reason       string                `json:"reason"`
}

// Name returns the topic name the recommendation is about.
func (r TopicRecommendation) Name() string {
	if r.Topic != nil {
		return r.Topic.Name
	}
	if r.Spec != nil {
		return r.Spec.Name
	}
	return ""
}

// GrammarAnalyzer computes per-topic exercise gaps.
type GrammarAnalyzer struct {
	store    store.GrammarStore
	cfg      config.GrammarConfig
	priority map[string]struct{}
	logger   *slog.Logger
}

// NewGrammarAnalyzer creates a GrammarAnalyzer over s.
func NewGrammarAnalyzer(s store.GrammarStore, cfg config.GrammarConfig, logger *slog.Logger) *GrammarAnalyzer {
	if s == nil {
		panic("grammar store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	priority := make(map[string]struct{}, len(cfg.PriorityCategories))
	for _, c := range cfg.PriorityCategories {
		priority[c] = struct{}{}
	}

	return &GrammarAnalyzer{
		store:    s,
		cfg:      cfg,
		priority: priority,
		logger:   logger.With(slog.String("component", "grammar_gap_analyzer")),
	}
}

// AnalyzeTopicGaps returns every existing topic below target, most urgent first.
func (a *GrammarAnalyzer) AnalyzeTopicGaps(ctx context.Context) ([]TopicGap, error) {
	topics, err := a.store.ListTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list grammar topics: %w", err)
	}

	counts, err := a.store.CountGroupedBy(ctx, "topic_id", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count exercises by topic: %w", err)
	}

	var gaps []TopicGap
	for _, topic := range topics {
		current := counts[strconv.FormatInt(topic.ID, 10)]
		if current >= a.cfg.TargetPerTopic {
			continue
		}

		present, err := a.store.QueryDistinctValues(ctx, "exercise_type", store.Filters{"topic_id": topic.ID})
		if err != nil {
			return nil, fmt.Errorf("failed to query exercise types of topic %d: %w", topic.ID, err)
		}

		gaps = append(gaps, a.topicGap(topic, current, missingTypes(present)))
	}

	sort.Slice(gaps, func(i, j int) bool {
		if gaps[i].Priority != gaps[j].Priority {
			return gaps[i].Priority > gaps[j].Priority
		}
		if gaps[i].GapSize != gaps[j].GapSize {
			return gaps[i].GapSize > gaps[j].GapSize
		}
		return gaps[i].Topic.Name < gaps[j].Topic.Name
	})

	logger.FromContextOrDefault(ctx, a.logger).DebugContext(ctx, "topic gaps analyzed",
		slog.Int("topics", len(topics)),
		slog.Int("with_gaps", len(gaps)))
	return gaps, nil
}

func (a *GrammarAnalyzer) topicGap(topic domain.GrammarTopic, current int, missing []domain.ExerciseType) TopicGap {
	target := a.cfg.TargetPerTopic
	gap := max(0, target-current)

	completion := float64(current) / float64(target) * 100

	score := grammarBaseScore + tierBonus[topic.Difficulty.Tier()] + completenessBonus(completion)
	if _, ok := a.priority[topic.Category]; ok {
		score += priorityTopicBonus
	}
	score += min(missingTypeBonusPerType*len(missing), maxMissingTypeBonus)

	return TopicGap{
		Topic:         topic,
		CurrentTotal:  current,
		Target:        target,
		GapSize:       gap,
		CompletionPct: completion,
		MissingTypes:  missing,
		Priority:      score,
	}
}

// completenessBonus rewards topics the further they are from complete.
func completenessBonus(pct float64) int {
	switch {
	case pct < 25:
		return 20
	case pct < 50:
		return 15
	case pct < 75:
		return 10
	case pct < 100:
		return 5
	}
	return 0
}

func missingTypes(present []string) []domain.ExerciseType {
	have := make(map[string]struct{}, len(present))
	for _, p := range present {
		have[p] = struct{}{}
	}
	var missing []domain.ExerciseType
	for _, t := range domain.ExerciseTypes() {
		if _, ok := have[string(t)]; !ok {
			missing = append(missing, t)
		}
	}
	return missing
}

// AnalyzeMissingTopics returns the configured watchlist topics whose
// normalized name is not in the corpus, in configuration order.
func (a *GrammarAnalyzer) AnalyzeMissingTopics(ctx context.Context) ([]config.TopicSpec, error) {
	topics, err := a.store.ListTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list grammar topics: %w", err)
	}

	known := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		known[dedup.Normalize(t.Name)] = struct{}{}
	}

	var missing []config.TopicSpec
	for _, spec := range a.cfg.MissingTopics {
		key := dedup.Normalize(spec.Name)
		if _, ok := known[key]; ok {
			continue
		}
		known[key] = struct{}{}
		missing = append(missing, spec)
	}
	return missing, nil
}

// RecommendNextTopics returns up to maxTopics units of work. Existing topics
// with gaps always come before new topics from the watchlist.
func (a *GrammarAnalyzer) RecommendNextTopics(ctx context.Context, maxTopics int) ([]TopicRecommendation, error) {
	if maxTopics <= 0 {
		return nil, nil
	}

	gaps, err := a.AnalyzeTopicGaps(ctx)
	if err != nil {
		return nil, err
	}

	recs := make([]TopicRecommendation, 0, maxTopics)
	for _, g := range gaps {
		if len(recs) == maxTopics {
			break
		}
		topic := g.Topic
		recs = append(recs, TopicRecommendation{
			Action:       ActionFillExercises,
			Topic:        &topic,
			Count:        min(g.GapSize, a.cfg.MaxExercisesPerTopic),
			MissingTypes: g.MissingTypes,
			Priority:     g.Priority,
			Reason: fmt.Sprintf("topic %q has %d/%d exercises and %d missing types",
				topic.Name, g.CurrentTotal, g.Target, len(g.MissingTypes)),
		})
	}

	if len(recs) < maxTopics {
		missing, err := a.AnalyzeMissingTopics(ctx)
		if err != nil {
			return nil, err
		}
		for _, spec := range missing {
			if len(recs) == maxTopics {
				break
			}
			spec := spec
			recs = append(recs, TopicRecommendation{
				Action:   ActionCreateTopic,
				Spec:     &spec,
				Count:    a.cfg.InitialExercisesPerTopic,
				Priority: createTopicPriority,
				Reason:   fmt.Sprintf("watchlist topic %q is not in the corpus", spec.Name),
			})
		}
	}

	logger.FromContextOrDefault(ctx, a.logger).InfoContext(ctx, "grammar topics recommended",
		slog.Int("recommendations", len(recs)))
	return recs, nil
}
