package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ErrInvalidConfig is returned when the configuration is malformed or contradictory.
var ErrInvalidConfig = errors.New("configuration validation failed")

// EnvPrefix is the prefix of every environment variable the loader reads.
const EnvPrefix = "FEEDER"

// Load reads configuration from defaults, an optional YAML file, and environment variables.
// Environment variables take precedence over file values, which take precedence over defaults.
// When path is empty, a file named feeder.yaml is looked up in the working directory and
// ./config; its absence is not an error. An explicit path that cannot be read is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("feeder")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvs := []struct {
		key    string
		envVar string
	}{
		{"database.url", "FEEDER_DATABASE_URL"},
		{"llm.gemini_api_key", "FEEDER_LLM_GEMINI_API_KEY"},
		{"log.level", "FEEDER_LOG_LEVEL"},
		{"tracker.log_path", "FEEDER_TRACKER_LOG_PATH"},
	}
	for _, env := range bindEnvs {
		if err := v.BindEnv(env.key, env.envVar); err != nil {
			return nil, fmt.Errorf("error binding environment variable %s: %w", env.envVar, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// Map-valued settings are replaced wholesale by the file, never merged key by key.
	if len(cfg.Vocabulary.CategoryTargets) == 0 {
		cfg.Vocabulary.CategoryTargets = defaultCategoryTargets()
	}
	if len(cfg.Vocabulary.CEFRTargets) == 0 {
		cfg.Vocabulary.CEFRTargets = defaultCEFRTargets()
	}

	// viper lower-cases map keys; CEFR levels are upper-case everywhere else.
	cfg.Vocabulary.CEFRTargets = upperKeys(cfg.Vocabulary.CEFRTargets)
	for i := range cfg.Grammar.MissingTopics {
		cfg.Grammar.MissingTopics[i].Difficulty = strings.ToUpper(cfg.Grammar.MissingTopics[i].Difficulty)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate runs struct-tag validation followed by cross-field business rules.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := validateCaps("vocabulary", c.Vocabulary.MaxWordsPerRun,
		c.Vocabulary.DailyCap, c.Vocabulary.WeeklyCap, c.Vocabulary.GlobalCap); err != nil {
		return err
	}
	if err := validateCaps("grammar", c.Grammar.MaxExercisesPerRun,
		c.Grammar.DailyCap, c.Grammar.WeeklyCap, c.Grammar.GlobalCap); err != nil {
		return err
	}

	var sum float64
	for level, pct := range c.Vocabulary.CEFRTargets {
		if !isCEFRLevel(level) {
			return fmt.Errorf("%w: vocabulary.cefr_targets has unknown level %q", ErrInvalidConfig, level)
		}
		sum += pct
	}
	if math.Abs(sum-100) > 1 {
		return fmt.Errorf("%w: vocabulary.cefr_targets must sum to 100 (got %.1f)", ErrInvalidConfig, sum)
	}

	for _, category := range c.Vocabulary.PriorityCategories {
		if _, ok := c.Vocabulary.CategoryTargets[category]; !ok {
			return fmt.Errorf("%w: priority category %q has no target", ErrInvalidConfig, category)
		}
	}

	if c.Grammar.InitialExercisesPerTopic > c.Grammar.TargetPerTopic {
		return fmt.Errorf("%w: grammar.initial_exercises_per_topic (%d) exceeds target_per_topic (%d)",
			ErrInvalidConfig, c.Grammar.InitialExercisesPerTopic, c.Grammar.TargetPerTopic)
	}

	return nil
}

// RequireDatabase reports an error when no corpus database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return fmt.Errorf("%w: database.url is required (set it in the file or FEEDER_DATABASE_URL)", ErrInvalidConfig)
	}
	return nil
}

func validateCaps(kind string, perRun, daily, weekly, global int) error {
	if daily > weekly {
		return fmt.Errorf("%w: %s.daily_cap (%d) exceeds weekly_cap (%d)", ErrInvalidConfig, kind, daily, weekly)
	}
	if weekly > global {
		return fmt.Errorf("%w: %s.weekly_cap (%d) exceeds global_cap (%d)", ErrInvalidConfig, kind, weekly, global)
	}
	if perRun > daily {
		return fmt.Errorf("%w: %s per-run maximum (%d) exceeds daily_cap (%d)", ErrInvalidConfig, kind, perRun, daily)
	}
	return nil
}

func isCEFRLevel(level string) bool {
	switch level {
	case "A1", "A2", "B1", "B2", "C1", "C2":
		return true
	}
	return false
}

func upperKeys(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[strings.ToUpper(k)] = v
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.url", "")
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)

	v.SetDefault("log.level", "info")

	v.SetDefault("tracker.log_path", "logs/feeding_executions.json")
	v.SetDefault("tracker.retention_days", 90)

	v.SetDefault("generation.chunk_size", 40)
	v.SetDefault("generation.chunk_delay_ms", 2000)
	v.SetDefault("generation.debug_dir", "logs/debug")
	v.SetDefault("generation.examples_per_word", 1)

	v.SetDefault("vocabulary.max_words_per_run", 50)
	v.SetDefault("vocabulary.daily_cap", 100)
	v.SetDefault("vocabulary.weekly_cap", 500)
	v.SetDefault("vocabulary.global_cap", 20000)
	v.SetDefault("vocabulary.similarity_threshold", 0.85)
	v.SetDefault("vocabulary.priority_categories", []string{"business", "finance"})
	v.SetDefault("vocabulary.parts_of_speech", []string{
		"noun", "verb", "adjective", "adverb", "preposition", "conjunction", "phrase",
	})

	v.SetDefault("grammar.max_exercises_per_run", 100)
	v.SetDefault("grammar.max_topics_per_run", 5)
	v.SetDefault("grammar.daily_cap", 200)
	v.SetDefault("grammar.weekly_cap", 1000)
	v.SetDefault("grammar.global_cap", 20000)
	v.SetDefault("grammar.similarity_threshold", 0.90)
	v.SetDefault("grammar.target_per_topic", 50)
	v.SetDefault("grammar.max_exercises_per_topic", 20)
	v.SetDefault("grammar.initial_exercises_per_topic", 15)
	v.SetDefault("grammar.priority_categories", []string{"cases", "verbs"})
	v.SetDefault("grammar.missing_topics", []map[string]any{
		{"name": "Konjunktiv II der Höflichkeit", "category": "verbs", "difficulty": "B1"},
		{"name": "Nominalisierung im Geschäftsdeutsch", "category": "style", "difficulty": "C1"},
	})

	v.SetDefault("monitor.addr", ":8090")
}

func defaultCategoryTargets() map[string]int {
	return map[string]int{
		"business":   3500,
		"finance":    3000,
		"everyday":   3200,
		"technology": 2000,
		"travel":     1500,
		"health":     1200,
	}
}

func defaultCEFRTargets() map[string]float64 {
	return map[string]float64{"A1": 10, "A2": 15, "B1": 25, "B2": 25, "C1": 15, "C2": 10}
}
