package config

// Config holds all feeder configuration.
// It is loaded once at startup and passed by value into every component constructor.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database" json:"database" validate:"required"`
	LLM        LLMConfig        `mapstructure:"llm" json:"llm" validate:"required"`
	Log        LogConfig        `mapstructure:"log" json:"log" validate:"required"`
	Tracker    TrackerConfig    `mapstructure:"tracker" json:"tracker" validate:"required"`
	Generation GenerationConfig `mapstructure:"generation" json:"generation" validate:"required"`
	Vocabulary VocabularyConfig `mapstructure:"vocabulary" json:"vocabulary" validate:"required"`
	Grammar    GrammarConfig    `mapstructure:"grammar" json:"grammar" validate:"required"`
	Monitor    MonitorConfig    `mapstructure:"monitor" json:"monitor"`
}

// DatabaseConfig contains the corpus store connection settings.
// The URL is optional at load time; only modes that open the corpus require it.
type DatabaseConfig struct {
	URL string `mapstructure:"url" json:"url" validate:"omitempty,url"`
}

// LLMConfig contains the generative AI settings.
// The API key is only checked when a generator is constructed, so monitoring
// commands work without one.
type LLMConfig struct {
	GeminiAPIKey      string  `mapstructure:"gemini_api_key" json:"gemini_api_key"`
	ModelName         string  `mapstructure:"model_name" json:"model_name" validate:"required"`
	Temperature       float32 `mapstructure:"temperature" json:"temperature" validate:"gte=0,lte=2"`
	MaxRetries        int     `mapstructure:"max_retries" json:"max_retries" validate:"gte=0,lte=10"`
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" json:"retry_delay_seconds" validate:"gte=1"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string `mapstructure:"level" json:"level" validate:"required,oneof=debug info warn error"`
}

// TrackerConfig locates the execution log and its retention window.
type TrackerConfig struct {
	LogPath       string `mapstructure:"log_path" json:"log_path" validate:"required"`
	RetentionDays int    `mapstructure:"retention_days" json:"retention_days" validate:"gt=0"`
}

// GenerationConfig controls chunked AI invocation and parse-failure dumps.
type GenerationConfig struct {
	ChunkSize       int    `mapstructure:"chunk_size" json:"chunk_size" validate:"gt=0"`
	ChunkDelayMS    int    `mapstructure:"chunk_delay_ms" json:"chunk_delay_ms" validate:"gte=0"`
	DebugDir        string `mapstructure:"debug_dir" json:"debug_dir" validate:"required"`
	ExamplesPerWord int    `mapstructure:"examples_per_word" json:"examples_per_word" validate:"gte=1,lte=3"`
}

// VocabularyConfig governs vocabulary runs.
type VocabularyConfig struct {
	MaxWordsPerRun      int                `mapstructure:"max_words_per_run" json:"max_words_per_run" validate:"gt=0"`
	DailyCap            int                `mapstructure:"daily_cap" json:"daily_cap" validate:"gt=0"`
	WeeklyCap           int                `mapstructure:"weekly_cap" json:"weekly_cap" validate:"gt=0"`
	GlobalCap           int                `mapstructure:"global_cap" json:"global_cap" validate:"gt=0"`
	SimilarityThreshold float64            `mapstructure:"similarity_threshold" json:"similarity_threshold" validate:"gt=0,lte=1"`
	PriorityCategories  []string           `mapstructure:"priority_categories" json:"priority_categories"`
	CategoryTargets     map[string]int     `mapstructure:"category_targets" json:"category_targets" validate:"required,min=1,dive,gt=0"`
	CEFRTargets         map[string]float64 `mapstructure:"cefr_targets" json:"cefr_targets" validate:"required,min=1,dive,gte=0"`
	PartsOfSpeech       []string           `mapstructure:"parts_of_speech" json:"parts_of_speech" validate:"required,min=1"`
}

// GrammarConfig governs grammar runs.
type GrammarConfig struct {
	MaxExercisesPerRun       int         `mapstructure:"max_exercises_per_run" json:"max_exercises_per_run" validate:"gt=0"`
	MaxTopicsPerRun          int         `mapstructure:"max_topics_per_run" json:"max_topics_per_run" validate:"gt=0"`
	DailyCap                 int         `mapstructure:"daily_cap" json:"daily_cap" validate:"gt=0"`
	WeeklyCap                int         `mapstructure:"weekly_cap" json:"weekly_cap" validate:"gt=0"`
	GlobalCap                int         `mapstructure:"global_cap" json:"global_cap" validate:"gt=0"`
	SimilarityThreshold      float64     `mapstructure:"similarity_threshold" json:"similarity_threshold" validate:"gt=0,lte=1"`
	TargetPerTopic           int         `mapstructure:"target_per_topic" json:"target_per_topic" validate:"gt=0"`
	MaxExercisesPerTopic     int         `mapstructure:"max_exercises_per_topic" json:"max_exercises_per_topic" validate:"gt=0"`
	InitialExercisesPerTopic int         `mapstructure:"initial_exercises_per_topic" json:"initial_exercises_per_topic" validate:"gt=0"`
	PriorityCategories       []string    `mapstructure:"priority_categories" json:"priority_categories"`
	MissingTopics            []TopicSpec `mapstructure:"missing_topics" json:"missing_topics" validate:"dive"`
}

// TopicSpec names a grammar topic the corpus is expected to contain.
type TopicSpec struct {
	Name       string `mapstructure:"name" json:"name" validate:"required"`
	Category   string `mapstructure:"category" json:"category" validate:"required"`
	Difficulty string `mapstructure:"difficulty" json:"difficulty" validate:"required,oneof=A1 A2 B1 B2 C1 C2"`
}

// MonitorConfig configures the read-only monitoring server.
type MonitorConfig struct {
	Addr string `mapstructure:"addr" json:"addr"`
}
