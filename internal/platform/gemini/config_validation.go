package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-feeder/internal/config"
	"github.com/phrazzld/scry-feeder/internal/generation"
)

const (
	defaultMaxRetries        = 3
	defaultRetryDelaySeconds = 2
)

// validateConfig checks the settings a live Gemini client cannot run without
// and returns the retry settings to use, falling back to defaults for
// out-of-range values.
func validateConfig(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (config.LLMConfig, error) {
	if cfg.GeminiAPIKey == "" {
		logger.ErrorContext(ctx, "Missing Gemini API key",
			"error", "GeminiAPIKey is empty")
		return cfg, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		logger.ErrorContext(ctx, "Missing model name",
			"error", "ModelName is empty")
		return cfg, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	return withRetryDefaults(ctx, logger, cfg), nil
}

func withRetryDefaults(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) config.LLMConfig {
	if cfg.MaxRetries < 0 {
		logger.WarnContext(ctx, "Invalid MaxRetries value",
			"value", cfg.MaxRetries,
			"action", "using default value")
		cfg.MaxRetries = defaultMaxRetries
	}

	if cfg.RetryDelaySeconds < 1 {
		logger.WarnContext(ctx, "Invalid RetryDelaySeconds value",
			"value", cfg.RetryDelaySeconds,
			"action", "using default value")
		cfg.RetryDelaySeconds = defaultRetryDelaySeconds
	}

	return cfg
}
