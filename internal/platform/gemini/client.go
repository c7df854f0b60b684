package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/scry-feeder/internal/config"
	"github.com/phrazzld/scry-feeder/internal/generation"
	"google.golang.org/genai"
)

// Models is the part of the genai client the Client calls.
// *genai.Models satisfies it.
type Models interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Client implements generation.Completer using Google's Gemini API.
type Client struct {
	// logger is used for structured logging
	logger *slog.Logger

	// config contains LLM-specific configuration
	config config.LLMConfig

	// models issues the GenerateContent requests
	models Models

	// sleep waits between retries; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error

	mu  sync.Mutex
	rng *rand.Rand
}

var _ generation.Completer = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithSleep replaces the wait between retry attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// NewClient creates a Client connected to the Gemini API.
//
// Parameters:
//   - ctx: Context for the operation, which can be used for cancellation
//   - logger: A structured logger for operation logging
//   - cfg: LLM configuration containing API key, model name, and retry settings
//
// Returns:
//   - A properly initialized Client or an error if initialization fails
func NewClient(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig, opts ...Option) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	logger.InfoContext(ctx, "Initializing Gemini client", "model", cfg.ModelName)

	cfg, err := validateConfig(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return NewClientWithModels(genaiClient.Models, logger, cfg, opts...)
}

// NewClientWithModels creates a Client around an existing Models implementation.
// The API key is not required here; the model name is.
func NewClientWithModels(models Models, logger *slog.Logger, cfg config.LLMConfig, opts ...Option) (*Client, error) {
	if models == nil {
		return nil, fmt.Errorf("%w: models cannot be nil", generation.ErrInvalidConfig)
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	c := &Client{
		logger: logger.With(slog.String("component", "gemini_client")),
		config: withRetryDefaults(context.Background(), logger, cfg),
		models: models,
		sleep:  sleepContext,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Complete sends prompt to the configured model and returns the response text.
//
// It attempts the call up to MaxRetries+1 times, using exponential backoff
// with jitter between attempts for transient errors. Permanent errors (content
// blocked by safety filters, empty responses) are returned immediately.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	maxRetries := c.config.MaxRetries
	for attempt := 0; ; attempt++ {
		attemptNum := attempt + 1
		c.logger.InfoContext(ctx, "Making Gemini API call",
			"attempt", attemptNum,
			"max_attempts", maxRetries+1,
			"prompt_length", len(prompt))

		text, err := c.generate(ctx, prompt)
		if err == nil {
			c.logger.InfoContext(ctx, "Gemini API call successful",
				"attempt", attemptNum,
				"response_length", len(text))
			return text, nil
		}

		c.logger.ErrorContext(ctx, "Gemini API call failed",
			"attempt", attemptNum,
			"error", err)

		if errors.Is(err, generation.ErrContentBlocked) || errors.Is(err, generation.ErrInvalidResponse) {
			c.logger.WarnContext(ctx, "Permanent error occurred, not retrying",
				"error_type", err)
			return "", err
		}

		if attempt >= maxRetries {
			c.logger.WarnContext(ctx, "Maximum retry attempts reached",
				"max_retries", maxRetries)
			return "", fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				generation.ErrTransientFailure, maxRetries, err)
		}

		delay := c.backoff(attempt)
		c.logger.InfoContext(ctx, "Retrying after delay",
			"attempt", attemptNum,
			"delay_seconds", delay.Seconds())

		if err := c.sleep(ctx, delay); err != nil {
			c.logger.WarnContext(ctx, "API call cancelled during retry delay",
				"attempt", attemptNum,
				"ctx_err", err)
			return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
		}
	}
}

// generate performs a single API call and classifies its outcome.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	temperature := c.config.Temperature
	resp, err := c.models.GenerateContent(ctx, c.config.ModelName, genai.Text(prompt),
		&genai.GenerateContentConfig{Temperature: &temperature})
	if err != nil {
		return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}
	return responseText(resp)
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	switch {
	case resp == nil:
		return "", fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	case len(resp.Candidates) == 0:
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("%w: response contains no text", generation.ErrInvalidResponse)
	}
	return b.String(), nil
}

// backoff returns baseDelay * 2^attempt * (0.5 + rand(0, 0.5)).
func (c *Client) backoff(attempt int) time.Duration {
	c.mu.Lock()
	jitterFactor := 0.5 + c.rng.Float64()*0.5
	c.mu.Unlock()

	backoffSeconds := float64(c.config.RetryDelaySeconds) * math.Pow(2, float64(attempt))
	return time.Duration(backoffSeconds * jitterFactor * float64(time.Second))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
