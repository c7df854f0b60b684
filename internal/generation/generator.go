package generation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-feeder/internal/config"
	"github.com/phrazzld/scry-feeder/internal/validation"
)

// Completer is the boundary to the generative AI: one prompt in, raw text out.
// Implementations classify failures with ErrTransientFailure, ErrContentBlocked
// and ErrInvalidResponse.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Generator produces validated content by prompting a Completer.
type Generator struct {
	completer  Completer
	validator  *validation.Validator
	logger     *slog.Logger
	chunkSize  int
	chunkDelay time.Duration
	debugDir   string
	examples   int
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithSleep replaces the inter-chunk wait, which tests use to avoid real delays.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(g *Generator) {
		g.sleep = sleep
	}
}

// WithClock replaces time.Now for debug dump names.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// NewGenerator creates a Generator. The validator filters every batch before it is returned.
func NewGenerator(
	completer Completer,
	validator *validation.Validator,
	cfg config.GenerationConfig,
	logger *slog.Logger,
	opts ...Option,
) (*Generator, error) {
	if completer == nil {
		return nil, fmt.Errorf("%w: completer cannot be nil", ErrInvalidConfig)
	}
	if validator == nil {
		return nil, fmt.Errorf("%w: validator cannot be nil", ErrInvalidConfig)
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, cfg.ChunkSize)
	}
	if logger == nil {
		logger = slog.Default()
	}

	examples := cfg.ExamplesPerWord
	if examples < 1 {
		examples = 1
	}

	g := &Generator{
		completer:  completer,
		validator:  validator,
		logger:     logger.With(slog.String("component", "content_generator")),
		chunkSize:  cfg.ChunkSize,
		chunkDelay: time.Duration(cfg.ChunkDelayMS) * time.Millisecond,
		debugDir:   cfg.DebugDir,
		examples:   examples,
		sleep:      sleepContext,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// ChunkSize returns the largest item count requested in one AI call.
func (g *Generator) ChunkSize() int {
	return g.chunkSize
}

// ChunkSizes splits count into ceil(count/chunkSize) sizes, the remainder last.
func ChunkSizes(count, chunkSize int) []int {
	if count <= 0 || chunkSize <= 0 {
		return nil
	}
	sizes := make([]int, 0, (count+chunkSize-1)/chunkSize)
	for start := 0; start < count; start += chunkSize {
		size := chunkSize
		if remaining := count - start; remaining < size {
			size = remaining
		}
		sizes = append(sizes, size)
	}
	return sizes
}

// callOutcome is what one chunk call produced.
type callOutcome struct {
	payload []byte
	err     error
}

// runChunks issues one completion per chunk, in order, waiting chunkDelay
// between calls. render builds the prompt for a chunk of the given size.
// It stops early only when ctx is done.
func (g *Generator) runChunks(
	ctx context.Context,
	kind string,
	count int,
	open byte,
	render func(size int) (string, error),
) ([]callOutcome, int) {
	sizes := ChunkSizes(count, g.chunkSize)
	outcomes := make([]callOutcome, 0, len(sizes))
	calls := 0

	for i, size := range sizes {
		if i > 0 && g.chunkDelay > 0 {
			if err := g.sleep(ctx, g.chunkDelay); err != nil {
				outcomes = append(outcomes, callOutcome{err: fmt.Errorf("%w: %v", ErrTransientFailure, err)})
				break
			}
		}

		log := g.logger.With(
			slog.String("kind", kind),
			slog.Int("chunk", i+1),
			slog.Int("chunks", len(sizes)),
			slog.Int("size", size))
		log.InfoContext(ctx, "requesting chunk")

		prompt, err := render(size)
		if err != nil {
			outcomes = append(outcomes, callOutcome{err: fmt.Errorf("%w: %v", ErrGenerationFailed, err)})
			continue
		}

		calls++
		text, err := g.completer.Complete(ctx, prompt)
		if err != nil {
			log.WarnContext(ctx, "chunk generation failed", slog.String("error", err.Error()))
			outcomes = append(outcomes, callOutcome{err: err})
			if ctx.Err() != nil {
				break
			}
			continue
		}

		payload, strategy, err := ExtractJSON(text, open)
		if err != nil {
			path := g.dumpDebug(kind, i+1, text, payload)
			log.WarnContext(ctx, "chunk response could not be parsed",
				slog.String("debug_file", path),
				slog.Int("response_length", len(text)))
			outcomes = append(outcomes, callOutcome{err: fmt.Errorf("%w (debug dump: %s)", err, path)})
			continue
		}

		log.DebugContext(ctx, "chunk parsed", slog.String("strategy", strategy))
		outcomes = append(outcomes, callOutcome{payload: payload})
	}

	return outcomes, calls
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// failureReason summarizes why a batch produced nothing.
func failureReason(errs []string) string {
	if len(errs) == 0 {
		return ErrGenerationFailed.Error()
	}
	return fmt.Sprintf("%s: %s", ErrGenerationFailed.Error(), errs[0])
}
