package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/phrazzld/scry-feeder/internal/config"
	"github.com/phrazzld/scry-feeder/internal/feeder"
	"github.com/phrazzld/scry-feeder/internal/gaps"
	"github.com/phrazzld/scry-feeder/internal/generation"
	"github.com/phrazzld/scry-feeder/internal/monitor"
	"github.com/phrazzld/scry-feeder/internal/platform/gemini"
	"github.com/phrazzld/scry-feeder/internal/platform/logger"
	"github.com/phrazzld/scry-feeder/internal/platform/postgres"
	"github.com/phrazzld/scry-feeder/internal/redact"
	"github.com/phrazzld/scry-feeder/internal/store"
	"github.com/phrazzld/scry-feeder/internal/tracker"
	"github.com/phrazzld/scry-feeder/internal/validation"
)

// application holds the dependencies shared by every mode.
type application struct {
	cfg     *config.Config
	logger  *slog.Logger
	tracker *tracker.Tracker
	stdout  io.Writer
}

// execute loads configuration, builds the dependencies m needs and performs it.
// Pipeline outcomes are reported on stdout; only configuration and
// infrastructure failures are returned.
func execute(ctx context.Context, m mode, opts options, stdout, stderr io.Writer) error {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.Setup(cfg.Log, stderr, opts.verbose)
	ctx = logger.WithLogger(ctx, log)
	log.InfoContext(ctx, "configuration loaded",
		slog.String("mode", string(m)),
		slog.String("model", cfg.LLM.ModelName),
		slog.String("log_path", cfg.Tracker.LogPath),
		slog.Bool("database_url_present", cfg.Database.URL != ""))

	tr, err := tracker.New(cfg.Tracker.LogPath, log)
	if err != nil {
		return fmt.Errorf("failed to open execution log: %w", err)
	}

	app := &application{cfg: cfg, logger: log, tracker: tr, stdout: stdout}

	switch m {
	case modeStatus:
		return printJSON(stdout, app.monitor(nil, nil).Status())
	case modeHistory:
		return printJSON(stdout, app.monitor(nil, nil).History("", opts.historyLimit))
	case modeConfig:
		return printJSON(stdout, app.monitor(nil, nil).Config())
	case modeCleanup:
		return app.cleanup()
	case modeServe:
		return app.serve(ctx, opts.serve)
	}

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close database", slog.String("error", err.Error()))
		}
	}()

	switch m {
	case modeMigrate:
		n, err := postgres.Migrate(ctx, db, log)
		if err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		_, err = fmt.Fprintf(stdout, "applied %d migration(s)\n", n)
		return err
	case modeGaps:
		va, ga := app.analyzers(db)
		report, err := app.monitor(va, ga).Gaps(ctx)
		if err != nil {
			return fmt.Errorf("failed to analyze gaps: %w", err)
		}
		return printJSON(stdout, report)
	default:
		return app.run(ctx, db, opts)
	}
}

// openDatabase opens and pings the corpus database.
func openDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", redact.URL(cfg.Database.URL), err)
	}

	logger.InfoContext(ctx, "database connection established")
	return db, nil
}

func (app *application) monitor(va monitor.VocabularyAnalyzer, ga monitor.GrammarAnalyzer) *monitor.Monitor {
	return monitor.New(app.tracker, va, ga, *app.cfg, app.logger)
}

func (app *application) analyzers(db *sql.DB) (*gaps.VocabularyAnalyzer, *gaps.GrammarAnalyzer) {
	return gaps.NewVocabularyAnalyzer(postgres.NewPostgresVocabularyStore(db, app.logger), app.cfg.Vocabulary, app.logger),
		gaps.NewGrammarAnalyzer(postgres.NewPostgresGrammarStore(db, app.logger), app.cfg.Grammar, app.logger)
}

func (app *application) cleanup() error {
	days := app.cfg.Tracker.RetentionDays
	removed, err := app.tracker.CleanupOldExecutions(days)
	if err != nil {
		return fmt.Errorf("failed to clean up execution log: %w", err)
	}
	_, err = fmt.Fprintf(app.stdout, "removed %d execution record(s) older than %d days\n", removed, days)
	return err
}

// run wires the stores, Gemini client and feeders, runs the selected feeders
// and prints the summary.
func (app *application) run(ctx context.Context, db *sql.DB, opts options) error {
	cfg := app.cfg
	vocabStore := postgres.NewPostgresVocabularyStore(db, app.logger)
	grammarStore := postgres.NewPostgresGrammarStore(db, app.logger)
	transactor := store.NewTransactor(db)

	client, err := gemini.NewClient(ctx, app.logger, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create Gemini client: %w", err)
	}

	validator := validation.New(validation.Rules{
		Categories:    slices.Sorted(maps.Keys(cfg.Vocabulary.CategoryTargets)),
		PartsOfSpeech: cfg.Vocabulary.PartsOfSpeech,
	})
	generator, err := generation.NewGenerator(client, validator, cfg.Generation, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}

	vocabAnalyzer, grammarAnalyzer := app.analyzers(db)

	vocabFeeder, err := feeder.NewVocabularyFeeder(
		vocabStore, transactor, vocabAnalyzer, generator, app.tracker, *cfg, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create vocabulary feeder: %w", err)
	}
	grammarFeeder, err := feeder.NewGrammarFeeder(
		grammarStore, transactor, grammarAnalyzer, generator, app.tracker, *cfg, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create grammar feeder: %w", err)
	}

	summary := feeder.NewOrchestrator(vocabFeeder, grammarFeeder, app.logger).
		Run(ctx, opts.selection(), feeder.RunOptions{Force: opts.force})
	return printSummary(app.stdout, summary)
}

// serve exposes the monitor over HTTP until ctx is canceled. Without a
// reachable database the gap views answer 503 and everything else still works.
func (app *application) serve(ctx context.Context, addr string) error {
	if addr == "" || addr == serveFromConfig {
		addr = app.cfg.Monitor.Addr
	}

	var (
		va monitor.VocabularyAnalyzer
		ga monitor.GrammarAnalyzer
	)
	db, err := openDatabase(ctx, app.cfg, app.logger)
	if err != nil {
		app.logger.WarnContext(ctx, "serving without gap analysis",
			slog.String("error", redact.Error(err)))
	} else {
		defer func() { _ = db.Close() }()
		va, ga = app.analyzers(db)
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           monitor.NewRouter(app.monitor(va, ga), app.logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("starting monitor server", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("monitor server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		app.logger.Info("shutting down monitor server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("monitor server shutdown failed: %w", err)
	}
	return nil
}
