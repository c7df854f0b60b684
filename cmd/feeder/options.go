package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/phrazzld/scry-feeder/internal/feeder"
	"github.com/spf13/cobra"
)

// serveFromConfig is the --serve value used when no address is given.
const serveFromConfig = "config"

// mode is the single action one invocation performs.
type mode string

const (
	modeRun     mode = "run"
	modeStatus  mode = "status"
	modeGaps    mode = "gaps"
	modeHistory mode = "history"
	modeConfig  mode = "config"
	modeMigrate mode = "migrate"
	modeCleanup mode = "cleanup"
	modeServe   mode = "serve"
)

// errConflictingFlags is returned when more than one action is requested.
var errConflictingFlags = errors.New("conflicting flags")

type options struct {
	vocabulary bool
	grammar    bool
	both       bool
	force      bool
	verbose    bool

	status  bool
	gaps    bool
	history bool
	config  bool

	migrate bool
	cleanup bool
	serve   string

	configFile   string
	historyLimit int
}

// mode resolves the flags to one action. Execution flags may combine with
// each other; every other action stands alone.
func (o options) mode() (mode, error) {
	var actions []string
	for _, a := range []struct {
		set  bool
		name string
	}{
		{o.status, "--status"},
		{o.gaps, "--gaps"},
		{o.history, "--history"},
		{o.config, "--config"},
		{o.migrate, "--migrate"},
		{o.cleanup, "--cleanup"},
		{o.serve != "", "--serve"},
	} {
		if a.set {
			actions = append(actions, a.name)
		}
	}
	execution := o.vocabulary || o.grammar || o.both || o.force

	switch {
	case len(actions) > 1:
		return "", fmt.Errorf("%w: %s cannot be combined", errConflictingFlags, strings.Join(actions, ", "))
	case len(actions) == 1 && execution:
		return "", fmt.Errorf("%w: %s cannot be combined with execution flags", errConflictingFlags, actions[0])
	case len(actions) == 0:
		return modeRun, nil
	}

	switch actions[0] {
	case "--status":
		return modeStatus, nil
	case "--gaps":
		return modeGaps, nil
	case "--history":
		return modeHistory, nil
	case "--config":
		return modeConfig, nil
	case "--migrate":
		return modeMigrate, nil
	case "--cleanup":
		return modeCleanup, nil
	default:
		return modeServe, nil
	}
}

// selection returns the feeders a run executes; both when none is named.
func (o options) selection() feeder.Selection {
	if o.both || (!o.vocabulary && !o.grammar) {
		return feeder.Both()
	}
	return feeder.Selection{Vocabulary: o.vocabulary, Grammar: o.grammar}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "feeder",
		Short: "Feed generated German vocabulary and grammar exercises into the corpus",
		Long: "feeder finds gaps in the vocabulary and grammar corpus, generates new content\n" +
			"with Gemini, deduplicates it and inserts it under daily, weekly and global caps.\n" +
			"Every run is recorded in a JSON execution log.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := opts.mode()
			if err != nil {
				return err
			}
			return execute(cmd.Context(), m, opts, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.BoolVar(&opts.vocabulary, "vocabulary", false, "run the vocabulary feeder")
	f.BoolVar(&opts.grammar, "grammar", false, "run the grammar feeder")
	f.BoolVar(&opts.both, "both", false, "run both feeders (default)")
	f.BoolVar(&opts.force, "force", false, "bypass daily, weekly and global caps")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	f.BoolVar(&opts.status, "status", false, "show cap usage and run statistics")
	f.BoolVar(&opts.gaps, "gaps", false, "show corpus gaps and the next recommendations")
	f.BoolVar(&opts.history, "history", false, "show recent executions")
	f.BoolVar(&opts.config, "config", false, "show the effective configuration with secrets masked")

	f.BoolVar(&opts.migrate, "migrate", false, "apply pending database migrations")
	f.BoolVar(&opts.cleanup, "cleanup", false, "drop execution records older than the retention window")
	f.StringVar(&opts.serve, "serve", "", "serve the monitoring views over HTTP (address defaults to monitor.addr)")
	f.Lookup("serve").NoOptDefVal = serveFromConfig

	f.StringVar(&opts.configFile, "config-file", "", "path to a YAML configuration file")
	f.IntVar(&opts.historyLimit, "history-limit", 10, "number of executions shown by --history")

	return cmd
}
