package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/me/qsubwt/internal/config"
	"github.com/me/qsubwt/internal/logging"
	"github.com/me/qsubwt/internal/qsub"
	"github.com/me/qsubwt/internal/shell"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Version is overridden at build time with -ldflags "-X".
var Version = "0.1.0"

// ErrCancelled is returned when an interrupt led to a successful cancel.
// It carries no message worth printing; main maps it to exit code 130.
var ErrCancelled = errors.New("job cancelled")

// errUsage marks invocations answered with the usage text.
var errUsage = errors.New("usage requested")

const usage = `Simple wrapper for qsub which provides the functionality of the -sync option
Usage: qsubwt [qsub options] <script.sh>

Wrapper options (use the --wt-name=value form):
  --wt-config=PATH        YAML config file (default $QSUBWT_CONFIG or ~/.qsubwt.yaml)
  --wt-log-level=LEVEL    debug, info, warn, error
  --wt-log-format=FORMAT  text, json
  --wt-log-file=PATH      append logs to PATH instead of stdout
  --wt-interval=DURATION  delay between status checks (default 2s)
  --wt-strict             fail when the status command itself cannot run
  --wt-debug              shorthand for --wt-log-level=debug`

// wrapperFlags are the options qsubwt consumes itself; everything else is
// forwarded to the submit command.
type wrapperFlags struct {
	configPath string
	logLevel   string
	logFormat  string
	logFile    string
	interval   time.Duration
	strict     bool
	debug      bool

	fs *pflag.FlagSet
}

func newWrapperFlags() *wrapperFlags {
	f := &wrapperFlags{fs: pflag.NewFlagSet("qsubwt", pflag.ContinueOnError)}
	f.fs.SetOutput(io.Discard)
	f.fs.StringVar(&f.configPath, "wt-config", "", "YAML config file")
	f.fs.StringVar(&f.logLevel, "wt-log-level", "", "Log level (debug, info, warn, error)")
	f.fs.StringVar(&f.logFormat, "wt-log-format", "", "Log format (text, json)")
	f.fs.StringVar(&f.logFile, "wt-log-file", "", "Log file (default stdout)")
	f.fs.DurationVar(&f.interval, "wt-interval", 0, "Delay between status checks")
	f.fs.BoolVar(&f.strict, "wt-strict", false, "Fail when the status command cannot run")
	f.fs.BoolVar(&f.debug, "wt-debug", false, "Enable debug logging")
	return f
}

// splitArgs pulls the --wt-* tokens out of args, preserving the order of
// the rest.
func splitArgs(args []string) (own, forward []string) {
	for _, a := range args {
		if strings.HasPrefix(a, "--wt-") {
			own = append(own, a)
			continue
		}
		forward = append(forward, a)
	}
	return own, forward
}

// apply overlays explicitly set flags onto cfg.
func (f *wrapperFlags) apply(cfg *config.Config) {
	if f.fs.Changed("wt-log-level") {
		cfg.LogLevel = f.logLevel
	}
	if f.fs.Changed("wt-log-format") {
		cfg.LogFormat = f.logFormat
	}
	if f.fs.Changed("wt-log-file") {
		cfg.LogFile = f.logFile
	}
	if f.fs.Changed("wt-interval") {
		cfg.PollInterval = f.interval
	}
	if f.fs.Changed("wt-strict") {
		cfg.StrictStatus = f.strict
	}
	if f.debug {
		cfg.LogLevel = "debug"
	}
}

func wantsHelp(args []string) bool {
	if len(args) == 0 {
		return true
	}
	for _, a := range args {
		if a == "-h" || a == "--help" {
			return true
		}
	}
	return false
}

// NewRootCmd creates the root cobra command for qsubwt.
//
// Flag parsing is disabled because nearly every argument belongs to the
// submit command; wrapper options are picked out by splitArgs.
func NewRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "qsubwt [qsub options] <script.sh>",
		Short:              "Submit a batch job with qsub and wait for it to finish",
		Version:            Version,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if wantsHelp(args) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s\nversion: %s\n", usage, Version)
				return errUsage
			}
			return run(cmd.Context(), cmd.ErrOrStderr(), args)
		},
	}
}

func run(parent context.Context, stderr io.Writer, args []string) error {
	own, forward := splitArgs(args)
	flags := newWrapperFlags()
	if err := flags.fs.Parse(own); err != nil {
		return &qsub.ArgumentError{Reason: err.Error()}
	}

	path, required := flags.configPath, true
	if path == "" {
		path, required = config.DefaultPath(), false
	}
	cfg, err := config.Load(path, required)
	if err != nil {
		return err
	}
	flags.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	pattern, err := cfg.CompileJobIDPattern()
	if err != nil {
		return err
	}

	req, err := qsub.ParseArgs(forward)
	if err != nil {
		fmt.Fprintf(stderr, "%s\nversion: %s\n", usage, Version)
		return err
	}

	logger, closer, err := logging.Open(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return err
	}
	defer closer.Close()
	logger = logging.WithRun(logger)
	logger.Info("running qsubwt", "version", Version)

	runner := shell.NewRunner(cfg.Shell)
	wrapper := qsub.NewWrapper(
		qsub.NewSubmitter(runner, cfg.SubmitCommand, pattern, logger),
		qsub.NewWatcher(runner, qsub.WatcherConfig{
			StatusCommand: cfg.StatusCommand,
			CancelCommand: cfg.CancelCommand,
			PollInterval:  cfg.PollInterval,
			Strict:        cfg.StrictStatus,
		}, logger),
		logger,
	)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	wrapper.OnInterrupt(stop)

	outcome, err := wrapper.Run(ctx, req)
	if err != nil {
		logger.Error("qsubwt failed", "error", err)
		return err
	}
	if outcome == qsub.OutcomeCancelled {
		return ErrCancelled
	}
	return nil
}

// ExitCode maps an Execute error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrCancelled):
		return 130
	default:
		return 1
	}
}

// ShouldPrint reports whether main should print err to stderr.
func ShouldPrint(err error) bool {
	return err != nil && !errors.Is(err, ErrCancelled) && !errors.Is(err, errUsage)
}
