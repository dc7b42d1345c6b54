package qsub

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/me/qsubwt/internal/shell"
)

// JobState is what a single status check says about a job.
type JobState string

const (
	StatePresent JobState = "PRESENT" // status command exited 0
	StateAbsent  JobState = "ABSENT"  // status command exited with a positive code
	StateUnknown JobState = "UNKNOWN" // status command could not be run
)

// Exit codes a POSIX shell uses for "command not executable" and
// "command not found".
const (
	exitNotExecutable = 126
	exitNotFound      = 127
)

// WatcherConfig holds watcher settings.
type WatcherConfig struct {
	StatusCommand string
	CancelCommand string
	PollInterval  time.Duration
	Strict        bool // exit codes 126/127 mean StateUnknown rather than StateAbsent
}

// Watcher polls the status command until a job disappears.
type Watcher struct {
	runner shell.CommandRunner
	config WatcherConfig
	logger *slog.Logger

	// after is time.After; tests swap it to observe delays.
	after func(time.Duration) <-chan time.Time
}

// NewWatcher creates a Watcher.
func NewWatcher(runner shell.CommandRunner, cfg WatcherConfig, logger *slog.Logger) *Watcher {
	return &Watcher{
		runner: runner,
		config: cfg,
		logger: logger.With("component", "watcher"),
		after:  time.After,
	}
}

// WaitForCompletion blocks until the status command reports id as absent.
//
// There is no timeout and no limit on the number of polls. ctx is checked
// before each poll and during each sleep; when it is done the watcher
// returns ctx.Err() without cancelling anything itself. A status command
// that is already running is always allowed to finish.
func (w *Watcher) WaitForCompletion(ctx context.Context, id JobID) error {
	w.logger.Info("waiting for job to complete", "job_id", id)
	start := time.Now()
	polls := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		state, err := w.Probe(id)
		polls++
		// An interrupt during the poll usually kills the status command
		// too, so its exit code says nothing about the job.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		switch state {
		case StateAbsent:
			w.logger.Info("completed waiting for termination of job",
				"job_id", id,
				"polls", polls,
				"started", humanize.Time(start),
			)
			return nil
		case StateUnknown:
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.after(w.config.PollInterval):
		}
	}
}

// Probe runs the status command once and classifies the result.
// The error is non-nil only for StateUnknown.
func (w *Watcher) Probe(id JobID) (JobState, error) {
	cmdline := fmt.Sprintf("%s -j %s", w.config.StatusCommand, id)
	w.logger.Debug("calling cmd", "command", cmdline)

	res, err := w.runner.Run(shell.Spec{Command: cmdline, Stdout: shell.Discard, Stderr: shell.Discard})
	switch {
	case err != nil:
		return StateUnknown, &StatusError{JobID: id, Command: cmdline, ExitCode: res.ExitCode, Err: err}
	case res.ExitCode == 0:
		return StatePresent, nil
	case res.ExitCode < 0:
		// Killed by a signal: the job may well still be queued.
		w.logger.Debug("status command killed, polling again", "job_id", id, "command", cmdline)
		return StatePresent, nil
	case w.config.Strict && (res.ExitCode == exitNotFound || res.ExitCode == exitNotExecutable):
		return StateUnknown, &StatusError{JobID: id, Command: cmdline, ExitCode: res.ExitCode}
	default:
		return StateAbsent, nil
	}
}

// Cancel runs the cancel command for id exactly once. It does not check
// that the job actually went away.
func (w *Watcher) Cancel(id JobID) error {
	cmdline := fmt.Sprintf("%s %s", w.config.CancelCommand, id)
	w.logger.Info("cancelling job", "job_id", id, "command", cmdline)

	res, err := w.runner.Run(shell.Spec{Command: cmdline, Stdout: shell.Inherit, Stderr: shell.Inherit})
	if err != nil {
		return &CancellationError{JobID: id, Command: cmdline, ExitCode: res.ExitCode, Err: err}
	}
	if res.ExitCode != 0 {
		return &CancellationError{JobID: id, Command: cmdline, ExitCode: res.ExitCode}
	}
	return nil
}
