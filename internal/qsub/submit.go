package qsub

import (
	"fmt"
	"log/slog"
	"regexp"

	"github.com/me/qsubwt/internal/shell"
)

// Submitter hands a script to the submit command and reads back the job id.
type Submitter struct {
	runner  shell.CommandRunner
	command string
	pattern *regexp.Regexp
	logger  *slog.Logger
}

// NewSubmitter creates a Submitter. pattern must have at least one capture
// group; its first group is taken as the job id.
func NewSubmitter(runner shell.CommandRunner, command string, pattern *regexp.Regexp, logger *slog.Logger) *Submitter {
	return &Submitter{
		runner:  runner,
		command: command,
		pattern: pattern,
		logger:  logger.With("component", "submitter"),
	}
}

// Submit runs the submit command once and returns the job id it reported.
// On ExtractionError the job may already be queued.
func (s *Submitter) Submit(req SubmissionRequest) (JobID, error) {
	cmdline := req.CommandLine(s.command)
	s.logger.Info("calling cmd", "command", cmdline)

	res, err := s.runner.Run(shell.Spec{Command: cmdline, Stdout: shell.Capture, Stderr: shell.Inherit})
	if err != nil {
		return "", NewSubmissionError(cmdline, res.ExitCode, string(res.Stdout), err)
	}
	if res.ExitCode != 0 {
		return "", NewSubmissionError(cmdline, res.ExitCode, string(res.Stdout),
			fmt.Errorf("exit status %d", res.ExitCode))
	}

	id, ok := ExtractJobID(s.pattern, res.Stdout)
	if !ok {
		return "", NewExtractionError(cmdline, res.Stdout, s.pattern.String())
	}
	s.logger.Info("job submitted", "job_id", id)
	return id, nil
}

// ExtractJobID returns the first capture group of the first match of
// pattern in raw submit output. Matching is done on bytes.
func ExtractJobID(pattern *regexp.Regexp, output []byte) (JobID, bool) {
	m := pattern.FindSubmatch(output)
	if m == nil || len(m) < 2 || len(m[1]) == 0 {
		return "", false
	}
	return JobID(m[1]), true
}
