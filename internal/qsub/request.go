// Package qsub submits a batch job through the scheduler's command-line
// tools and blocks until the job leaves the queue.
package qsub

import "strings"

// JobID is the scheduler-assigned identifier parsed from submit output.
type JobID string

func (id JobID) String() string {
	return string(id)
}

// SubmissionRequest is what gets handed to the submit command.
type SubmissionRequest struct {
	Options []string // passed through verbatim, in order
	Script  string   // always last on the command line
}

// ParseArgs splits forwarded arguments into scheduler options and the
// script path, the last token.
// "-sync" and the value following it are dropped because the wrapper
// provides synchronous behavior itself.
func ParseArgs(args []string) (SubmissionRequest, error) {
	if len(args) == 0 {
		return SubmissionRequest{}, &ArgumentError{Reason: "no script to submit"}
	}

	script := args[len(args)-1]
	opts := make([]string, 0, len(args)-1)
	rest := args[:len(args)-1]
	for i := 0; i < len(rest); i++ {
		if rest[i] == "-sync" {
			i++ // skip its value
			continue
		}
		opts = append(opts, rest[i])
	}

	if strings.TrimSpace(script) == "" {
		return SubmissionRequest{}, &ArgumentError{Reason: "empty script path"}
	}
	return SubmissionRequest{Options: opts, Script: script}, nil
}

// CommandLine renders the request for the given submit command. Tokens are
// joined with single spaces and are not quoted.
func (r SubmissionRequest) CommandLine(submit string) string {
	cmd := strings.TrimSpace(submit + " " + strings.Join(r.Options, " "))
	return cmd + " " + r.Script
}
