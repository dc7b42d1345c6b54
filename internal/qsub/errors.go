package qsub

import (
	"errors"
	"fmt"
)

// ErrInterruptedBeforeID is returned when the wrapper is interrupted before
// a job id is known. No cancel command is issued in that case.
var ErrInterruptedBeforeID = errors.New("interrupted before a job id was obtained; nothing to cancel")

// ArgumentError represents an invalid wrapper invocation.
type ArgumentError struct {
	Reason string
}

func (e *ArgumentError) Error() string {
	return "invalid arguments: " + e.Reason
}

// SubmissionError represents a submit command that could not run or failed.
type SubmissionError struct {
	Command  string // Command line handed to the shell
	ExitCode int    // -1 if the command never ran
	Output   string // Captured stdout
	Err      error  // Underlying error
}

func (e *SubmissionError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("submission failed: %s: %v\nOutput: %s", e.Command, e.Err, e.Output)
	}
	return fmt.Sprintf("submission failed: %s: %v", e.Command, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// ExtractionError is returned when the submit output carries no job id.
// The scheduler may already have queued the job.
type ExtractionError struct {
	Command string
	Output  string
	Pattern string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("unable to derive job id from %q output %q using pattern %s (a job may have been queued without being tracked)",
		e.Command, e.Output, e.Pattern)
}

// CancellationError is returned when the cancel command issued after an
// interrupt fails.
type CancellationError struct {
	JobID    JobID
	Command  string
	ExitCode int
	Err      error // set when the command could not be started
}

func (e *CancellationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unable to cancel running job %s (%s: %v); you may have to kill it manually",
			e.JobID, e.Command, e.Err)
	}
	return fmt.Sprintf("unable to cancel running job %s (%s exited %d); you may have to kill it manually",
		e.JobID, e.Command, e.ExitCode)
}

func (e *CancellationError) Unwrap() error {
	return e.Err
}

// StatusError is returned when the status command could not tell whether
// the job is still present: it failed to start, or, in strict mode, the
// shell could not find or execute it.
type StatusError struct {
	JobID    JobID
	Command  string
	ExitCode int
	Err      error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("status of job %s unknown: %s: %v", e.JobID, e.Command, e.Err)
	}
	return fmt.Sprintf("status of job %s unknown: %s exited %d", e.JobID, e.Command, e.ExitCode)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// NewSubmissionError creates a new SubmissionError
func NewSubmissionError(command string, exitCode int, output string, err error) *SubmissionError {
	return &SubmissionError{Command: command, ExitCode: exitCode, Output: output, Err: err}
}

// NewExtractionError creates a new ExtractionError
func NewExtractionError(command string, output []byte, pattern string) *ExtractionError {
	return &ExtractionError{Command: command, Output: string(output), Pattern: pattern}
}

// IsArgumentError checks if an error is an ArgumentError
func IsArgumentError(err error) bool {
	var ae *ArgumentError
	return errors.As(err, &ae)
}

// IsSubmissionError checks if an error is a SubmissionError
func IsSubmissionError(err error) bool {
	var se *SubmissionError
	return errors.As(err, &se)
}

// IsExtractionError checks if an error is an ExtractionError
func IsExtractionError(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee)
}

// IsCancellationError checks if an error is a CancellationError
func IsCancellationError(err error) bool {
	var ce *CancellationError
	return errors.As(err, &ce)
}

// IsStatusError checks if an error is a StatusError
func IsStatusError(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}
