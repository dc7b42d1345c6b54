// Package shell runs scheduler commands through a shell interpreter.
package shell

import (
	"bytes"
	"io"
	"os"
	"os/exec"
)

// Output selects what happens to a child's stdout or stderr.
type Output int

const (
	Inherit Output = iota // share the wrapper's stream
	Capture               // collect into Result
	Discard               // send to the null device
)

// Spec describes one shell-interpreted command.
type Spec struct {
	Command string // passed verbatim to "<shell> -c"
	Stdout  Output
	Stderr  Output
}

// Result is what a finished command left behind.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// CommandRunner abstracts command execution for testing.
//
// A non-nil error means the command could not be started or waited for;
// a command that ran and exited nonzero reports that through ExitCode only.
type CommandRunner interface {
	Run(spec Spec) (Result, error)
}

// Runner is the real CommandRunner built on os/exec.
// Commands carry no context: once started they run to completion.
type Runner struct {
	shell string
}

// NewRunner creates a Runner using the given interpreter, e.g. "/bin/sh".
func NewRunner(shell string) *Runner {
	return &Runner{shell: shell}
}

func (r *Runner) Run(spec Spec) (Result, error) {
	cmd := exec.Command(r.shell, "-c", spec.Command)
	cmd.Stdin = os.Stdin

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = pick(spec.Stdout, os.Stdout, &stdoutBuf)
	cmd.Stderr = pick(spec.Stderr, os.Stderr, &stderrBuf)

	runErr := cmd.Run()
	result := Result{
		Stdout: stdoutBuf.Bytes(),
		Stderr: stderrBuf.Bytes(),
	}

	switch e := runErr.(type) {
	case nil:
		result.ExitCode = 0
	case *exec.ExitError:
		result.ExitCode = e.ExitCode()
	default:
		result.ExitCode = -1
		return result, runErr
	}
	return result, nil
}

// pick returns the writer for mode. A nil writer makes os/exec connect the
// stream to the null device.
func pick(mode Output, inherit io.Writer, buf *bytes.Buffer) io.Writer {
	switch mode {
	case Capture:
		return buf
	case Discard:
		return nil
	default:
		return inherit
	}
}
