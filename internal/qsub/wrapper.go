package qsub

import (
	"context"
	"errors"
	"log/slog"
)

// Outcome tells the caller how a successful Run ended.
type Outcome int

const (
	OutcomeCompleted Outcome = iota // the job left the queue on its own
	OutcomeCancelled                // interrupted; the cancel command succeeded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Wrapper drives one synchronous submission: submit, wait, and cancel on
// interrupt.
type Wrapper struct {
	submitter *Submitter
	watcher   *Watcher
	logger    *slog.Logger

	onInterrupt func()
}

// NewWrapper creates a Wrapper from its two collaborators.
func NewWrapper(submitter *Submitter, watcher *Watcher, logger *slog.Logger) *Wrapper {
	return &Wrapper{
		submitter: submitter,
		watcher:   watcher,
		logger:    logger.With("component", "wrapper"),
	}
}

// OnInterrupt registers f to run once an interrupt has been seen, right
// before the cancel command. The CLI uses it to hand signals back to the
// default handler so a second interrupt can stop a hung cancel.
func (w *Wrapper) OnInterrupt(f func()) {
	w.onInterrupt = f
}

// Run submits req and blocks until the job is gone.
//
// Cancelling ctx is the interrupt signal. Once a job id is known, an
// interrupt triggers exactly one cancel command: success yields
// OutcomeCancelled with a nil error, failure a *CancellationError.
// An interrupt with no job id yields ErrInterruptedBeforeID.
func (w *Wrapper) Run(ctx context.Context, req SubmissionRequest) (Outcome, error) {
	if ctx.Err() != nil {
		return OutcomeCancelled, ErrInterruptedBeforeID
	}

	id, err := w.submitter.Submit(req)
	if err != nil {
		if ctx.Err() != nil {
			return OutcomeCancelled, errors.Join(ErrInterruptedBeforeID, err)
		}
		return OutcomeCompleted, err
	}

	err = w.watcher.WaitForCompletion(ctx, id)
	switch {
	case err == nil:
		return OutcomeCompleted, nil
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		w.logger.Warn("interrupted, cancelling job", "job_id", id)
		if w.onInterrupt != nil {
			w.onInterrupt()
		}
		if cerr := w.watcher.Cancel(id); cerr != nil {
			return OutcomeCancelled, cerr
		}
		w.logger.Info("job cancelled", "job_id", id)
		return OutcomeCancelled, nil
	default:
		return OutcomeCompleted, err
	}
}
