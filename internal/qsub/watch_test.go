package qsub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/me/qsubwt/internal/shell"
)

func TestWatcher_PollsUntilAbsent(t *testing.T) {
	for _, n := range []int{0, 1, 2, 5} {
		results := make([]mockResult, 0, n+1)
		for i := 0; i < n; i++ {
			results = append(results, mockResult{exitCode: 0})
		}
		results = append(results, mockResult{exitCode: 1})

		runner := newMockRunner(map[string][]mockResult{"qstat": results})
		clock := &fakeClock{}
		w := newTestWatcher(runner, testWatcherConfig(), clock)

		if err := w.WaitForCompletion(context.Background(), "12345"); err != nil {
			t.Fatalf("n=%d: WaitForCompletion: %v", n, err)
		}
		if got := runner.count("qstat"); got != n+1 {
			t.Errorf("n=%d: status invocations = %d, want %d", n, got, n+1)
		}
		delays := clock.recorded()
		if len(delays) != n {
			t.Errorf("n=%d: delays = %d, want %d", n, len(delays), n)
		}
		for _, d := range delays {
			if d != 2*time.Second {
				t.Errorf("n=%d: delay = %s, want 2s", n, d)
			}
		}
		if runner.count("qdel") != 0 {
			t.Errorf("n=%d: cancel should not run", n)
		}
	}
}

func TestWatcher_StatusCommandShape(t *testing.T) {
	runner := newMockRunner(map[string][]mockResult{"qstat": {{exitCode: 1}}})
	w := newTestWatcher(runner, testWatcherConfig(), &fakeClock{})

	if err := w.WaitForCompletion(context.Background(), "777"); err != nil {
		t.Fatal(err)
	}
	call := runner.calls[0]
	if call.Command != "qstat -j 777" {
		t.Errorf("command = %q, want %q", call.Command, "qstat -j 777")
	}
	if call.Stdout != shell.Discard || call.Stderr != shell.Discard {
		t.Errorf("status output should be discarded, got stdout=%v stderr=%v", call.Stdout, call.Stderr)
	}
}

func TestWatcher_NeverReturnsWhilePresent(t *testing.T) {
	runner := newMockRunner(map[string][]mockResult{"qstat": {{exitCode: 0}}})
	cfg := testWatcherConfig()
	cfg.PollInterval = time.Millisecond
	w := newTestWatcher(runner, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.WaitForCompletion(ctx, "1") }()

	select {
	case err := <-done:
		t.Fatalf("watcher returned while job still present: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
	if runner.count("qstat") < 2 {
		t.Errorf("expected repeated polling, got %d calls", runner.count("qstat"))
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not observe cancellation")
	}
	if runner.count("qdel") != 0 {
		t.Error("watcher must not cancel on its own")
	}
}

func TestWatcher_CancelledBeforeFirstPoll(t *testing.T) {
	runner := newMockRunner(map[string][]mockResult{"qstat": {{exitCode: 0}}})
	w := newTestWatcher(runner, testWatcherConfig(), &fakeClock{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := w.WaitForCompletion(ctx, "1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if runner.count("qstat") != 0 {
		t.Errorf("no poll expected after cancellation, got %d", runner.count("qstat"))
	}
}

func TestWatcher_InterruptDuringPollIsNotCompletion(t *testing.T) {
	ctx, interrupt := context.WithCancel(context.Background())
	defer interrupt()

	// The interrupt also kills the status command, which then exits nonzero.
	runner := newMockRunner(map[string][]mockResult{"qstat": {{exitCode: 130}}})
	runner.onRun = func(shell.Spec, int) { interrupt() }
	w := newTestWatcher(runner, testWatcherConfig(), &fakeClock{})

	if err := w.WaitForCompletion(ctx, "5"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if runner.count("qstat") != 1 {
		t.Errorf("status calls = %d, want 1", runner.count("qstat"))
	}
}

func TestWatcher_SignalKilledStatusKeepsPolling(t *testing.T) {
	runner := newMockRunner(map[string][]mockResult{
		"qstat": {{exitCode: 0}, {exitCode: -1}, {exitCode: 1}},
	})
	clock := &fakeClock{}
	w := newTestWatcher(runner, testWatcherConfig(), clock)

	if err := w.WaitForCompletion(context.Background(), "6"); err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}
	if got := runner.count("qstat"); got != 3 {
		t.Errorf("status calls = %d, want 3", got)
	}
	if got := len(clock.recorded()); got != 2 {
		t.Errorf("delays = %d, want 2", got)
	}
}

func TestWatcher_Probe(t *testing.T) {
	tests := []struct {
		name   string
		strict bool
		result mockResult
		want   JobState
	}{
		{"present", false, mockResult{exitCode: 0}, StatePresent},
		{"absent", false, mockResult{exitCode: 1}, StateAbsent},
		{"killed by signal keeps polling", false, mockResult{exitCode: -1}, StatePresent},
		{"strict killed by signal", true, mockResult{exitCode: -1}, StatePresent},
		{"not found folds into absent", false, mockResult{exitCode: 127}, StateAbsent},
		{"strict not found", true, mockResult{exitCode: 127}, StateUnknown},
		{"strict not executable", true, mockResult{exitCode: 126}, StateUnknown},
		{"strict absent", true, mockResult{exitCode: 1}, StateAbsent},
		{"runner error", false, mockResult{exitCode: -1, err: errors.New("fork failed")}, StateUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newMockRunner(map[string][]mockResult{"qstat": {tt.result}})
			cfg := testWatcherConfig()
			cfg.Strict = tt.strict
			w := newTestWatcher(runner, cfg, nil)

			got, err := w.Probe("42")
			if got != tt.want {
				t.Errorf("Probe = %s, want %s", got, tt.want)
			}
			if (got == StateUnknown) != IsStatusError(err) {
				t.Errorf("err = %v for state %s", err, got)
			}
		})
	}
}

func TestWatcher_StrictUnknownAborts(t *testing.T) {
	runner := newMockRunner(map[string][]mockResult{"qstat": {{exitCode: 0}, {exitCode: 127}}})
	cfg := testWatcherConfig()
	cfg.Strict = true
	w := newTestWatcher(runner, cfg, &fakeClock{})

	err := w.WaitForCompletion(context.Background(), "9")
	if !IsStatusError(err) {
		t.Fatalf("err = %v, want StatusError", err)
	}
	var se *StatusError
	errors.As(err, &se)
	if se.JobID != "9" || se.ExitCode != 127 {
		t.Errorf("StatusError = %+v", se)
	}
}

func TestWatcher_Cancel(t *testing.T) {
	tests := []struct {
		name    string
		result  mockResult
		wantErr bool
	}{
		{"success", mockResult{exitCode: 0}, false},
		{"nonzero exit", mockResult{exitCode: 1}, true},
		{"cannot start", mockResult{exitCode: -1, err: errors.New("fork failed")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newMockRunner(map[string][]mockResult{"qdel": {tt.result}})
			w := newTestWatcher(runner, testWatcherConfig(), nil)

			err := w.Cancel("31337")
			if tt.wantErr != IsCancellationError(err) {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got := runner.commands("qdel"); len(got) != 1 || got[0] != "qdel 31337" {
				t.Errorf("cancel commands = %q, want [qdel 31337]", got)
			}
		})
	}
}

func TestCancellationError_Message(t *testing.T) {
	err := &CancellationError{JobID: "5", Command: "qdel 5", ExitCode: 1}
	want := "unable to cancel running job 5 (qdel 5 exited 1); you may have to kill it manually"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
