package qsub

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/me/qsubwt/internal/config"
	"github.com/me/qsubwt/internal/shell"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var defaultPattern = regexp.MustCompile(config.DefaultJobIDPattern)

type mockResult struct {
	stdout   string
	exitCode int
	err      error
}

// mockRunner records calls and answers each command family (first word)
// from its own queue of canned results. When a queue runs dry its last
// entry repeats.
type mockRunner struct {
	mu      sync.Mutex
	calls   []shell.Spec
	results map[string][]mockResult
	onRun   func(spec shell.Spec, n int) // n counts calls of the same family
	counts  map[string]int
}

func newMockRunner(results map[string][]mockResult) *mockRunner {
	return &mockRunner{results: results, counts: make(map[string]int)}
}

func (m *mockRunner) Run(spec shell.Spec) (shell.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, spec)
	name := strings.Fields(spec.Command)[0]
	n := m.counts[name]
	m.counts[name] = n + 1
	queue := m.results[name]
	onRun := m.onRun
	m.mu.Unlock()

	if onRun != nil {
		onRun(spec, n)
	}
	if len(queue) == 0 {
		return shell.Result{ExitCode: -1}, fmt.Errorf("unexpected call %q", spec.Command)
	}
	if n >= len(queue) {
		n = len(queue) - 1
	}
	r := queue[n]
	return shell.Result{ExitCode: r.exitCode, Stdout: []byte(r.stdout)}, r.err
}

func (m *mockRunner) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[name]
}

func (m *mockRunner) commands(name string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.calls {
		if strings.HasPrefix(c.Command, name+" ") {
			out = append(out, c.Command)
		}
	}
	return out
}

// fakeClock stands in for time.After and records every requested delay.
type fakeClock struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (c *fakeClock) after(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.delays = append(c.delays, d)
	c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func (c *fakeClock) recorded() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.delays...)
}

func testWatcherConfig() WatcherConfig {
	return WatcherConfig{
		StatusCommand: "qstat",
		CancelCommand: "qdel",
		PollInterval:  2 * time.Second,
	}
}

func newTestWatcher(runner shell.CommandRunner, cfg WatcherConfig, clock *fakeClock) *Watcher {
	w := NewWatcher(runner, cfg, newTestLogger())
	if clock != nil {
		w.after = clock.after
	}
	return w
}
