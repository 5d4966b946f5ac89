// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package console_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/chriscoyle101/karaf/console"
	"github.com/chriscoyle101/karaf/history"
	"github.com/chriscoyle101/karaf/probe"
)

// run drives a session over input to completion.
func run(t *testing.T, input string, ev console.Evaluator, opts ...console.Option) (out, errOut *syncBuffer) {
	t.Helper()
	out, errOut = &syncBuffer{}, &syncBuffer{}
	s := console.New(ev, strings.NewReader(input), out, errOut, opts...)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	<-s.Drained()
	return out, errOut
}

func TestContinuationJoinsWithoutSeparator(t *testing.T) {
	skipRace(t)

	r := &recorder{}
	h := history.NewMemory(0)
	run(t, "echo a\\\nb\n", r, console.WithHistory(h))

	if got, want := r.Commands(), []string{"echo ab"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got, want := h.Entries(), []string{"echo ab"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got history %q, want %q", got, want)
	}
}

func TestIncompleteCommandJoinsLines(t *testing.T) {
	skipRace(t)

	r := &recorder{}
	h := history.NewMemory(0)
	out, _ := run(t, "each [1 2] {\necho $it\n}\necho done\n", r,
		console.WithHistory(h), console.WithProbe(probe.New()), console.WithPrompt("karaf$ "))

	want := []string{"each [1 2] {\necho $it\n}", "echo done"}
	if got := r.Commands(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := h.Entries(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got history %q, want %q", got, want)
	}
	if got := strings.Count(out.String(), console.ContinuationPrompt); got != 2 {
		t.Fatalf("got %d continuation prompts, want 2", got)
	}
}

func TestProbeErrorKeepsReading(t *testing.T) {
	skipRace(t)

	r := &recorder{}
	h := history.NewMemory(0)
	calls := 0
	p := console.ProbeFunc(func(text string) (bool, error) {
		calls++
		if calls == 1 {
			return false, errors.New("cannot tell yet")
		}
		return true, nil
	})
	run(t, "one\ntwo\n", r, console.WithHistory(h), console.WithProbe(p))

	want := []string{"one\ntwo"}
	if got := r.Commands(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := h.Entries(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got history %q, want %q", got, want)
	}
}

func TestProbePanicCompletesCommand(t *testing.T) {
	skipRace(t)

	r := &recorder{}
	p := console.ProbeFunc(func(string) (bool, error) { panic("broken probe") })
	run(t, "one\ntwo\n", r, console.WithProbe(p))

	if got, want := r.Commands(), []string{"one", "two"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEndOfInputDispatchesContinuedCommand(t *testing.T) {
	skipRace(t)

	cases := []struct {
		input string
		probe console.Probe
		want  []string
	}{
		{"echo a\\\n", nil, []string{"echo a"}},
		{"echo (a\nb", probe.New(), []string{"echo (a\nb"}},
		{"echo [a\n", probe.New(), []string{"echo [a"}},
	}
	for _, tc := range cases {
		r := &recorder{}
		var calls atomic.Int32
		opts := []console.Option{console.WithCloseCallback(func() { calls.Add(1) })}
		if tc.probe != nil {
			opts = append(opts, console.WithProbe(tc.probe))
		}
		run(t, tc.input, r, opts...)
		if got := r.Commands(); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("input %q: got %q, want %q", tc.input, got, tc.want)
		}
		if got := calls.Load(); got != 1 {
			t.Fatalf("input %q: got %d close callbacks, want 1", tc.input, got)
		}
	}
}

func TestBlankLinesAreSkipped(t *testing.T) {
	skipRace(t)

	r := &recorder{}
	h := history.NewMemory(0)
	run(t, "\n   \necho x\n", r, console.WithHistory(h))
	if got, want := r.Commands(), []string{"echo x"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := h.Size(); got != 1 {
		t.Fatalf("got %d history entries, want 1", got)
	}
}

func TestCloseSignalEndsSession(t *testing.T) {
	skipRace(t)

	r := &recorder{fn: func(_ context.Context, command string) (any, error) {
		if command == "exit" {
			return nil, console.ErrCloseSession
		}
		return nil, nil
	}}
	var calls atomic.Int32
	out, _ := run(t, "echo 1\nexit\necho 2\n", r, console.WithCloseCallback(func() { calls.Add(1) }))

	if got, want := r.Commands(), []string{"echo 1", "exit"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("got %d close callbacks, want 1", got)
	}
	if !strings.HasSuffix(out.String(), "\n") {
		t.Fatalf("output %q does not end with a newline", out.String())
	}
}

func TestEndOfInputRunsCallback(t *testing.T) {
	skipRace(t)

	var calls atomic.Int32
	run(t, "", &recorder{}, console.WithCloseCallback(func() { calls.Add(1) }))
	if got := calls.Load(); got != 1 {
		t.Fatalf("got %d close callbacks, want 1", got)
	}
}

func TestResultsAndErrors(t *testing.T) {
	skipRace(t)

	r := &recorder{fn: func(_ context.Context, command string) (any, error) {
		switch command {
		case "greet":
			return "hello", nil
		case "fail":
			return nil, errors.New("boom")
		case "panic":
			panic("kaboom")
		}
		return nil, nil
	}}
	out, errOut := run(t, "greet\nfail\npanic\nquiet\n", r,
		console.WithFormatter(func(v any) string { return "=> " + v.(string) }))

	if !strings.Contains(out.String(), "=> hello\n") {
		t.Fatalf("output %q lacks the formatted result", out.String())
	}
	if !strings.Contains(errOut.String(), "Error executing command: boom\n") {
		t.Fatalf("error stream %q lacks the failure", errOut.String())
	}
	if !strings.Contains(errOut.String(), "kaboom") {
		t.Fatalf("error stream %q lacks the panic", errOut.String())
	}
	if got := len(r.Commands()); got != 4 {
		t.Fatalf("got %d commands, want 4: the loop must survive failures", got)
	}
}

func TestInterruptCancelsRunningCommand(t *testing.T) {
	skipRace(t)

	running := make(chan struct{})
	r := &recorder{fn: func(ctx context.Context, command string) (any, error) {
		if command == "wait" {
			close(running)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return nil, nil
	}}
	pr, pw := io.Pipe()
	errOut := &syncBuffer{}
	s := console.New(r, pr, io.Discard, errOut)
	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	pw.Write([]byte("wait\n"))
	<-running
	pw.Write([]byte{3})
	pw.Write([]byte("echo next\n"))
	eventually(t, "the next command", func() bool { return len(r.Commands()) == 2 })
	pw.Close()

	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	<-s.Drained()
	if got, want := r.Commands(), []string{"wait", "echo next"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	if strings.Contains(errOut.String(), "Error executing command") {
		t.Fatalf("interrupted command reported as failure: %q", errOut.String())
	}
}

func TestInterruptAbandonsPartialCommand(t *testing.T) {
	skipRace(t)

	r := &recorder{}
	out := &syncBuffer{}
	pr, pw := io.Pipe()
	s := console.New(r, pr, out, io.Discard, console.WithProbe(probe.New()), console.WithPrompt("$ "))
	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	pw.Write([]byte("each {\n"))
	eventually(t, "the continuation prompt", func() bool {
		return strings.Contains(out.String(), console.ContinuationPrompt)
	})
	pw.Write([]byte{3})
	pw.Write([]byte("echo fresh\n"))
	pw.Close()

	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	<-s.Drained()
	if got, want := r.Commands(), []string{"echo fresh"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	skipRace(t)

	h := &countingHistory{Store: history.NewMemory(0)}
	var calls atomic.Int32
	out := &syncBuffer{}
	pr, pw := io.Pipe()
	defer pw.Close()
	s := console.New(&recorder{}, pr, out, io.Discard,
		console.WithHistory(h), console.WithCloseCallback(func() { calls.Add(1) }))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	s.Close()
	s.Close()
	pw.Close()
	<-s.Drained()

	if got := h.flushes.Load(); got != 1 {
		t.Fatalf("got %d flushes, want 1", got)
	}
	if got := calls.Load(); got != 0 {
		t.Fatalf("got %d close callbacks for an external close, want 0", got)
	}
	if got := out.String(); got != "\n" {
		t.Fatalf("got %q, want a single newline", got)
	}
	if s.Running() {
		t.Fatalf("session still running after Close")
	}
	if err := s.Run(context.Background()); !errors.Is(err, console.ErrClosed) {
		t.Fatalf("got %v, want ErrClosed", err)
	}
}

func TestCloseBeforeStart(t *testing.T) {
	s := console.New(&recorder{}, strings.NewReader(""), io.Discard, io.Discard)
	s.Close()
	<-s.Drained()
	if err := s.Start(context.Background()); !errors.Is(err, console.ErrClosed) {
		t.Fatalf("got %v, want ErrClosed", err)
	}
}

func TestStartTwice(t *testing.T) {
	s, _, _ := started(t)
	if err := s.Start(context.Background()); !errors.Is(err, console.ErrStarted) {
		t.Fatalf("got %v, want ErrStarted", err)
	}
}

func TestContextCancelClosesSession(t *testing.T) {
	skipRace(t)

	var calls atomic.Int32
	pr, pw := io.Pipe()
	defer pw.Close()
	s := console.New(&recorder{}, pr, io.Discard, io.Discard, console.WithCloseCallback(func() { calls.Add(1) }))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	eventually(t, "a running session", s.Running)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	pw.Close()
	<-s.Drained()
	if got := calls.Load(); got != 0 {
		t.Fatalf("got %d close callbacks, want 0", got)
	}
}

func TestWelcomeAndPrompt(t *testing.T) {
	skipRace(t)

	out, _ := run(t, "echo\n", &recorder{},
		console.WithWelcome("Hello Karaf"),
		console.WithPrompt("${APPLICATION}:${SUBSHELL}> "),
		console.WithProperties(map[string]any{console.ApplicationProperty: "root", console.SubshellProperty: "bundle"}))
	if !strings.HasPrefix(out.String(), "Hello Karaf\n") {
		t.Fatalf("output %q does not start with the welcome", out.String())
	}
	if !strings.Contains(out.String(), "root:bundle> ") {
		t.Fatalf("output %q lacks the resolved prompt", out.String())
	}
}

func TestPropertiesBindToEvaluator(t *testing.T) {
	skipRace(t)

	type storeEvaluator struct {
		recorder
		mapStore
	}
	ev := &storeEvaluator{}
	run(t, "", ev, console.WithProperties(map[string]any{"COLOR": "blue"}))
	if v, ok := ev.Get("COLOR"); !ok || v != "blue" {
		t.Fatalf("got %v, %v, want blue", v, ok)
	}
	if v, _ := ev.Get(console.ScopeProperty); v != "shell:bundle:*" {
		t.Fatalf("got scope %v, want shell:bundle:*", v)
	}
}

func TestInitScript(t *testing.T) {
	skipRace(t)

	path := filepath.Join(t.TempDir(), "init.script")
	if err := os.WriteFile(path, []byte("set greeting hi\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	r := &recorder{}
	run(t, "echo after\n", r, console.WithInitScript(path))
	got := r.Commands()
	if len(got) != 2 || strings.TrimSpace(got[0]) != "set greeting hi" || got[1] != "echo after" {
		t.Fatalf("got %q, want the init script first", got)
	}
}

func TestSerialMonotonic(t *testing.T) {
	a := console.New(&recorder{}, strings.NewReader(""), io.Discard, io.Discard)
	b := console.New(&recorder{}, strings.NewReader(""), io.Discard, io.Discard)
	if a.Serial() >= b.Serial() {
		t.Fatalf("serials not increasing: %d >= %d", a.Serial(), b.Serial())
	}
}
