// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package eval is the builtin command evaluator for karaf consoles.
//
// A command is split into statements at semicolons and newlines, and each
// statement into fields. The first field names a builtin. $NAME and
// ${NAME} fields expand to session properties.
package eval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/viant/gosh"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/chriscoyle101/karaf/console"
	"github.com/chriscoyle101/karaf/probe"
	"github.com/chriscoyle101/karaf/tracing"
)

// CommandNotFoundError reports an unknown builtin.
type CommandNotFoundError struct {
	Name string
}

func (e *CommandNotFoundError) Error() string {
	return "Command not found: " + e.Name
}

type builtin struct {
	usage string
	run   func(s *Shell, ctx context.Context, args []string) (any, error)
}

// Shell evaluates builtin commands and stores session properties.
// It implements console.Evaluator and console.PropertyStore.
type Shell struct {
	mu    sync.RWMutex
	props map[string]any

	history      interface{ Entries() []string }
	shellEnabled bool
	shellTimeout time.Duration
	env          map[string]string
	log          *zap.Logger

	goshOnce sync.Once
	gosh     *gosh.Service
	goshErr  error
}

// Option configures a Shell.
type Option func(s *Shell)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Shell) { s.log = l }
}

// WithHistory lets the history builtin list h.
func WithHistory(h interface{ Entries() []string }) Option {
	return func(s *Shell) { s.history = h }
}

// WithHostShell enables the sh builtin with the given per-command timeout.
func WithHostShell(timeout time.Duration, env map[string]string) Option {
	return func(s *Shell) {
		s.shellEnabled, s.shellTimeout, s.env = true, timeout, env
	}
}

// New returns a Shell.
func New(opts ...Option) *Shell {
	s := &Shell{props: make(map[string]any), log: zap.NewNop(), shellTimeout: time.Minute}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get implements console.PropertyStore.
func (s *Shell) Get(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.props[name]
	return v, ok
}

// Put implements console.PropertyStore.
func (s *Shell) Put(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.props[name] = value
}

// Execute implements console.Evaluator. Results of all statements are
// joined by newlines; nil results are skipped.
func (s *Shell) Execute(ctx context.Context, command string) (any, error) {
	statements, err := probe.Statements(command)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, stmt := range statements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := s.statement(ctx, stmt)
		if err != nil {
			return nil, err
		}
		if v != nil {
			out = append(out, fmt.Sprint(v))
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return strings.Join(out, "\n"), nil
}

func (s *Shell) statement(ctx context.Context, stmt string) (result any, err error) {
	fields, err := probe.Fields(stmt)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	fields = s.expand(fields)
	name, args := fields[0], fields[1:]

	ctx, span := tracing.StartSpan(ctx, "console."+name, attribute.String("command", stmt))
	defer func() { tracing.EndSpan(span, err) }()

	b, ok := builtins[name]
	if !ok {
		return nil, &CommandNotFoundError{Name: name}
	}
	s.log.Debug("executing", zap.String("command", name), zap.Int("args", len(args)))
	return b.run(s, ctx, args)
}

func (s *Shell) expand(fields []string) []string {
	for i, f := range fields {
		if !strings.HasPrefix(f, "$") || len(f) < 2 {
			continue
		}
		name := strings.TrimPrefix(f, "$")
		if strings.HasPrefix(name, "{") && strings.HasSuffix(name, "}") {
			name = name[1 : len(name)-1]
		}
		if v, ok := s.Get(name); ok && v != nil {
			fields[i] = fmt.Sprint(v)
		}
	}
	return fields
}

// Close releases the host shell, if one was started.
func (s *Shell) Close() error {
	if s.gosh == nil {
		return nil
	}
	return s.gosh.Close()
}

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		"echo":    {"echo [text...]", (*Shell).echo},
		"set":     {"set NAME [value...]", (*Shell).set},
		"get":     {"get NAME", (*Shell).get},
		"props":   {"props", (*Shell).listProps},
		"history": {"history", (*Shell).listHistory},
		"sleep":   {"sleep DURATION", (*Shell).sleep},
		"help":    {"help", (*Shell).help},
		"exit":    {"exit", (*Shell).exit},
		"logout":  {"logout", (*Shell).exit},
		"sh":      {"sh COMMAND...", (*Shell).sh},
	}
}

func (s *Shell) echo(_ context.Context, args []string) (any, error) {
	return strings.Join(args, " "), nil
}

func (s *Shell) set(_ context.Context, args []string) (any, error) {
	if len(args) == 0 {
		return nil, usage("set")
	}
	s.Put(args[0], strings.Join(args[1:], " "))
	return nil, nil
}

func (s *Shell) get(_ context.Context, args []string) (any, error) {
	if len(args) != 1 {
		return nil, usage("get")
	}
	v, _ := s.Get(args[0])
	return v, nil
}

func (s *Shell) listProps(context.Context, []string) (any, error) {
	s.mu.RLock()
	lines := make([]string, 0, len(s.props))
	for k, v := range s.props {
		lines = append(lines, fmt.Sprintf("%s = %v", k, v))
	}
	s.mu.RUnlock()
	sort.Strings(lines)
	return strings.Join(lines, "\n"), nil
}

func (s *Shell) listHistory(context.Context, []string) (any, error) {
	if s.history == nil {
		return nil, nil
	}
	var b strings.Builder
	for i, e := range s.history.Entries() {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%5d  %s", i+1, e)
	}
	return b.String(), nil
}

func (s *Shell) sleep(ctx context.Context, args []string) (any, error) {
	if len(args) != 1 {
		return nil, usage("sleep")
	}
	d, err := time.ParseDuration(args[0])
	if err != nil {
		return nil, fmt.Errorf("sleep: %w", err)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Shell) help(context.Context, []string) (any, error) {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = "  " + builtins[name].usage
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Shell) exit(context.Context, []string) (any, error) {
	return nil, console.ErrCloseSession
}

func usage(name string) error {
	return fmt.Errorf("usage: %s", builtins[name].usage)
}
