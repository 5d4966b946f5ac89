// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"code.hybscloud.com/atomix"
	"go.uber.org/zap"

	"github.com/chriscoyle101/karaf/history"
)

// DefaultPollInterval is the relay's sleep between availability probes.
const DefaultPollInterval = 50 * time.Millisecond

// Serial identifies a session within the process. Serials increase
// monotonically in creation order.
type Serial = uint32

var serials atomix.Uint32

const (
	stateInit uint32 = iota
	stateRunning
	stateClosing
	stateClosed
)

// Session is one interactive console bound to a byte transport.
//
// A relay goroutine moves transport bytes into a bounded queue and turns
// the interrupt and end-of-transmission keys into control actions. The
// session loop reads from that queue through a line reader, assembles
// commands and hands them to the Evaluator.
type Session struct {
	serial Serial
	state  atomix.Uint32
	eof    atomix.Uint32
	done   chan struct{}

	transport io.Reader
	out       io.Writer
	err       io.Writer

	queue      *unitQueue
	interrupts *Interrupter
	input      *Input
	editor     LineReader
	props      *Properties

	evaluator    Evaluator
	probe        Probe
	history      History
	newEditor    EditorFactory
	format       func(any) string
	onClose      func()
	welcome      string
	brandPrompt  string
	initScript   string
	pollInterval time.Duration
	log          *zap.Logger

	drained chan struct{}
}

// New creates a session that reads transport and writes to out and errOut.
// The session does nothing until Start or Run.
func New(evaluator Evaluator, transport io.Reader, out, errOut io.Writer, opts ...Option) *Session {
	s := &Session{
		serial:       serials.Add(1),
		done:         make(chan struct{}),
		drained:      make(chan struct{}),
		transport:    transport,
		out:          out,
		err:          errOut,
		queue:        newUnitQueue(QueueCapacity),
		interrupts:   NewInterrupter(),
		props:        NewProperties(),
		evaluator:    evaluator,
		format:       func(v any) string { return fmt.Sprint(v) },
		pollInterval: DefaultPollInterval,
		log:          zap.NewNop(),
	}
	s.input = &Input{s: s}
	s.props.Put(ScopeProperty, "shell:bundle:*")
	s.props.Put(SubshellProperty, "")
	s.props.Put(ApplicationProperty, "karaf")
	s.props.Put(UserProperty, os.Getenv("USER"))
	for _, opt := range opts {
		opt(s)
	}
	if s.history == nil {
		s.history = history.NewMemory(history.DefaultMaxSize)
	}
	if s.newEditor == nil {
		s.newEditor = func(in io.Reader, out io.Writer, _ History) LineReader {
			return NewPlainReader(in, out)
		}
	}
	s.editor = s.newEditor(s.input, out, s.history)
	s.log = s.log.With(zap.Uint32("console", s.serial))
	return s
}

// Serial returns the serial number assigned to this session.
func (s *Session) Serial() Serial { return s.serial }

// Input returns the queued input adapter.
func (s *Session) Input() *Input { return s.input }

// Interrupts returns the session's interrupt controller.
func (s *Session) Interrupts() *Interrupter { return s.interrupts }

// Properties returns the session property bag.
func (s *Session) Properties() *Properties { return s.props }

// History returns the command history.
func (s *Session) History() History { return s.history }

// Running reports whether the session accepts input.
func (s *Session) Running() bool {
	return s.state.Load() == stateRunning
}

// Done is closed when the session starts closing.
func (s *Session) Done() <-chan struct{} { return s.done }

// Drained is closed after the relay has exited and delivered end of stream.
func (s *Session) Drained() <-chan struct{} { return s.drained }

// Start transitions the session to running, starts the relay and prints
// the welcome banner. Canceling ctx closes the session.
func (s *Session) Start(ctx context.Context) error {
	if !s.state.CompareAndSwap(stateInit, stateRunning) {
		if s.state.Load() >= stateClosing {
			return ErrClosed
		}
		return ErrStarted
	}
	if store, ok := s.evaluator.(PropertyStore); ok {
		if err := s.props.Bind(store); err != nil {
			s.log.Warn("property binding failed", zap.Error(err))
		}
	}
	go s.relay()
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()
	if s.welcome != "" {
		fmt.Fprintln(s.out, s.welcome)
	}
	s.log.Debug("console started")
	return nil
}

// Run starts the session and drives the command loop until end of input,
// the close signal, or Close. It returns nil on every orderly exit.
func (s *Session) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	s.runInitScript(ctx)
	for s.Running() {
		command, err := s.readCommand()
		if err != nil {
			if errors.Is(err, ErrInterrupted) {
				continue
			}
			if !errors.Is(err, io.EOF) && s.Running() {
				s.log.Debug("console input failed", zap.Error(err))
			}
			break
		}
		if strings.TrimSpace(command) == "" {
			continue
		}
		if s.execute(ctx, command) {
			break
		}
	}
	s.close(true)
	return nil
}

// execute runs one command. It reports whether the close signal was seen.
func (s *Session) execute(ctx context.Context, command string) (stop bool) {
	cctx, cancel := context.WithCancel(ctx)
	detach := s.interrupts.attach(cancel)
	defer func() {
		detach()
		cancel()
	}()
	result, err := s.evaluate(cctx, command)
	switch {
	case err == nil:
		if result != nil {
			fmt.Fprintln(s.out, s.format(result))
		}
	case errors.Is(err, ErrCloseSession):
		return true
	case IsInterrupted(err):
		_ = s.interrupts.CheckAndClear()
		s.log.Debug("command interrupted", zap.String("command", command))
	default:
		fmt.Fprintf(s.err, "Error executing command: %v\n", err)
		s.log.Debug("command failed", zap.String("command", command), zap.Error(err))
	}
	return false
}

func (s *Session) evaluate(ctx context.Context, command string) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("console: evaluator panic: %v", r)
		}
	}()
	return s.evaluator.Execute(ctx, command)
}

func (s *Session) runInitScript(ctx context.Context) {
	if s.initScript == "" {
		return
	}
	script, err := os.ReadFile(s.initScript)
	if err != nil {
		s.log.Debug("init script unavailable", zap.String("path", s.initScript), zap.Error(err))
		return
	}
	if _, err := s.evaluate(ctx, string(script)); err != nil {
		if errors.Is(err, ErrCloseSession) {
			s.close(true)
			return
		}
		fmt.Fprintf(s.err, "Error in initialization script: %v\n", err)
		s.log.Debug("init script failed", zap.String("path", s.initScript), zap.Error(err))
	}
}

// Close ends the session from outside. It is idempotent, and the close
// callback does not run.
func (s *Session) Close() {
	s.close(false)
}

func (s *Session) close(byUser bool) {
	if s.state.CompareAndSwap(stateInit, stateClosed) {
		close(s.done)
		close(s.drained)
		return
	}
	if !s.state.CompareAndSwap(stateRunning, stateClosing) {
		return
	}
	fmt.Fprintln(s.out)
	if f, ok := s.history.(Flusher); ok {
		if err := f.Flush(); err != nil {
			s.log.Warn("history flush failed", zap.Error(err))
		}
	}
	close(s.done)
	if byUser && s.onClose != nil {
		s.onClose()
	}
	s.state.Store(stateClosed)
	s.log.Debug("console closed", zap.Bool("byUser", byUser))
}
