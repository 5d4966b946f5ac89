// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package console

import (
	"errors"
	"io"
	"strings"

	"code.hybscloud.com/kont"
	"go.uber.org/zap"
)

// Command assembly is written as an effect protocol: the pure part joins
// physical lines and decides when to stop, the handler performs the I/O.

// assemblyDispatcher is the structural interface for assembly operations.
type assemblyDispatcher interface {
	dispatchAssembly(s *Session) (kont.Resumed, error)
}

// readLine reads one physical line through the session's line reader.
type readLine struct {
	kont.Phantom[physicalLine]
	continuation bool
}

// physicalLine is one line of input. last marks end of input reached
// while a command was still being continued.
type physicalLine struct {
	text string
	last bool
}

func (op readLine) dispatchAssembly(s *Session) (kont.Resumed, error) {
	if err := s.interrupts.CheckAndClear(); err != nil {
		return nil, err
	}
	prompt := ContinuationPrompt
	if !op.continuation {
		prompt = s.prompt()
	}
	line, err := s.editor.ReadLine(prompt)
	if err != nil {
		if op.continuation && errors.Is(err, io.EOF) {
			return physicalLine{last: true}, nil
		}
		return nil, err
	}
	return physicalLine{text: line}, nil
}

// recordHistory appends entry, or replaces the newest entry.
type recordHistory struct {
	kont.Phantom[struct{}]
	entry   string
	replace bool
}

func (op recordHistory) dispatchAssembly(s *Session) (kont.Resumed, error) {
	if op.replace {
		s.history.ReplaceLast(op.entry)
	} else {
		s.history.Append(op.entry)
	}
	return struct{}{}, nil
}

// probeComplete asks the completeness probe about the buffered command.
type probeComplete struct {
	kont.Phantom[bool]
	command string
}

func (op probeComplete) dispatchAssembly(s *Session) (kont.Resumed, error) {
	return s.isComplete(op.command), nil
}

// assemblyHandler implements kont.Handler for assembly effects.
// A failing operation aborts the protocol with Left(err).
type assemblyHandler struct {
	s *Session
}

// Dispatch implements kont.Handler via structural interface assertion.
func (h assemblyHandler) Dispatch(op kont.Operation) (kont.Resumed, bool) {
	aop, ok := op.(assemblyDispatcher)
	if !ok {
		panic("console: unhandled effect in assemblyHandler")
	}
	v, err := aop.dispatchAssembly(h.s)
	if err != nil {
		return kont.Left[error, string](err), false
	}
	return v, true
}

// buffer is the command under assembly.
type buffer struct {
	text     string
	started  bool
	recorded bool
}

// join appends a physical line. A trailing backslash joins without a
// separator; otherwise lines are separated by a newline.
func (b buffer) join(line string) buffer {
	switch {
	case !b.started:
		b.text = line
	case strings.HasSuffix(b.text, continuationMarker):
		b.text = strings.TrimSuffix(b.text, continuationMarker) + line
	default:
		b.text += "\n" + line
	}
	b.started = true
	return b
}

// assemble reads physical lines until the buffer holds a complete
// command. assembleStep returns Left(buffer) to read on.
func assemble(b buffer) kont.Eff[string] {
	return kont.Bind(assembleStep(b), func(e kont.Either[buffer, string]) kont.Eff[string] {
		if more, ok := e.GetLeft(); ok {
			return assemble(more)
		}
		text, _ := e.GetRight()
		return kont.Pure(text)
	})
}

func assembleStep(b buffer) kont.Eff[kont.Either[buffer, string]] {
	return kont.Bind(kont.Perform(readLine{continuation: b.started}), func(line physicalLine) kont.Eff[kont.Either[buffer, string]] {
		if line.last {
			return kont.Pure(kont.Right[buffer, string](strings.TrimSuffix(b.text, continuationMarker)))
		}
		next := b.join(line.text)
		if strings.TrimSpace(next.text) == "" {
			return next.decide()
		}
		op := recordHistory{entry: next.text, replace: next.recorded}
		next.recorded = true
		return kont.Then(kont.Perform(op), next.decide())
	})
}

func (b buffer) decide() kont.Eff[kont.Either[buffer, string]] {
	if strings.HasSuffix(b.text, continuationMarker) {
		return kont.Pure(kont.Left[buffer, string](b))
	}
	return kont.Bind(kont.Perform(probeComplete{command: b.text}), func(complete bool) kont.Eff[kont.Either[buffer, string]] {
		if complete {
			return kont.Pure(kont.Right[buffer, string](b.text))
		}
		return kont.Pure(kont.Left[buffer, string](b))
	})
}

// readCommand assembles the next logical command. It returns io.EOF at end
// of input and ErrInterrupted when the user abandoned the command. A
// command still being continued at end of input is returned as it stands.
func (s *Session) readCommand() (string, error) {
	protocol := kont.Map[kont.Resumed, string, kont.Either[error, string]](assemble(buffer{}), func(text string) kont.Either[error, string] {
		return kont.Right[error, string](text)
	})
	result := kont.Handle(protocol, assemblyHandler{s: s})
	if err, failed := result.GetLeft(); failed {
		return "", err
	}
	text, _ := result.GetRight()
	return text, nil
}

func (s *Session) isComplete(text string) (complete bool) {
	if s.probe == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("completeness probe panicked", zap.Any("panic", r))
			complete = true
		}
	}()
	ok, err := s.probe.IsComplete(text)
	if err != nil {
		s.log.Debug("command incomplete", zap.Error(err))
		return false
	}
	return ok
}
