// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package console

import (
	"context"
	"io"
)

// Evaluator executes one assembled command.
// A nil result prints nothing. Returning ErrCloseSession ends the session.
// Implementations should honor ctx: it is canceled when the user interrupts.
type Evaluator interface {
	Execute(ctx context.Context, command string) (any, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(ctx context.Context, command string) (any, error)

// Execute calls f(ctx, command).
func (f EvaluatorFunc) Execute(ctx context.Context, command string) (any, error) {
	return f(ctx, command)
}

// Probe decides whether buffered text forms a complete command.
// An error means the text cannot be decided yet; more input is read.
type Probe interface {
	IsComplete(text string) (bool, error)
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(text string) (bool, error)

// IsComplete calls f(text).
func (f ProbeFunc) IsComplete(text string) (bool, error) {
	return f(text)
}

// History is the command history a session records into.
// ReplaceLast overwrites the newest entry while a multi-line command grows.
type History interface {
	Append(entry string)
	ReplaceLast(entry string)
	Size() int
}

// Flusher is implemented by histories backed by persistent storage.
type Flusher interface {
	Flush() error
}

// LineReader reads one physical line, echoing and editing as it likes.
// It returns io.EOF at end of input and any error of the underlying
// byte stream, ErrInterrupted included, unchanged.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

// Discarder is implemented by line readers that can drop the line in
// progress. The relay calls Discard when the interrupt key arrives.
type Discarder interface {
	Discard()
}

// EditorFactory builds the line reader for a session. in is the queued
// input adapter, never the raw transport.
type EditorFactory func(in io.Reader, out io.Writer, history History) LineReader

// PropertyStore is a mutable name to value map.
type PropertyStore interface {
	Get(name string) (any, bool)
	Put(name string, value any)
}

// availabler is implemented by transports that can report buffered bytes
// without blocking.
type availabler interface {
	Available() (int, error)
}
