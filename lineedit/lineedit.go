// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lineedit provides the interactive line editor for console
// sessions on a terminal, built on golang.org/x/term.
package lineedit

import (
	"errors"
	"io"
	"sync"

	"code.hybscloud.com/atomix"
	"golang.org/x/term"

	"github.com/chriscoyle101/karaf/console"
)

// Editor is a console.LineReader with cursor movement and history recall.
//
// Editing state lives in a term.Terminal. Discard and read errors drop
// the terminal so that the next ReadLine starts from an empty line.
type Editor struct {
	rw      io.ReadWriter
	history console.History

	mu            sync.Mutex
	t             *term.Terminal
	width, height int

	discard atomix.Uint32
}

type readWriter struct {
	io.Reader
	io.Writer
}

// New returns an Editor reading in and echoing to out.
func New(in io.Reader, out io.Writer, history console.History) *Editor {
	return &Editor{rw: readWriter{in, out}, history: history}
}

// Factory is a console.EditorFactory for Editor.
func Factory(in io.Reader, out io.Writer, history console.History) console.LineReader {
	return New(in, out, history)
}

// ReadLine implements console.LineReader.
func (e *Editor) ReadLine(prompt string) (string, error) {
	t := e.terminal()
	t.SetPrompt(prompt)
	line, err := t.ReadLine()
	if errors.Is(err, term.ErrPasteIndicator) {
		return line, nil
	}
	if err != nil {
		e.mu.Lock()
		e.t = nil
		e.mu.Unlock()
		return "", err
	}
	return line, nil
}

// Discard drops the line in progress at the next ReadLine.
func (e *Editor) Discard() {
	e.discard.Store(1)
}

// SetSize records the terminal dimensions.
func (e *Editor) SetSize(width, height int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.width, e.height = width, height
	if e.t == nil {
		return nil
	}
	return e.t.SetSize(width, height)
}

func (e *Editor) terminal() *term.Terminal {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.discard.CompareAndSwap(1, 0) {
		e.t = nil
	}
	if e.t != nil {
		return e.t
	}
	e.t = term.NewTerminal(e.rw, "")
	if v, ok := newHistoryView(e.history); ok {
		e.t.History = v
	}
	if e.width > 0 && e.height > 0 {
		e.t.SetSize(e.width, e.height)
	}
	return e.t
}

// historyView exposes a console history to term.Terminal for recall.
// The session records commands itself, so Add does nothing.
type historyView struct {
	h  console.History
	at func(int) string
}

func newHistoryView(h console.History) (term.History, bool) {
	r, ok := h.(interface{ At(int) string })
	if !ok {
		return nil, false
	}
	return historyView{h: h, at: r.At}, true
}

func (v historyView) Add(string) {}

func (v historyView) Len() int { return v.h.Size() }

// At returns the idx-th most recent entry.
func (v historyView) At(idx int) string { return v.at(v.h.Size() - 1 - idx) }
