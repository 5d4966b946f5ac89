// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package history keeps console command history, optionally backed by a
// file.
package history

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultMaxSize bounds a history when no size is configured.
const DefaultMaxSize = 500

// Store is a bounded, ordered list of commands. The oldest entries are
// dropped first. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	entries []string
	max     int
	path    string
	dirty   bool
}

// NewMemory returns a Store kept only in memory. A max below one means
// DefaultMaxSize.
func NewMemory(max int) *Store {
	if max < 1 {
		max = DefaultMaxSize
	}
	return &Store{max: max}
}

// Open returns a Store persisted at path. Existing entries are loaded; a
// missing file is an empty history.
func Open(path string, max int) (*Store, error) {
	s := NewMemory(max)
	s.path = path
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		if line := sc.Text(); line != "" {
			s.add(unescape(line))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("history: read %s: %w", path, err)
	}
	return s, nil
}

// Append adds entry as the newest command.
func (s *Store) Append(entry string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(entry)
	s.dirty = true
}

// ReplaceLast overwrites the newest command, or appends to an empty history.
func (s *Store) ReplaceLast(entry string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		s.add(entry)
	} else {
		s.entries[len(s.entries)-1] = entry
	}
	s.dirty = true
}

// Size returns the number of entries.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// At returns entry i, oldest first.
func (s *Store) At(i int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[i]
}

// Entries returns a copy of all entries, oldest first.
func (s *Store) Entries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.entries...)
}

// Flush writes the history to its file. Memory-only stores and clean
// stores do nothing.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" || !s.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".history-*")
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	w := bufio.NewWriter(tmp)
	for _, e := range s.entries {
		w.WriteString(escape(e))
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("history: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("history: write: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("history: %w", err)
	}
	s.dirty = false
	return nil
}

func (s *Store) add(entry string) {
	s.entries = append(s.entries, entry)
	if over := len(s.entries) - s.max; over > 0 {
		s.entries = append(s.entries[:0], s.entries[over:]...)
	}
}

var (
	escaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`)
)

// escape keeps multi-line commands on one line of the history file.
func escape(s string) string { return escaper.Replace(s) }

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
