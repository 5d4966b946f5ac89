// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package console

import (
	"bufio"
	"errors"
	"io"

	"code.hybscloud.com/atomix"
)

// PlainReader is a line reader without editing or echo, for piped input
// and for sessions whose terminal echoes locally.
// It accepts LF, CR and CRLF line endings and honors backspace.
type PlainReader struct {
	in      io.ByteReader
	out     io.Writer
	line    []byte
	skipLF  bool
	discard atomix.Uint32
}

// NewPlainReader returns a PlainReader over in that writes prompts to out.
func NewPlainReader(in io.Reader, out io.Writer) *PlainReader {
	br, ok := in.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(in)
	}
	return &PlainReader{in: br, out: out}
}

// ReadLine implements LineReader. A final unterminated line is returned
// before io.EOF. On any other error the partial line is kept for the next
// call unless Discard ran in between.
func (r *PlainReader) ReadLine(prompt string) (string, error) {
	if r.discard.CompareAndSwap(1, 0) {
		r.line, r.skipLF = r.line[:0], false
	}
	if _, err := io.WriteString(r.out, prompt); err != nil {
		return "", err
	}
	for {
		c, err := r.in.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && len(r.line) > 0 {
				return r.take(), nil
			}
			return "", err
		}
		if r.skipLF {
			r.skipLF = false
			if c == '\n' {
				continue
			}
		}
		switch c {
		case '\r':
			r.skipLF = true
			return r.take(), nil
		case '\n':
			return r.take(), nil
		case '\b', 0x7f:
			if len(r.line) > 0 {
				r.line = r.line[:len(r.line)-1]
			}
		default:
			r.line = append(r.line, c)
		}
	}
}

// Discard drops the line in progress at the next ReadLine.
func (r *PlainReader) Discard() {
	r.discard.Store(1)
}

func (r *PlainReader) take() string {
	line := string(r.line)
	r.line = r.line[:0]
	return line
}
