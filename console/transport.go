// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package console

import (
	"io"
	"os"

	"golang.org/x/term"
)

// NewFileTransport returns the transport for f. Terminals get a transport
// the relay can poll for pending bytes; pipes and regular files are read
// directly so that their end of file is seen.
func NewFileTransport(f *os.File) io.Reader {
	if term.IsTerminal(int(f.Fd())) {
		return &ttyTransport{f: f}
	}
	return f
}

type ttyTransport struct {
	f *os.File
}

func (t *ttyTransport) Read(p []byte) (int, error) {
	return t.f.Read(p)
}
