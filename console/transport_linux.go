// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package console

import "golang.org/x/sys/unix"

// Available reports the bytes the terminal driver has buffered.
func (t *ttyTransport) Available() (int, error) {
	return unix.IoctlGetInt(int(t.f.Fd()), unix.TIOCINQ)
}
