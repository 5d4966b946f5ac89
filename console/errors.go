// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package console

import (
	"context"
	"errors"
)

var (
	// ErrInterrupted is returned from a blocking checkpoint when an
	// interrupt was raised and not yet observed.
	ErrInterrupted = errors.New("console: keyboard interruption")

	// ErrCloseSession is the close signal. Evaluators return it (or wrap
	// it) to end the session gracefully.
	ErrCloseSession = errors.New("console: close session")

	// ErrClosed reports an operation on a session that is closing or closed.
	ErrClosed = errors.New("console: session closed")

	// ErrStarted reports a second Start or Run on the same session.
	ErrStarted = errors.New("console: session already started")
)

// IsInterrupted reports whether err belongs to the cancellation class:
// a keyboard interruption or a canceled command context.
func IsInterrupted(err error) bool {
	return errors.Is(err, ErrInterrupted) || errors.Is(err, context.Canceled)
}
