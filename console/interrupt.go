// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package console

import (
	"context"
	"sync"

	"code.hybscloud.com/atomix"
)

// Interrupter is the edge-triggered cancellation flag shared by the input
// relay, the queued input adapter and the session loop.
//
// Raise sets the flag and wakes a consumer parked on the pending-input
// queue. CheckAndClear observes and clears it. Interrupts are not counted:
// a Raise while one is pending is a no-op.
type Interrupter struct {
	flag atomix.Uint32
	wake chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewInterrupter returns a cleared Interrupter.
func NewInterrupter() *Interrupter {
	return &Interrupter{wake: make(chan struct{}, 1)}
}

// Raise requests cooperative cancellation. It reports whether this call
// set the flag. The context of a command in flight is canceled as well.
func (i *Interrupter) Raise() bool {
	if !i.flag.CompareAndSwap(0, 1) {
		return false
	}
	select {
	case i.wake <- struct{}{}:
	default:
	}
	i.mu.Lock()
	cancel := i.cancel
	i.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return true
}

// Pending reports whether an interrupt is raised and not yet observed.
func (i *Interrupter) Pending() bool {
	return i.flag.Load() == 1
}

// CheckAndClear is the checkpoint: it atomically tests and clears the
// flag and returns ErrInterrupted if it was set.
func (i *Interrupter) CheckAndClear() error {
	if !i.flag.CompareAndSwap(1, 0) {
		return nil
	}
	select {
	case <-i.wake:
	default:
	}
	return ErrInterrupted
}

// Wake returns the channel signaled by Raise. Receivers must still call
// CheckAndClear: a token may be stale.
func (i *Interrupter) Wake() <-chan struct{} {
	return i.wake
}

// attach routes the next Raise to cancel until the returned detach runs.
func (i *Interrupter) attach(cancel context.CancelFunc) (detach func()) {
	i.mu.Lock()
	i.cancel = cancel
	i.mu.Unlock()
	return func() {
		i.mu.Lock()
		i.cancel = nil
		i.mu.Unlock()
	}
}
