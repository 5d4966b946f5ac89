// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package console

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
)

// Unit is one element of the pending-input alphabet: a raw transport byte
// (0..255) or the EndOfStream sentinel.
type Unit int16

const (
	// EndOfStream is the reserved sentinel that closes a session's input.
	EndOfStream Unit = -1

	// QueueCapacity is the fixed number of pending units. A stalled
	// consumer makes the relay block on the next insertion.
	QueueCapacity = 1024
)

// unitQueue is the bounded FIFO between the relay (single producer) and
// the input adapter (single consumer).
//
// The ring is sized at twice the logical capacity: ordinary units are
// bounded by the in/out counters, and the sentinel bypasses that bound so
// it can always be delivered.
type unitQueue struct {
	ring     lfq.SPSC[Unit]
	in       atomix.Uint32 // written by the producer only
	out      atomix.Uint32 // written by the consumer only
	capacity uint32
	ready    chan struct{}
}

func newUnitQueue(capacity int) *unitQueue {
	q := &unitQueue{
		capacity: uint32(capacity),
		ready:    make(chan struct{}, 1),
	}
	q.ring.Init(2 * capacity)
	return q
}

// offer inserts an ordinary unit.
// Non-blocking: returns iox.ErrWouldBlock when QueueCapacity units are pending.
func (q *unitQueue) offer(u Unit) error {
	if q.in.Load()-q.out.Load() >= q.capacity {
		return iox.ErrWouldBlock
	}
	return q.push(u)
}

// push inserts u regardless of the logical bound.
func (q *unitQueue) push(u Unit) error {
	if err := q.ring.Enqueue(&u); err != nil {
		return err
	}
	q.in.Add(1)
	select {
	case q.ready <- struct{}{}:
	default:
	}
	return nil
}

// poll removes the oldest unit.
// Non-blocking: returns iox.ErrWouldBlock when the queue is empty.
func (q *unitQueue) poll() (Unit, error) {
	u, err := q.ring.Dequeue()
	if err != nil {
		return 0, err
	}
	q.out.Add(1)
	return u, nil
}

// depth is advisory: the counters are read without a common snapshot.
func (q *unitQueue) depth() int {
	d := int32(q.in.Load() - q.out.Load())
	if d < 0 {
		return 0
	}
	return int(d)
}
