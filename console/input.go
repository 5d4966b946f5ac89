// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package console

import (
	"io"

	"code.hybscloud.com/iox"
)

// Input presents the pending-input queue to the line reader as a byte
// stream. It has a single consumer: the session loop.
//
// Blocking reads are cancellation points: an interrupt raised before or
// while a read waits surfaces as ErrInterrupted.
type Input struct {
	s *Session
}

// ReadUnit returns the next unit. EndOfStream (with a nil error) means
// the input has ended or, when wait is false, that nothing is pending.
func (in *Input) ReadUnit(wait bool) (Unit, error) {
	s := in.s
	if !s.Running() {
		return EndOfStream, nil
	}
	if s.eof.Load() == 1 && s.queue.depth() == 0 {
		return EndOfStream, nil
	}
	if !wait {
		u, err := s.queue.poll()
		if err != nil {
			return EndOfStream, nil
		}
		return u, nil
	}
	if err := s.interrupts.CheckAndClear(); err != nil {
		return 0, err
	}
	u, err := in.take()
	if err != nil {
		return 0, err
	}
	return in.settle(u)
}

// settle is the checkpoint after a blocking take. A unit taken while an
// interrupt was raised is dropped with the interrupt.
func (in *Input) settle(u Unit) (Unit, error) {
	if err := in.s.interrupts.CheckAndClear(); err != nil {
		return 0, err
	}
	return u, nil
}

// take blocks until a unit is dequeued, the session closes, or an
// interrupt is raised.
func (in *Input) take() (Unit, error) {
	s := in.s
	for {
		u, err := s.queue.poll()
		if err == nil {
			return u, nil
		}
		if !iox.IsWouldBlock(err) {
			return 0, err
		}
		select {
		case <-s.queue.ready:
		case <-s.interrupts.Wake():
			if err := s.interrupts.CheckAndClear(); err != nil {
				return 0, err
			}
		case <-s.done:
			return EndOfStream, nil
		}
	}
}

// ReadByte blocks for one byte. End of stream is io.EOF.
func (in *Input) ReadByte() (byte, error) {
	u, err := in.ReadUnit(true)
	if err != nil {
		return 0, err
	}
	if u == EndOfStream {
		return 0, io.EOF
	}
	return byte(u), nil
}

// Read blocks for the first byte, then drains whatever is already
// pending, up to len(p).
func (in *Input) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	c, err := in.ReadByte()
	if err != nil {
		return 0, err
	}
	p[0] = c
	n := 1
	for n < len(p) {
		u, _ := in.ReadUnit(false)
		if u == EndOfStream {
			break
		}
		p[n] = byte(u)
		n++
	}
	return n, nil
}

// Available returns the number of pending units. The result is advisory.
func (in *Input) Available() int {
	return in.s.queue.depth()
}
