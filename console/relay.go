// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package console

import (
	"errors"
	"io"
	"time"

	"code.hybscloud.com/iox"
	"go.uber.org/zap"
)

const (
	keyInterrupt       = 3
	keyEndTransmission = 4

	relayChunk = 256
)

// relay moves transport bytes into the queue until the transport ends,
// the end-of-transmission key arrives, or the session stops running.
// The EndOfStream sentinel is delivered exactly once on every exit path.
func (s *Session) relay() {
	defer close(s.drained)
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("input relay panicked", zap.Any("panic", r))
		}
		s.eof.Store(1)
		s.deliverEndOfStream()
	}()
	buf := make([]byte, relayChunk)
	for s.Running() {
		n, err := s.readTransport(buf)
		for _, c := range buf[:n] {
			if !s.props.Bool(IgnoreInterruptsProperty) {
				switch c {
				case keyEndTransmission:
					io.WriteString(s.err, "^D")
					return
				case keyInterrupt:
					io.WriteString(s.err, "^C")
					if d, ok := s.editor.(Discarder); ok {
						d.Discard()
					}
					s.interrupts.Raise()
					continue
				}
			}
			if !s.put(Unit(c)) {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, ErrClosed) {
				s.log.Debug("transport read failed", zap.Error(err))
			}
			return
		}
	}
}

// readTransport reads the next chunk. Transports that report pending
// bytes are polled first so the relay notices a stopped session without
// being parked in Read.
func (s *Session) readTransport(buf []byte) (int, error) {
	if a, ok := s.transport.(availabler); ok {
		for {
			n, err := a.Available()
			if err != nil {
				return 0, err
			}
			if n > 0 {
				if n < len(buf) {
					buf = buf[:n]
				}
				break
			}
			t := time.NewTimer(s.pollInterval)
			select {
			case <-t.C:
			case <-s.done:
				t.Stop()
				return 0, ErrClosed
			}
		}
	}
	return s.transport.Read(buf)
}

// put waits for queue space. It reports false when the session stopped
// before the unit could be inserted.
func (s *Session) put(u Unit) bool {
	var bo iox.Backoff
	for {
		err := s.queue.offer(u)
		if err == nil {
			return true
		}
		if !s.Running() {
			return false
		}
		bo.Wait()
	}
}

func (s *Session) deliverEndOfStream() {
	var bo iox.Backoff
	for s.queue.push(EndOfStream) != nil {
		if !s.Running() {
			return
		}
		bo.Wait()
	}
}
