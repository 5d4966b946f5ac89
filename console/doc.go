// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package console runs an interactive, line-oriented shell session over a
// byte transport such as a terminal or an SSH channel.
//
// # Architecture
//
//   - Relay: one goroutine per [Session] reads the transport, handles the
//     interrupt (0x03) and end-of-transmission (0x04) keys, and feeds a bounded
//     queue of [QueueCapacity] units via [code.hybscloud.com/lfq].
//   - Backpressure: insertion on a full queue waits with [code.hybscloud.com/iox.Backoff].
//   - Input: [Input] adapts the queue to io.Reader for the [LineReader].
//     Its blocking reads are cancellation points for the [Interrupter].
//   - Assembly: physical lines are joined into commands by an effect protocol on
//     [code.hybscloud.com/kont]. A trailing backslash or a [Probe] answering
//     "incomplete" asks for another line.
//   - Loop: each command runs on the [Evaluator] with a context that the
//     interrupt key cancels. [ErrCloseSession] ends the session.
//
// # Example
//
//	s := console.New(evaluator, console.NewFileTransport(os.Stdin), os.Stdout, os.Stderr,
//		console.WithProbe(probe.New()),
//		console.WithWelcome("Welcome"),
//	)
//	if err := s.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
package console
