// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sshd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"github.com/chriscoyle101/karaf/console"
	"github.com/chriscoyle101/karaf/lineedit"
)

// Request payloads, RFC 4254 section 6.
type ptyRequest struct {
	Term    string
	Columns uint32
	Rows    uint32
	Width   uint32
	Height  uint32
	Modes   string
}

type windowChange struct {
	Columns uint32
	Rows    uint32
	Width   uint32
	Height  uint32
}

type envRequest struct {
	Name  string
	Value string
}

type execRequest struct {
	Command string
}

type exitStatus struct {
	Status uint32
}

// channel is one SSH session channel.
type channel struct {
	server *Server
	user   string
	ch     ssh.Channel
	log    *zap.Logger

	env     map[string]any
	pty     *ptyRequest
	editor  *lineedit.Editor
	started bool
}

func (c *channel) serve(ctx context.Context, requests <-chan *ssh.Request) {
	defer c.ch.Close()
	for req := range requests {
		ok := true
		var run func() uint32
		switch req.Type {
		case "pty-req":
			var p ptyRequest
			if ok = ssh.Unmarshal(req.Payload, &p) == nil; ok {
				c.pty = &p
			}
		case "window-change":
			var w windowChange
			if ok = ssh.Unmarshal(req.Payload, &w) == nil; ok && c.editor != nil {
				c.editor.SetSize(int(w.Columns), int(w.Rows))
			}
		case "env":
			var e envRequest
			if ok = ssh.Unmarshal(req.Payload, &e) == nil; ok {
				if c.env == nil {
					c.env = make(map[string]any)
				}
				c.env[e.Name] = e.Value
			}
		case "shell":
			ok = !c.started
			if ok {
				c.started = true
				evaluator, sessionOpts := c.server.newSession(c.user)
				session := c.newConsole(evaluator, sessionOpts)
				run = func() uint32 { return c.runShell(ctx, session, evaluator) }
			}
		case "exec":
			var e execRequest
			ok = !c.started && ssh.Unmarshal(req.Payload, &e) == nil
			if ok {
				c.started = true
				command := e.Command
				run = func() uint32 { return c.runExec(ctx, command) }
			}
		default:
			ok = false
		}
		if req.WantReply {
			req.Reply(ok, nil)
		}
		// The request loop keeps serving window-change while the command runs.
		if run != nil {
			go func() { c.finish(run()) }()
		}
	}
}

func (c *channel) newConsole(evaluator console.Evaluator, sessionOpts []console.Option) *console.Session {
	var out, errOut io.Writer = c.ch, c.ch.Stderr()
	opts := append([]console.Option(nil), c.server.consoleOpts...)
	opts = append(opts, sessionOpts...)
	props := map[string]any{console.UserProperty: c.user}
	for k, v := range c.env {
		props[k] = v
	}
	opts = append(opts, console.WithProperties(props), console.WithLogger(c.log))
	if c.pty != nil {
		out = lineedit.CRLF(c.ch)
		errOut = out
		opts = append(opts, console.WithEditor(func(in io.Reader, w io.Writer, h console.History) console.LineReader {
			c.editor = lineedit.New(in, w, h)
			c.editor.SetSize(int(c.pty.Columns), int(c.pty.Rows))
			return c.editor
		}))
	}
	return console.New(evaluator, c.ch, out, errOut, opts...)
}

func (c *channel) runShell(ctx context.Context, session *console.Session, evaluator console.Evaluator) uint32 {
	if closer, ok := evaluator.(io.Closer); ok {
		defer closer.Close()
	}
	c.log.Info("console session started", zap.Uint32("console", session.Serial()))
	if err := session.Run(ctx); err != nil {
		c.log.Warn("console session failed", zap.Error(err))
		return 1
	}
	return 0
}

func (c *channel) runExec(ctx context.Context, command string) uint32 {
	evaluator, _ := c.server.newSession(c.user)
	if closer, ok := evaluator.(io.Closer); ok {
		defer closer.Close()
	}
	if store, ok := evaluator.(console.PropertyStore); ok {
		store.Put(console.UserProperty, c.user)
		for k, v := range c.env {
			store.Put(k, v)
		}
	}
	result, err := evaluator.Execute(ctx, command)
	switch {
	case err == nil:
		if result != nil {
			fmt.Fprintln(c.ch, result)
		}
		return 0
	case errors.Is(err, console.ErrCloseSession):
		return 0
	default:
		fmt.Fprintf(c.ch.Stderr(), "Error executing command: %v\n", err)
		c.log.Debug("exec failed", zap.String("command", command), zap.Error(err))
		return 1
	}
}

// finish reports the exit status and closes the channel, which ends the
// request loop.
func (c *channel) finish(status uint32) {
	c.ch.SendRequest("exit-status", false, ssh.Marshal(exitStatus{Status: status}))
	c.ch.Close()
}
