// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sshd serves karaf consoles over SSH.
//
// Each "shell" request on a session channel runs one console.Session with
// the channel as its transport. "exec" requests run a single command.
package sshd

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/sync/errgroup"

	"github.com/chriscoyle101/karaf/config"
	"github.com/chriscoyle101/karaf/console"
)

// SessionFactory returns the evaluator for a new console of user, and
// console options specific to that console.
type SessionFactory func(user string) (console.Evaluator, []console.Option)

// Server accepts SSH connections and runs consoles on them.
type Server struct {
	config      *ssh.ServerConfig
	listen      string
	idle        time.Duration
	newSession  SessionFactory
	consoleOpts []console.Option
	hostKey     ssh.Signer
	log         *zap.Logger

	mu   sync.Mutex
	addr net.Addr
}

// Option configures a Server.
type Option func(s *Server)

// WithLogger sets the server logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithConsoleOptions appends options applied to every console.
func WithConsoleOptions(opts ...console.Option) Option {
	return func(s *Server) { s.consoleOpts = append(s.consoleOpts, opts...) }
}

// WithHostKey sets the host key instead of loading cfg.HostKey.
func WithHostKey(signer ssh.Signer) Option {
	return func(s *Server) { s.hostKey = signer }
}

// New returns a Server for cfg. With no users configured, any client is
// accepted.
func New(cfg config.SSHConfig, newSession SessionFactory, opts ...Option) (*Server, error) {
	idle, _ := time.ParseDuration(cfg.IdleTimeout)
	s := &Server{
		config:     &ssh.ServerConfig{},
		listen:     cfg.Listen,
		idle:       idle,
		newSession: newSession,
		log:        zap.NewNop(),
	}
	if len(cfg.Users) == 0 {
		s.config.NoClientAuth = true
	} else {
		users := cfg.Users
		s.config.PasswordCallback = func(meta ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			want, ok := users[meta.User()]
			if ok && subtle.ConstantTimeCompare([]byte(want), password) == 1 {
				return nil, nil
			}
			return nil, fmt.Errorf("sshd: password rejected for %q", meta.User())
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hostKey == nil {
		signer, err := LoadHostKey(cfg.HostKey)
		if err != nil {
			return nil, err
		}
		s.hostKey = signer
	}
	s.config.AddHostKey(s.hostKey)
	return s, nil
}

// ListenAndServe listens on the configured address and serves until ctx
// is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("sshd: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled or Accept fails.
// It returns after every connection has been torn down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()
	s.log.Info("ssh console listening", zap.String("addr", ln.Addr().String()))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		ln.Close()
		return nil
	})
	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("sshd: accept: %w", err)
			}
			g.Go(func() error {
				s.handleConn(ctx, conn)
				return nil
			})
		}
	})
	return g.Wait()
}

// Addr returns the listening address once Serve has started.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	if s.idle > 0 {
		conn = &idleConn{Conn: conn, timeout: s.idle}
	}
	sconn, chans, reqs, err := ssh.NewServerConn(conn, s.config)
	if err != nil {
		s.log.Debug("ssh handshake failed", zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
		conn.Close()
		return
	}
	log := s.log.With(
		zap.String("conn", uuid.NewString()),
		zap.String("user", sconn.User()),
		zap.String("remote", sconn.RemoteAddr().String()),
	)
	log.Info("ssh connection opened")
	defer log.Info("ssh connection closed")

	stop := context.AfterFunc(ctx, func() { sconn.Close() })
	defer stop()
	go ssh.DiscardRequests(reqs)

	var wg sync.WaitGroup
	for nc := range chans {
		if nc.ChannelType() != "session" {
			nc.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		ch, requests, err := nc.Accept()
		if err != nil {
			log.Debug("channel accept failed", zap.Error(err))
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := &channel{server: s, user: sconn.User(), ch: ch, log: log}
			c.serve(ctx, requests)
		}()
	}
	wg.Wait()
	sconn.Close()
}
