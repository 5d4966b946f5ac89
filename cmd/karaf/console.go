// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/chriscoyle101/karaf/config"
	"github.com/chriscoyle101/karaf/console"
	"github.com/chriscoyle101/karaf/eval"
	"github.com/chriscoyle101/karaf/history"
	"github.com/chriscoyle101/karaf/lineedit"
	"github.com/chriscoyle101/karaf/logging"
	"github.com/chriscoyle101/karaf/probe"
)

// consoleOptions are shared by local and remote consoles.
func consoleOptions(cfg *config.Config, log *zap.Logger) []console.Option {
	props := make(map[string]any, len(cfg.Branding.Properties)+1)
	for k, v := range cfg.Branding.Properties {
		props[k] = v
	}
	if cfg.Console.IgnoreInterrupts {
		props[console.IgnoreInterruptsProperty] = true
	}
	return []console.Option{
		console.WithLogger(log.Named("console")),
		console.WithProbe(probe.New()),
		console.WithWelcome(cfg.Branding.Welcome),
		console.WithPrompt(cfg.Branding.Prompt),
		console.WithProperties(props),
		console.WithPollInterval(cfg.GetPollInterval()),
		console.WithInitScript(cfg.Console.InitScript),
	}
}

func newShell(cfg *config.Config, log *zap.Logger, h *history.Store) *eval.Shell {
	opts := []eval.Option{eval.WithLogger(log.Named("eval")), eval.WithHistory(h)}
	if cfg.Shell.Enabled {
		opts = append(opts, eval.WithHostShell(cfg.GetShellTimeout(), nil))
	}
	return eval.New(opts...)
}

func runConsole(ctx context.Context) error {
	var out, errOut io.Writer = os.Stdout, os.Stderr
	log := logger
	var editor console.EditorFactory
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("failed to enter raw mode: %w", err)
		}
		defer term.Restore(fd, state)
		out, errOut = lineedit.CRLF(os.Stdout), lineedit.CRLF(os.Stderr)
		log = logging.Redirect(logger, cfg.Logging, errOut)
		editor = func(in io.Reader, w io.Writer, hist console.History) console.LineReader {
			e := lineedit.New(in, w, hist)
			if width, height, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
				e.SetSize(width, height)
			}
			return e
		}
	}

	h, err := history.Open(cfg.History.File, cfg.History.MaxSize)
	if err != nil {
		log.Warn("history unavailable, keeping it in memory", zap.Error(err))
		h = history.NewMemory(cfg.History.MaxSize)
	}
	shell := newShell(cfg, log, h)
	defer shell.Close()

	if cfg.Logging.Console.Enabled {
		outLevel, errLevel, err := logging.ConsoleLevels(cfg.Logging.Console)
		if err != nil {
			return err
		}
		streams := log.Named("streams")
		out = logging.NewWriter(out, streams, outLevel)
		errOut = logging.NewWriter(errOut, streams, errLevel)
	}
	opts := append(consoleOptions(cfg, log), console.WithHistory(h))
	if editor != nil {
		opts = append(opts, console.WithEditor(editor))
	}

	session := console.New(shell, console.NewFileTransport(os.Stdin), out, errOut, opts...)
	return session.Run(ctx)
}
