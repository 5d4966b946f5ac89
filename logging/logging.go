// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package logging builds the zap loggers used by the console and the
// SSH server.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/chriscoyle101/karaf/config"
)

// New builds the process logger. verbose forces debug level.
func New(cfg config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// Redirect returns l writing to w instead of its configured outputs,
// encoded the way New would encode for cfg. Levels are unchanged.
func Redirect(l *zap.Logger, cfg config.LoggingConfig, w io.Writer) *zap.Logger {
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	if cfg.Development {
		enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}
	sink := zapcore.Lock(zapcore.AddSync(w))
	return l.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewCore(enc, sink, c)
	}))
}

// NewWriter returns a writer that passes bytes through to w unchanged
// and logs every complete line at level. A trailing partial line is held
// until its newline arrives.
func NewWriter(w io.Writer, l *zap.Logger, level zapcore.Level) io.Writer {
	return &lineWriter{w: w, log: l, level: level}
}

type lineWriter struct {
	w     io.Writer
	log   *zap.Logger
	level zapcore.Level

	mu      sync.Mutex
	pending []byte
}

func (lw *lineWriter) Write(p []byte) (int, error) {
	n, err := lw.w.Write(p)
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lw.pending = append(lw.pending, p[:n]...)
	for {
		i := bytes.IndexByte(lw.pending, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(string(lw.pending[:i]), "\r")
		lw.pending = lw.pending[i+1:]
		if ce := lw.log.Check(lw.level, line); ce != nil {
			ce.Write()
		}
	}
	return n, err
}

// ConsoleLevels parses the stream levels of cfg.
func ConsoleLevels(cfg config.ConsoleLoggingConfig) (out, errOut zapcore.Level, err error) {
	if out, err = zapcore.ParseLevel(cfg.OutLevel); err != nil {
		return 0, 0, fmt.Errorf("failed to parse console out level: %w", err)
	}
	if errOut, err = zapcore.ParseLevel(cfg.ErrLevel); err != nil {
		return 0, 0, fmt.Errorf("failed to parse console err level: %w", err)
	}
	return out, errOut, nil
}
