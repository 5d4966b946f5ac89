// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package console

import (
	"time"

	"go.uber.org/zap"
)

// Option configures a Session.
type Option func(s *Session)

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithProbe sets the completeness probe. Without one every line is a
// complete command unless it ends with a backslash.
func WithProbe(p Probe) Option {
	return func(s *Session) { s.probe = p }
}

// WithHistory sets the command history.
func WithHistory(h History) Option {
	return func(s *Session) { s.history = h }
}

// WithEditor sets the line reader factory.
func WithEditor(f EditorFactory) Option {
	return func(s *Session) { s.newEditor = f }
}

// WithFormatter sets how non-nil results are rendered.
func WithFormatter(f func(any) string) Option {
	return func(s *Session) { s.format = f }
}

// WithCloseCallback registers fn to run once when the session ends
// because of its own input: end of input or the close signal.
func WithCloseCallback(fn func()) Option {
	return func(s *Session) { s.onClose = fn }
}

// WithWelcome sets the banner printed when the session starts.
func WithWelcome(text string) Option {
	return func(s *Session) { s.welcome = text }
}

// WithPrompt sets the branding prompt template.
func WithPrompt(template string) Option {
	return func(s *Session) { s.brandPrompt = template }
}

// WithProperties seeds the property bag. Later entries win over the
// defaults New installs.
func WithProperties(props map[string]any) Option {
	return func(s *Session) {
		for k, v := range props {
			s.props.Put(k, v)
		}
	}
}

// WithInitScript names a file executed as one command before the first
// prompt.
func WithInitScript(path string) Option {
	return func(s *Session) { s.initScript = path }
}

// WithPollInterval sets how long the relay sleeps when the transport
// reports no pending bytes.
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) { s.pollInterval = d }
}
