// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package eval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/viant/gosh"
	"github.com/viant/gosh/runner"
	"github.com/viant/gosh/runner/local"
	"go.uber.org/zap"
)

var errShellDisabled = errors.New("sh: host shell is disabled")

// sh runs its arguments in a local host shell. The shell is started on
// first use and kept for the life of the Shell.
func (s *Shell) sh(ctx context.Context, args []string) (any, error) {
	if !s.shellEnabled {
		return nil, errShellDisabled
	}
	if len(args) == 0 {
		return nil, usage("sh")
	}
	svc, err := s.hostShell()
	if err != nil {
		return nil, err
	}
	command := strings.Join(args, " ")
	stdout, status, err := svc.Run(ctx, command, runner.WithTimeout(int(s.shellTimeout.Milliseconds())))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("sh: %w", err)
	}
	stdout = strings.TrimRight(stdout, "\r\n")
	if status != 0 {
		return nil, fmt.Errorf("sh: exit status %d: %s", status, stdout)
	}
	if stdout == "" {
		return nil, nil
	}
	return stdout, nil
}

func (s *Shell) hostShell() (*gosh.Service, error) {
	s.goshOnce.Do(func() {
		var opts []runner.Option
		if len(s.env) > 0 {
			opts = append(opts, runner.WithEnvironment(s.env))
		}
		s.gosh, s.goshErr = gosh.New(context.Background(), local.New(opts...))
		if s.goshErr != nil {
			s.log.Warn("host shell unavailable", zap.Error(s.goshErr))
		}
	})
	return s.gosh, s.goshErr
}
