// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"

	"github.com/chriscoyle101/karaf/console"
	"github.com/chriscoyle101/karaf/history"
	"github.com/chriscoyle101/karaf/sshd"
)

var listenOverride string

func runServer(ctx context.Context) error {
	sshCfg := cfg.SSH
	if listenOverride != "" {
		sshCfg.Listen = listenOverride
	}
	srv, err := sshd.New(sshCfg, func(user string) (console.Evaluator, []console.Option) {
		h := history.NewMemory(cfg.History.MaxSize)
		return newShell(cfg, logger, h), []console.Option{console.WithHistory(h)}
	},
		sshd.WithLogger(logger.Named("sshd")),
		sshd.WithConsoleOptions(consoleOptions(cfg, logger)...),
	)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx)
}
