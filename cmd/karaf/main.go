// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command karaf runs the karaf console locally or serves it over SSH.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chriscoyle101/karaf/config"
	"github.com/chriscoyle101/karaf/logging"
	"github.com/chriscoyle101/karaf/tracing"
)

// version is set at link time.
var version = "dev"

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "karaf",
	Short: "Interactive karaf shell console",
	Long: `karaf runs a line-oriented shell console on this terminal.

Commands may span lines: end a line with a backslash, or leave a quote or
bracket open. Ctrl-C abandons the command being typed or running; Ctrl-D
ends the session.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
		if logger, err = logging.New(cfg.Logging, verbose); err != nil {
			return err
		}
		if cfg.Tracing.Enabled {
			if err := tracing.Init("karaf", version, cfg.Tracing.Output); err != nil {
				logger.Warn("tracing disabled", zap.Error(err))
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cfg != nil && cfg.Tracing.Enabled {
			_ = tracing.Shutdown(context.Background())
		}
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConsole(cmd.Context())
	},
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Run the console on this terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConsole(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve consoles over SSH",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "karaf", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "karaf.yaml", "Configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	serveCmd.Flags().StringVar(&listenOverride, "listen", "", "SSH listen address (overrides ssh.listen)")

	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
