// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads the karaf console configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all console configuration.
type Config struct {
	Console  ConsoleConfig  `yaml:"console"`
	Branding BrandingConfig `yaml:"branding"`
	History  HistoryConfig  `yaml:"history"`
	Logging  LoggingConfig  `yaml:"logging"`
	SSH      SSHConfig      `yaml:"ssh"`
	Shell    ShellConfig    `yaml:"shell"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// ConsoleConfig configures the interactive session.
type ConsoleConfig struct {
	PollInterval     string `yaml:"pollInterval"`
	IgnoreInterrupts bool   `yaml:"ignoreInterrupts"`
	InitScript       string `yaml:"initScript"`
}

// BrandingConfig customizes the banner, prompt and initial properties.
type BrandingConfig struct {
	Welcome    string            `yaml:"welcome"`
	Prompt     string            `yaml:"prompt"`
	Properties map[string]string `yaml:"properties"`
}

// HistoryConfig configures command history persistence.
type HistoryConfig struct {
	File    string `yaml:"file"`
	MaxSize int    `yaml:"maxSize"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level       string               `yaml:"level"` // debug, info, warn, error
	Development bool                 `yaml:"development"`
	Console     ConsoleLoggingConfig `yaml:"console"`
}

// ConsoleLoggingConfig mirrors log entries onto the console streams.
type ConsoleLoggingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	OutLevel string `yaml:"outLevel"`
	ErrLevel string `yaml:"errLevel"`
}

// SSHConfig configures the remote console server.
type SSHConfig struct {
	Listen      string            `yaml:"listen"`
	HostKey     string            `yaml:"hostKey"`
	Users       map[string]string `yaml:"users"` // user -> password; empty allows anyone
	IdleTimeout string            `yaml:"idleTimeout"`
}

// ShellConfig configures the sh builtin.
type ShellConfig struct {
	Enabled bool   `yaml:"enabled"`
	Timeout string `yaml:"timeout"`
}

// TracingConfig configures command spans.
type TracingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Output  string `yaml:"output"` // file path; empty is stdout
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Console: ConsoleConfig{
			PollInterval: "50ms",
		},
		Branding: BrandingConfig{
			Welcome: "Karaf console. Type 'help' for builtins, 'exit' to quit.",
		},
		History: HistoryConfig{
			File:    filepath.Join(homeDir(), ".karaf", "karaf.history"),
			MaxSize: 500,
		},
		Logging: LoggingConfig{
			Level: "info",
			Console: ConsoleLoggingConfig{
				OutLevel: "info",
				ErrLevel: "warn",
			},
		},
		SSH: SSHConfig{
			Listen:      ":8101",
			IdleTimeout: "30m",
		},
		Shell: ShellConfig{
			Timeout: "60s",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, cfg.Validate()
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("KARAF_HISTORY"); v != "" {
		c.History.File = v
	}
	if v := os.Getenv("KARAF_HISTORY_MAXSIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.History.MaxSize = n
		}
	}
	if v := os.Getenv("KARAF_INIT_SCRIPT"); v != "" {
		c.Console.InitScript = v
	}
	if v := os.Getenv("KARAF_SSH_LISTEN"); v != "" {
		c.SSH.Listen = v
	}
	if v := os.Getenv("KARAF_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks durations and sizes.
func (c *Config) Validate() error {
	for name, v := range map[string]string{
		"console.pollInterval": c.Console.PollInterval,
		"ssh.idleTimeout":      c.SSH.IdleTimeout,
		"shell.timeout":        c.Shell.Timeout,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if c.History.MaxSize < 0 {
		return fmt.Errorf("invalid history.maxSize: %d", c.History.MaxSize)
	}
	return nil
}

// GetPollInterval returns the relay poll interval.
func (c *Config) GetPollInterval() time.Duration {
	return parseDuration(c.Console.PollInterval, 50*time.Millisecond)
}

// GetIdleTimeout returns the SSH idle timeout. Zero disables it.
func (c *Config) GetIdleTimeout() time.Duration {
	return parseDuration(c.SSH.IdleTimeout, 0)
}

// GetShellTimeout returns the sh builtin timeout.
func (c *Config) GetShellTimeout() time.Duration {
	return parseDuration(c.Shell.Timeout, time.Minute)
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func homeDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return h
	}
	return "."
}
