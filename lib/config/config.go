// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// PublishMode selects where the daemon sends its snapshots.
type PublishMode string

const (
	// ModePush POSTs each snapshot to the upstream sink over HTTP.
	ModePush PublishMode = "push"

	// ModeDisplay serves the snapshot view from the daemon itself,
	// with no upstream.
	ModeDisplay PublishMode = "display"
)

// Config is the full configuration for the daemon and the sink.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Daemon  DaemonConfig  `yaml:"daemon"`
	Publish PublishConfig `yaml:"publish"`
	Sink    SinkConfig    `yaml:"sink"`
}

// DaemonConfig configures the IPC side of presenced.
type DaemonConfig struct {
	// RuntimeDir is the base for the default socket paths.
	// Default: ${XDG_RUNTIME_DIR:-/tmp}
	RuntimeDir string `yaml:"runtime_dir"`

	// SocketPaths overrides the default IPC socket paths entirely.
	SocketPaths []string `yaml:"socket_paths"`

	// ControlSocket is where presencectl connects. Empty disables it.
	// Default: ${XDG_RUNTIME_DIR:-/tmp}/presenced.sock
	ControlSocket string `yaml:"control_socket"`

	// MetricsAddress is a TCP address for the Prometheus endpoint.
	// Empty disables it.
	MetricsAddress string `yaml:"metrics_address"`
}

// PublishConfig configures snapshot delivery.
type PublishConfig struct {
	// Mode is push or display. Default: push
	Mode PublishMode `yaml:"mode"`

	// Upstream is the sink's base URL; snapshots go to <upstream>/state.
	// Default: http://localhost:3001
	Upstream string `yaml:"upstream"`

	// Token is sent with every snapshot. Required in push mode.
	Token string `yaml:"token"`

	// Interval between snapshots. Default: 5s
	Interval Duration `yaml:"interval"`

	// Timeout bounds one delivery. Default: 5s
	Timeout Duration `yaml:"timeout"`

	// Encoding compresses the request body: identity, gzip, zstd, or
	// lz4. Default: identity
	Encoding string `yaml:"encoding"`

	// NamesFile is an optional JSONC table of client display names,
	// merged over the built-in table.
	NamesFile string `yaml:"names_file"`

	// ListenAddress serves the snapshot view in display mode.
	// Default: 127.0.0.1:3001
	ListenAddress string `yaml:"listen_address"`
}

// SinkConfig configures the presence-http sink.
type SinkConfig struct {
	// ListenAddress is the sink's HTTP address. Default: 0.0.0.0:3001
	ListenAddress string `yaml:"listen_address"`

	// Token is the value every update must carry. Required.
	Token string `yaml:"token"`

	// ConstantTimeToken compares tokens with crypto/subtle.
	ConstantTimeToken bool `yaml:"constant_time_token"`
}

// Duration is a time.Duration that unmarshals from "5s"-style YAML
// strings.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var text string
	if err := node.Decode(&text); err != nil {
		return fmt.Errorf("duration must be a string like \"5s\": %w", err)
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Daemon: DaemonConfig{
			RuntimeDir:    "${XDG_RUNTIME_DIR:-/tmp}",
			ControlSocket: "${XDG_RUNTIME_DIR:-/tmp}/presenced.sock",
		},
		Publish: PublishConfig{
			Mode:          ModePush,
			Upstream:      "http://localhost:3001",
			Interval:      Duration(5 * time.Second),
			Timeout:       Duration(5 * time.Second),
			Encoding:      "identity",
			ListenAddress: "127.0.0.1:3001",
		},
		Sink: SinkConfig{
			ListenAddress: "0.0.0.0:3001",
		},
	}
}

// Load reads the file at path over the defaults, applies environment
// overrides, and expands variables. An empty path means
// PRESENCED_CONFIG, and if that is unset too, defaults only.
//
// The result is not validated; call Validate after applying flags.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	if path == "" {
		path, _ = lookup("PRESENCED_CONFIG")
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnvironment(lookup)
	cfg.expandVariables(lookup)
	return cfg, nil
}

// applyEnvironment overrides file values with the environment
// variables deployments already use.
func (c *Config) applyEnvironment(lookup func(string) (string, bool)) {
	if token, ok := lookup("TOKEN"); ok && token != "" {
		c.Publish.Token = token
		c.Sink.Token = token
	}
	if upstream, ok := lookup("UPSTREAM"); ok && upstream != "" {
		c.Publish.Upstream = upstream
	}
	if level, ok := lookup("PRESENCED_LOG_LEVEL"); ok && level != "" {
		c.LogLevel = level
	}
}

func (c *Config) expandVariables(lookup func(string) (string, bool)) {
	c.Daemon.RuntimeDir = expandVars(c.Daemon.RuntimeDir, lookup)
	c.Daemon.ControlSocket = expandVars(c.Daemon.ControlSocket, lookup)
	for index, path := range c.Daemon.SocketPaths {
		c.Daemon.SocketPaths[index] = expandVars(path, lookup)
	}
	c.Publish.NamesFile = expandVars(c.Publish.NamesFile, lookup)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}. An unset or empty
// variable takes the default.
func expandVars(s string, lookup func(string) (string, bool)) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value, ok := lookup(parts[1]); ok && value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the configuration a daemon needs.
func (c *Config) Validate() error {
	var errs []error

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log_level %q", c.LogLevel))
	}

	switch c.Publish.Mode {
	case ModePush:
		if c.Publish.Token == "" {
			errs = append(errs, errors.New("publish.token is required in push mode (set TOKEN)"))
		}
		if parsed, err := url.Parse(c.Publish.Upstream); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			errs = append(errs, fmt.Errorf("publish.upstream %q is not an absolute URL", c.Publish.Upstream))
		}
	case ModeDisplay:
		if c.Publish.ListenAddress == "" {
			errs = append(errs, errors.New("publish.listen_address is required in display mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid publish.mode %q (want push or display)", c.Publish.Mode))
	}

	if c.Publish.Interval <= 0 {
		errs = append(errs, errors.New("publish.interval must be positive"))
	}
	if c.Publish.Timeout <= 0 {
		errs = append(errs, errors.New("publish.timeout must be positive"))
	}
	switch c.Publish.Encoding {
	case "identity", "gzip", "zstd", "lz4":
	default:
		errs = append(errs, fmt.Errorf("invalid publish.encoding %q", c.Publish.Encoding))
	}

	if len(c.Daemon.SocketPaths) == 0 && c.Daemon.RuntimeDir == "" {
		errs = append(errs, errors.New("daemon.runtime_dir is required when daemon.socket_paths is empty"))
	}

	return errors.Join(errs...)
}

// ValidateSink checks the configuration the HTTP sink needs.
func (c *Config) ValidateSink() error {
	var errs []error
	if c.Sink.Token == "" {
		errs = append(errs, errors.New("sink.token is required (set TOKEN)"))
	}
	if c.Sink.ListenAddress == "" {
		errs = append(errs, errors.New("sink.listen_address is required"))
	}
	return errors.Join(errs...)
}
