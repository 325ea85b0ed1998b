// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/presenced/cmd/presencectl/cli"
	"github.com/bureau-foundation/presenced/control"
	"github.com/bureau-foundation/presenced/lib/clock"
	"github.com/bureau-foundation/presenced/lib/config"
	"github.com/bureau-foundation/presenced/lib/service"
	"github.com/bureau-foundation/presenced/lib/version"
)

const (
	callTimeout  = 10 * time.Second
	defaultWidth = 100
)

// connection holds the flags every daemon command shares.
type connection struct {
	socket   string
	asJSON   bool
	logLevel string
}

func (c *connection) register(flagSet *pflag.FlagSet, withJSON bool) {
	flagSet.StringVarP(&c.socket, "socket", "s", "", "control socket (default from presenced config)")
	flagSet.StringVar(&c.logLevel, "log-level", "warn", "log level for diagnostics on stderr")
	if withJSON {
		flagSet.BoolVar(&c.asJSON, "json", false, "output as JSON")
	}
}

// client resolves the socket path and returns a control client.
func (c *connection) client() (*control.Client, error) {
	path := c.socket
	if path == "" {
		cfg, err := config.Load("")
		if err != nil {
			return nil, err
		}
		path = cfg.Daemon.ControlSocket
	}
	if path == "" {
		return nil, fmt.Errorf("no control socket configured (use --socket)")
	}
	return control.NewClient(path), nil
}

func statusCommand() *cli.Command {
	var conn connection
	return &cli.Command{
		Name:    "status",
		Summary: "Show daemon status",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("status", pflag.ContinueOnError)
			conn.register(flagSet, true)
			return flagSet
		},
		Run: func(args []string) error {
			client, err := conn.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
			defer cancel()
			status, err := client.Status(ctx)
			if err != nil {
				return explain(conn, err)
			}
			if conn.asJSON {
				return writeJSON(os.Stdout, status)
			}
			fmt.Fprint(os.Stdout, renderStatus(status, newTheme(os.Stdout)))
			return nil
		},
	}
}

func listCommand() *cli.Command {
	var (
		conn  connection
		width int
	)
	return &cli.Command{
		Name:    "list",
		Summary: "List the activities presenced currently holds",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			conn.register(flagSet, true)
			flagSet.IntVarP(&width, "width", "w", 0, "table width (default terminal width)")
			return flagSet
		},
		Run: func(args []string) error {
			client, err := conn.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
			defer cancel()
			snapshot, err := client.Snapshot(ctx)
			if err != nil {
				return explain(conn, err)
			}
			if conn.asJSON {
				return writeJSON(os.Stdout, snapshot)
			}
			if width <= 0 {
				width = terminalWidth(os.Stdout)
			}
			fmt.Fprint(os.Stdout, renderSnapshot(snapshot, width, newTheme(os.Stdout)))
			if len(snapshot.Entries) == 0 {
				return &cli.ExitError{Code: 2}
			}
			return nil
		},
	}
}

func publishCommand() *cli.Command {
	var conn connection
	return &cli.Command{
		Name:    "publish",
		Summary: "Deliver a snapshot now instead of waiting for the next tick",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("publish", pflag.ContinueOnError)
			conn.register(flagSet, false)
			return flagSet
		},
		Run: func(args []string) error {
			client, err := conn.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
			defer cancel()
			response, err := client.Publish(ctx)
			if err != nil {
				return explain(conn, err)
			}
			fmt.Fprintf(os.Stdout, "published %d record(s)\n", response.Records)
			return nil
		},
	}
}

func watchCommand() *cli.Command {
	var (
		conn     connection
		interval time.Duration
	)
	return &cli.Command{
		Name:    "watch",
		Summary: "Show a live, refreshing table of activities",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("watch", pflag.ContinueOnError)
			conn.register(flagSet, false)
			flagSet.DurationVarP(&interval, "interval", "i", 2*time.Second, "poll interval")
			return flagSet
		},
		Run: func(args []string) error {
			if interval <= 0 {
				return fmt.Errorf("--interval must be positive")
			}
			if !cli.IsTerminal(os.Stdout) {
				return fmt.Errorf("watch needs a terminal; use 'presencectl list --json' in scripts")
			}
			client, err := conn.client()
			if err != nil {
				return err
			}
			model := newWatchModel(client, clock.Real(), interval, newTheme(os.Stdout))
			if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
				return fmt.Errorf("running live view: %w", err)
			}
			return nil
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Run: func(args []string) error {
			fmt.Fprintf(os.Stdout, "presencectl %s\n", version.Full())
			return nil
		},
	}
}

// explain logs the failure class before returning err.
func explain(conn connection, err error) error {
	level, parseErr := service.ParseLevel(conn.logLevel)
	if parseErr != nil {
		return parseErr
	}
	logger := cli.NewCommandLogger(level)
	if control.IsDaemonError(err) {
		logger.Debug("daemon rejected the request", "error", err)
	} else {
		logger.Debug("control socket unreachable", "socket", conn.socket, "error", err)
	}
	return err
}

func writeJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func terminalWidth(f *os.File) int {
	if !term.IsTerminal(int(f.Fd())) {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}
