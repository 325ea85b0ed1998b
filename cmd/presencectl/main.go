// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Presencectl inspects and drives a running presenced over its control
// socket.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/bureau-foundation/presenced/cmd/presencectl/cli"
)

func main() {
	if err := root().Execute(os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func root() *cli.Command {
	return &cli.Command{
		Name:        "presencectl",
		Summary:     "Inspect a running presenced",
		Description: "Presencectl talks to presenced over its control socket.",
		Subcommands: []*cli.Command{
			statusCommand(),
			listCommand(),
			publishCommand(),
			watchCommand(),
			versionCommand(),
		},
	}
}
