// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework behind presencectl:
// nested commands dispatched by name, pflag flag sets parsed per
// command, typo suggestions for unknown commands and flags, and a
// logger that matches the terminal.
package cli
