// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads presenced configuration.
//
// The daemon and the HTTP sink read one YAML file, passed with
// --config or PRESENCED_CONFIG. Without a file, the built-in defaults
// apply. A small set of environment variables override file values
// after loading: TOKEN and UPSTREAM (the names deployed units already
// set) and PRESENCED_LOG_LEVEL. Command-line flags override
// everything and are applied by each binary.
//
// Paths may reference ${XDG_RUNTIME_DIR}, ${HOME}, or any other
// environment variable with ${VAR} or ${VAR:-default}.
//
// The client-name table (names.go) is a separate JSONC file mapping
// client identities to display names.
package config
