// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// LoadNames reads a client-name table: a JSON object mapping client
// identities to display names. Comments and trailing commas are
// allowed.
//
//	{
//	  // editor plugin
//	  "383226320970055681": "Code",
//	}
func LoadNames(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading names file: %w", err)
	}
	return ParseNames(data)
}

// ParseNames parses a client-name table from JSONC.
func ParseNames(data []byte) (map[string]string, error) {
	var names map[string]string
	if err := json.Unmarshal(jsonc.ToJSON(data), &names); err != nil {
		return nil, fmt.Errorf("parsing names table: %w", err)
	}
	return names, nil
}
