// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import "maps"

// OSPresenceClientID is the identity the os-presence demo client
// announces.
const OSPresenceClientID = "1302583306281418823"

// wellKnownNames maps identities of clients that ship with presenced,
// or are common enough to ship a name for.
var wellKnownNames = map[string]string{
	OSPresenceClientID: "Operating System",
}

// Names resolves client identities to display names. Unknown
// identities resolve to themselves. A nil *Names resolves everything
// to itself.
type Names struct {
	table map[string]string
}

// NewNames returns the built-in table with overrides merged on top.
// An override with an empty name removes the built-in entry.
func NewNames(overrides map[string]string) *Names {
	table := maps.Clone(wellKnownNames)
	for identity, name := range overrides {
		if name == "" {
			delete(table, identity)
			continue
		}
		table[identity] = name
	}
	return &Names{table: table}
}

// Resolve returns the display name for identity.
func (n *Names) Resolve(identity string) string {
	if n == nil {
		return identity
	}
	if name, ok := n.table[identity]; ok {
		return name
	}
	return identity
}

// Len returns the number of mapped identities.
func (n *Names) Len() int {
	if n == nil {
		return 0
	}
	return len(n.table)
}
