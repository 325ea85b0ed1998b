// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package activity

import (
	"sort"
	"sync"
	"time"
)

// Entry pairs a client identity with its record.
type Entry struct {
	Identity string
	Record   Record
}

// Snapshot is a read-only copy of the store at one instant.
type Snapshot struct {
	TakenAt time.Time
	Entries []Entry
}

// Store maps client identities to their latest record. All methods
// are safe for concurrent use. Every method takes the same mutex and
// none of them performs I/O while holding it.
type Store struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{records: make(map[string]Record)}
}

// Upsert replaces the record for identity. The last writer wins when
// two connections share an identity.
func (s *Store) Upsert(identity string, record Record) {
	s.mu.Lock()
	s.records[identity] = record
	s.mu.Unlock()
}

// Remove deletes the record for identity. Removing an identity that
// has no record is a no-op.
func (s *Store) Remove(identity string) {
	s.mu.Lock()
	delete(s.records, identity)
	s.mu.Unlock()
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Snapshot returns every entry, sorted by identity. The copy is taken
// in a single critical section, so it never reflects half of a
// concurrent Upsert or Remove. Sorting happens after the lock is
// released.
func (s *Store) Snapshot() []Entry {
	s.mu.Lock()
	entries := make([]Entry, 0, len(s.records))
	for identity, record := range s.records {
		entries = append(entries, Entry{Identity: identity, Record: record})
	}
	s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Identity < entries[j].Identity
	})
	return entries
}
