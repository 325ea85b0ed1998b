// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package activity

import (
	"fmt"
	"sync"
	"testing"
)

func TestStoreUpsertReplacesWholeRecord(t *testing.T) {
	t.Parallel()
	store := NewStore()
	store.Upsert("abc", Record{State: "first", Details: "details", LargeText: "large"})
	store.Upsert("abc", Record{State: "second"})

	entries := store.Snapshot()
	if len(entries) != 1 {
		t.Fatalf("snapshot has %d entries, want 1", len(entries))
	}
	got := entries[0].Record
	if got.State != "second" {
		t.Errorf("State = %q, want second", got.State)
	}
	if got.Details != "" || got.LargeText != "" {
		t.Errorf("record was merged instead of replaced: %+v", got)
	}
}

func TestStoreRemove(t *testing.T) {
	t.Parallel()
	store := NewStore()
	store.Upsert("X", Record{State: "S"})
	store.Upsert("Y", Record{State: "S"})

	store.Remove("X")
	store.Remove("missing")

	entries := store.Snapshot()
	if len(entries) != 1 || entries[0].Identity != "Y" {
		t.Fatalf("snapshot = %+v, want only Y", entries)
	}
	if store.Len() != 1 {
		t.Fatalf("Len = %d, want 1", store.Len())
	}
}

func TestStoreSnapshotIsSortedAndDetached(t *testing.T) {
	t.Parallel()
	store := NewStore()
	for _, identity := range []string{"c", "a", "b"} {
		store.Upsert(identity, Record{State: identity})
	}

	entries := store.Snapshot()
	for index, want := range []string{"a", "b", "c"} {
		if entries[index].Identity != want {
			t.Fatalf("entries[%d] = %q, want %q", index, entries[index].Identity, want)
		}
	}

	store.Upsert("a", Record{State: "changed"})
	store.Remove("b")
	if entries[0].Record.State != "a" || len(entries) != 3 {
		t.Fatalf("snapshot changed after later mutations: %+v", entries)
	}
}

func TestStoreEmptyIdentityIsLegal(t *testing.T) {
	t.Parallel()
	store := NewStore()
	store.Upsert("", Record{State: "anonymous"})
	entries := store.Snapshot()
	if len(entries) != 1 || entries[0].Identity != "" {
		t.Fatalf("snapshot = %+v, want one entry keyed by the empty identity", entries)
	}
}

func TestStoreConcurrentUpserts(t *testing.T) {
	t.Parallel()
	const clients = 64
	const updatesPerClient = 50

	store := NewStore()
	var wait sync.WaitGroup
	for client := 0; client < clients; client++ {
		wait.Add(1)
		go func() {
			defer wait.Done()
			identity := fmt.Sprintf("client-%02d", client)
			for update := 0; update < updatesPerClient; update++ {
				store.Upsert(identity, Record{State: fmt.Sprintf("update-%d", update)})
			}
		}()
	}

	// Concurrent readers must never observe a torn map.
	stop := make(chan struct{})
	var readers sync.WaitGroup
	for reader := 0; reader < 4; reader++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if entries := store.Snapshot(); len(entries) > clients {
					t.Errorf("snapshot has %d entries, more than %d clients", len(entries), clients)
					return
				}
			}
		}()
	}

	wait.Wait()
	close(stop)
	readers.Wait()

	entries := store.Snapshot()
	if len(entries) != clients {
		t.Fatalf("snapshot has %d entries, want %d", len(entries), clients)
	}
	want := fmt.Sprintf("update-%d", updatesPerClient-1)
	for _, entry := range entries {
		if entry.Record.State != want {
			t.Errorf("%s: State = %q, want last write %q", entry.Identity, entry.Record.State, want)
		}
	}
}

func TestStoreConcurrentUpsertAndRemove(t *testing.T) {
	t.Parallel()
	store := NewStore()
	var wait sync.WaitGroup
	for client := 0; client < 32; client++ {
		wait.Add(1)
		go func() {
			defer wait.Done()
			identity := fmt.Sprintf("transient-%d", client)
			store.Upsert(identity, Record{State: "live"})
			store.Remove(identity)
		}()
	}
	wait.Wait()

	if store.Len() != 0 {
		t.Fatalf("Len = %d after every writer removed its entry, want 0", store.Len())
	}
}
