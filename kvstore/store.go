// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package kvstore implements the abstract persisted-state layout
// (spec.md §6.2): atomic single-key put/get plus bounded-cost prefix
// iteration, with no multi-key transactions — every core invariant is
// re-establishable from single-key updates and an in-memory rebuild at
// startup. Grounded on the teacher's crypto/database.Reader/Writer
// split, simplified to the one shared resource this spec actually
// needs (no Batch/Close; a registry or snapshot producer never needs
// to undo a partial write).
package kvstore

import (
	"sort"
	"sync"
)

// Store is the key-value contract the registry writes and the
// warp-sync producer reads (spec.md §5, "Shared resources").
type Store interface {
	// Get returns the value stored at key, or ok=false if absent.
	Get(key []byte) (value []byte, ok bool)
	// Put writes value at key, replacing any prior value.
	Put(key []byte, value []byte)
	// Delete removes key, if present.
	Delete(key []byte)
	// IteratePrefix calls fn for every key with the given prefix, in
	// ascending lexicographic key order, stopping early if fn returns
	// false.
	IteratePrefix(prefix []byte, fn func(key, value []byte) bool)
}

// Memory is an in-memory Store, sufficient for tests, demos, and any
// deployment that rebuilds its whole working set from genesis on
// restart. It is safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (s *Memory) Get(key []byte) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[string(key)]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true
}

func (s *Memory) Put(key, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	s.data[string(key)] = v
}

func (s *Memory) Delete(key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, string(key))
}

func (s *Memory) IteratePrefix(prefix []byte, fn func(key, value []byte) bool) {
	s.mu.RLock()
	type kv struct {
		k string
		v []byte
	}
	matches := make([]kv, 0)
	p := string(prefix)
	for k, v := range s.data {
		if len(k) >= len(p) && k[:len(p)] == p {
			matches = append(matches, kv{k, v})
		}
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool { return matches[i].k < matches[j].k })
	for _, m := range matches {
		if !fn([]byte(m.k), m.v) {
			return
		}
	}
}
