// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gadget

import (
	"sync"

	"github.com/kratos-labs/kratos/finality"
	"github.com/kratos-labs/kratos/primitives"
	"github.com/kratos-labs/kratos/votes"
)

// Guarded wraps a Gadget with a mutex so multiple goroutines (a
// network receive loop, a block-import callback, a timer) can drive it
// safely. The Gadget itself holds no locks (spec.md §5: "Concurrency is
// obtained around the cores"); Guarded is that "around."
type Guarded struct {
	mu sync.Mutex
	g  *Gadget
}

// NewGuarded wraps an existing gadget.
func NewGuarded(g *Gadget) *Guarded {
	return &Guarded{g: g}
}

func (s *Guarded) OnBlockImported(number primitives.BlockNumber, hash primitives.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.g.OnBlockImported(number, hash)
}

func (s *Guarded) OnMessage(msg FinalityMessage) *VoteResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.OnMessage(msg)
}

func (s *Guarded) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.Tick()
}

func (s *Guarded) LastFinalized() (votes.Target, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.LastFinalized()
}

func (s *Guarded) Justifications() []finality.Justification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.Justifications()
}
