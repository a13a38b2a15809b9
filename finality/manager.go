// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package finality

import (
	"time"

	"github.com/kratos-labs/kratos/primitives"
	"github.com/kratos-labs/kratos/set"
	"github.com/kratos-labs/kratos/votes"
)

// Outcome is the terminal state a round history entry records.
type Outcome uint8

const (
	OutcomeCompleted Outcome = iota
	OutcomeFailed
)

func (o Outcome) String() string {
	if o == OutcomeCompleted {
		return "completed"
	}
	return "failed"
}

// RoundSummary is the bounded history kept per finished round, enough to
// answer "what happened to round N" without retaining the full vote set
// (spec.md §4.4).
type RoundSummary struct {
	Epoch         primitives.EpochNumber
	Round         uint64
	Outcome       Outcome
	Target        votes.Target
	Equivocations int
	Duration      time.Duration
}

// Manager owns the single active Round for an epoch and advances rounds
// and epochs over the validator set (spec.md §4.4, component C4).
//
// Manager is single-owner and uses no internal locks; serialization is
// the gadget's responsibility, same as Round and Collector.
type Manager struct {
	epoch      primitives.EpochNumber
	validators set.Set[primitives.AccountId]
	ourID      *primitives.AccountId
	timeout    time.Duration

	current *Round

	lastFinalized votes.Target
	haveFinalized bool
	history       []RoundSummary
	historyCap    int
}

// NewManager starts a manager at epoch 0 awaiting its first round.
func NewManager(validators set.Set[primitives.AccountId], ourID *primitives.AccountId, timeout time.Duration, historyCap int) *Manager {
	if historyCap <= 0 {
		historyCap = 100
	}
	return &Manager{
		validators: validators,
		ourID:      ourID,
		timeout:    timeout,
		historyCap: historyCap,
	}
}

// Epoch returns the manager's current epoch.
func (m *Manager) Epoch() primitives.EpochNumber { return m.epoch }

// Current returns the active round, or nil when there is none: before
// the first StartRound, and after CompleteRound or NewEpoch until the
// next StartRound.
func (m *Manager) Current() *Round { return m.current }

// LastFinalized returns the most recently finalized target, if any.
func (m *Manager) LastFinalized() (votes.Target, bool) { return m.lastFinalized, m.haveFinalized }

// History returns the bounded round history, oldest first.
func (m *Manager) History() []RoundSummary {
	out := make([]RoundSummary, len(m.history))
	copy(out, m.history)
	return out
}

// StartRound begins round num in the current epoch. It replaces any
// existing current round without recording history for it: callers must
// call CompleteRound first if the prior round should be archived.
func (m *Manager) StartRound(num uint64) *Round {
	m.current = NewRound(m.epoch, num, m.validators, m.ourID, m.timeout)
	return m.current
}

// CompleteRound archives the active round into history, updating
// lastFinalized when the round reached Completed, and drops it so that
// Current returns nil. It is a no-op if there is no active round.
func (m *Manager) CompleteRound() {
	if m.current == nil {
		return
	}
	r := m.current
	var outcome Outcome
	var target votes.Target
	if t, ok := r.collector.FinalizedTarget(); ok {
		outcome = OutcomeCompleted
		target = t
		m.lastFinalized = t
		m.haveFinalized = true
	} else {
		outcome = OutcomeFailed
	}
	m.appendHistory(RoundSummary{
		Epoch:         r.Epoch,
		Round:         r.Num,
		Outcome:       outcome,
		Target:        target,
		Equivocations: len(r.Equivocations()),
		Duration:      time.Since(r.start),
	})
	m.current = nil
}

func (m *Manager) appendHistory(s RoundSummary) {
	m.history = append(m.history, s)
	if len(m.history) > m.historyCap {
		m.history = m.history[len(m.history)-m.historyCap:]
	}
}

// NextRound archives the current round (if any) and starts round+1 in
// the same epoch.
func (m *Manager) NextRound() *Round {
	nextNum := uint64(1)
	if m.current != nil {
		nextNum = m.current.Num + 1
		m.CompleteRound()
	}
	return m.StartRound(nextNum)
}

// NewEpoch archives the current round, advances the epoch counter, and
// installs a fresh validator set for it, per spec.md §4.4's epoch
// boundary: rounds never span epochs.
func (m *Manager) NewEpoch(epoch primitives.EpochNumber, validators set.Set[primitives.AccountId]) {
	m.CompleteRound()
	m.current = nil
	m.epoch = epoch
	m.validators = validators
}

// UpdateValidators replaces the validator set that StartRound will use
// for the NEXT round; it never mutates the currently active round's
// Collector, which keeps a fixed snapshot for its lifetime (spec.md
// §4.2's "single-owner, no internal locks" invariant extends to not
// changing quorum math mid-round).
func (m *Manager) UpdateValidators(validators set.Set[primitives.AccountId]) {
	m.validators = validators
}

// Tick reports whether the active round has timed out without
// finishing, so the caller can abandon it via NextRound. It does not
// change the round itself.
func (m *Manager) Tick() bool {
	return m.current != nil && !m.current.IsDone() && m.current.IsTimedOut()
}
