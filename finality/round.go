// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package finality implements a single round's lifecycle (spec.md §4.3,
// component C3) and the round manager that owns the active round across
// rounds and epochs (spec.md §4.4, component C4). Grounded on the
// teacher's beam.Finalizer (Ready/Commit lifecycle), generalized from a
// trivial "always ready" linear finalizer into GRANDPA's lock-rule
// prevote/precommit/justification lifecycle.
package finality

import (
	"time"

	"github.com/kratos-labs/kratos/config"
	"github.com/kratos-labs/kratos/primitives"
	"github.com/kratos-labs/kratos/set"
	"github.com/kratos-labs/kratos/votes"
)

// SignFunc signs an already domain-separated payload. It is the entire
// Signer capability the round needs; it never sees a key, only bytes in
// and a Signature out.
type SignFunc func(domainSeparatedPayload []byte) primitives.Signature

// SignedPrecommit pairs a precommit's author with its signature, the
// unit a FinalityJustification is built from.
type SignedPrecommit struct {
	Voter     primitives.AccountId
	Signature primitives.Signature
}

// Justification is a bundle of signed precommits proving a block is
// finalized: the signatures are a subset of the round's precommits for
// (BlockNumber, BlockHash) whose union reaches supermajority. Round is
// the round the precommits were cast in; it is part of their signed
// payload.
type Justification struct {
	BlockNumber primitives.BlockNumber
	BlockHash   primitives.Hash
	Signatures  []SignedPrecommit
	Epoch       primitives.EpochNumber
	Round       uint64
}

// Round owns one Collector, our validator identity (if we are a
// validator in this round), and timing/authorship bookkeeping.
type Round struct {
	Epoch primitives.EpochNumber
	Num   uint64

	collector *votes.Collector
	ourID     *primitives.AccountId

	start   time.Time
	timeout time.Duration

	havePrevoted     bool
	havePrecommitted bool

	validatorCount int
}

// NewRound installs a fresh round bound to a snapshot of the validator
// set. ourID is nil if we are not a validator for this round.
func NewRound(epoch primitives.EpochNumber, num uint64, validators set.Set[primitives.AccountId], ourID *primitives.AccountId, timeout time.Duration) *Round {
	return &Round{
		Epoch:          epoch,
		Num:            num,
		collector:      votes.NewCollector(epoch, num, validators),
		ourID:          ourID,
		start:          time.Now(),
		timeout:        timeout,
		validatorCount: validators.Len(),
	}
}

// State returns the round's phase.
func (r *Round) State() votes.RoundState { return r.collector.State() }

// IsDone reports whether the round reached Completed or Failed.
func (r *Round) IsDone() bool { return r.collector.IsDone() }

// AddVote feeds an externally-received vote (gossiped or replayed
// during catch-up) through the round's collector.
func (r *Round) AddVote(vote votes.FinalityVote) (bool, error) {
	return r.collector.AddVote(vote)
}

// BestPrevote and BestPrecommit expose the collector's current leaders.
func (r *Round) BestPrevote() (votes.Target, bool)   { return r.collector.BestPrevote() }
func (r *Round) BestPrecommit() (votes.Target, bool) { return r.collector.BestPrecommit() }

// AllVotes returns every vote recorded so far, for gossip/catch-up.
func (r *Round) AllVotes() []votes.FinalityVote { return r.collector.AllVotes() }

// Equivocations returns every equivocation proof detected so far.
func (r *Round) Equivocations() []votes.EquivocationProof { return r.collector.Equivocations() }

// MarkFailed terminates the round without a justification.
func (r *Round) MarkFailed() { r.collector.MarkFailed() }

// IsTimedOut reports whether the round has run past its local timeout.
// This is a liveness check on a monotonic clock, not a safety check
// (spec.md §9): a late vote arriving after timeout is simply rejected by
// the collector as targeting a round that has moved on.
func (r *Round) IsTimedOut() bool {
	return time.Since(r.start) > r.timeout
}

// CreatePrevote returns our authored prevote for (targetNum, targetHash)
// iff we are a validator, the round is in Prevoting, and we have not
// already prevoted. It marks havePrevoted exactly once and records the
// vote in our own collector.
func (r *Round) CreatePrevote(targetNum primitives.BlockNumber, targetHash primitives.Hash, sign SignFunc) (*votes.FinalityVote, bool) {
	if r.ourID == nil || r.State() != votes.Prevoting || r.havePrevoted {
		return nil, false
	}
	vote := votes.FinalityVote{
		VoteType: votes.Prevote,
		Target:   votes.Target{Number: targetNum, Hash: targetHash},
		Round:    r.Num,
		Epoch:    r.Epoch,
		Voter:    *r.ourID,
	}
	vote.Signature = sign(primitives.SignMessage(primitives.DomainFinalityVote, vote.Payload()))
	r.havePrevoted = true
	_, _ = r.collector.AddVote(vote)
	return &vote, true
}

// CreatePrecommit targets the collector's current best prevote, not a
// freely chosen block: this is GRANDPA's lock rule. It returns nil
// unless we are a validator, the round is Precommitting, and we have
// not already precommitted.
func (r *Round) CreatePrecommit(sign SignFunc) (*votes.FinalityVote, bool) {
	if r.ourID == nil || r.State() != votes.Precommitting || r.havePrecommitted {
		return nil, false
	}
	target, ok := r.BestPrevote()
	if !ok {
		return nil, false
	}
	vote := votes.FinalityVote{
		VoteType: votes.Precommit,
		Target:   target,
		Round:    r.Num,
		Epoch:    r.Epoch,
		Voter:    *r.ourID,
	}
	vote.Signature = sign(primitives.SignMessage(primitives.DomainFinalityVote, vote.Payload()))
	r.havePrecommitted = true
	_, _ = r.collector.AddVote(vote)
	return &vote, true
}

// ShouldPrecommit reports whether the round just entered Precommitting
// and we have not yet precommitted.
func (r *Round) ShouldPrecommit() bool {
	return r.ourID != nil && r.State() == votes.Precommitting && !r.havePrecommitted
}

// CreateJustification assembles the FinalityJustification once the
// round is Completed: signatures is exactly the set of precommits that
// voted for the finalized target.
func (r *Round) CreateJustification() (*Justification, bool) {
	target, ok := r.collector.FinalizedTarget()
	if !ok {
		return nil, false
	}
	var sigs []SignedPrecommit
	for _, v := range r.collector.AllVotes() {
		if v.VoteType == votes.Precommit && v.Target == target {
			sigs = append(sigs, SignedPrecommit{Voter: v.Voter, Signature: v.Signature})
		}
	}
	return &Justification{
		BlockNumber: target.Number,
		BlockHash:   target.Hash,
		Signatures:  sigs,
		Epoch:       r.Epoch,
		Round:       r.Num,
	}, true
}

// VerifyJustification checks that j's signatures are a subset of valid
// precommits for (j.BlockNumber, j.BlockHash) whose deduplicated union
// reaches supermajority of validatorTotal (spec.md §3.2, §8.1 invariant 3).
func VerifyJustification(j *Justification, validatorTotal uint64) bool {
	if j == nil || len(j.Signatures) == 0 {
		return false
	}
	seen := make(map[primitives.AccountId]struct{}, len(j.Signatures))
	target := votes.Target{Number: j.BlockNumber, Hash: j.BlockHash}
	vote := votes.FinalityVote{
		VoteType: votes.Precommit,
		Target:   target,
		Round:    j.Round,
		Epoch:    j.Epoch,
	}
	for _, sp := range j.Signatures {
		vote.Voter = sp.Voter
		vote.Signature = sp.Signature
		if err := primitives.Verify(sp.Voter, primitives.DomainFinalityVote, vote.Payload(), sp.Signature); err != nil {
			return false
		}
		seen[sp.Voter] = struct{}{}
	}
	return votes.HasSupermajority(uint64(len(seen)), validatorTotal) || uint64(len(seen)) >= votes.MinSupermajority(validatorTotal)
}

// DefaultTimeout is the round timeout used when a caller does not
// otherwise configure one (spec.md §4.3: "one expected block time, on
// the order of 6 seconds").
func DefaultTimeout() time.Duration {
	return config.DefaultParameters().RoundTimeout
}
