// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package votes

import (
	"github.com/kratos-labs/kratos/primitives"
	"github.com/kratos-labs/kratos/set"
)

// Collector aggregates prevotes and precommits for one (epoch, round),
// detects equivocations, and tracks the best target per phase
// (spec.md §4.2, component C2).
//
// Collector is single-owner and uses no internal locks: the gadget that
// wraps it is responsible for serializing calls (spec.md §5).
type Collector struct {
	epoch primitives.EpochNumber
	round uint64

	validators  set.Set[primitives.AccountId]
	indexOf     map[primitives.AccountId]int
	totalVoters int

	state RoundState

	// priorVote[voteType][voter] is the voter's recorded target for that
	// phase, used to detect equivocation and idempotent re-receipt.
	priorVote [2]map[primitives.AccountId]Target

	// tally[voteType][target] counts distinct voters per target.
	tally [2]map[Target]*bitset

	// ordered list of votes actually recorded, for gossip/catch-up.
	votes []FinalityVote

	bestPrevote   *Target
	bestPrecommit *Target

	equivocations []EquivocationProof
}

// NewCollector creates a collector for one (epoch, round) over the given
// validator set snapshot.
func NewCollector(epoch primitives.EpochNumber, round uint64, validators set.Set[primitives.AccountId]) *Collector {
	list := validators.List()
	idx := make(map[primitives.AccountId]int, len(list))
	for i, v := range list {
		idx[v] = i
	}
	return &Collector{
		epoch:       epoch,
		round:       round,
		validators:  validators,
		indexOf:     idx,
		totalVoters: len(list),
		state:       Prevoting,
		priorVote:   [2]map[primitives.AccountId]Target{{}, {}},
		tally:       [2]map[Target]*bitset{{}, {}},
	}
}

// State returns the round's current phase.
func (c *Collector) State() RoundState { return c.state }

// IsDone reports whether the round has reached a terminal state.
func (c *Collector) IsDone() bool {
	return c.state == Completed || c.state == Failed
}

// MarkFailed transitions the round to the terminal Failed state. It is
// a no-op if the round is already terminal.
func (c *Collector) MarkFailed() {
	if c.IsDone() {
		return
	}
	c.state = Failed
}

// BestPrevote returns the leading prevote target, if any vote has been
// recorded.
func (c *Collector) BestPrevote() (Target, bool) {
	if c.bestPrevote == nil {
		return Target{}, false
	}
	return *c.bestPrevote, true
}

// BestPrecommit returns the leading precommit target, if any vote has
// been recorded.
func (c *Collector) BestPrecommit() (Target, bool) {
	if c.bestPrecommit == nil {
		return Target{}, false
	}
	return *c.bestPrecommit, true
}

// FinalizedTarget returns the finalized (number, hash) pair, only Some
// once State() == Completed.
func (c *Collector) FinalizedTarget() (Target, bool) {
	if c.state != Completed || c.bestPrecommit == nil {
		return Target{}, false
	}
	return *c.bestPrecommit, true
}

// AllVotes returns every vote recorded so far, for gossip/catch-up.
func (c *Collector) AllVotes() []FinalityVote {
	out := make([]FinalityVote, len(c.votes))
	copy(out, c.votes)
	return out
}

// Equivocations returns every equivocation proof detected so far.
func (c *Collector) Equivocations() []EquivocationProof {
	out := make([]EquivocationProof, len(c.equivocations))
	copy(out, c.equivocations)
	return out
}

// AddVote validates and records a vote, following spec.md §4.2's
// algorithm exactly:
//
//  1. reject wrong round/epoch
//  2. reject non-validators
//  3. fast-fail precommits before the precommit phase, before any
//     signature work
//  4. verify the signature
//  5. detect equivocation against the voter's prior vote for this phase
//  6. record the vote and recompute the phase's best target
//  7. promote the round's state on supermajority
func (c *Collector) AddVote(vote FinalityVote) (bool, error) {
	if vote.Epoch != c.epoch || vote.Round != c.round {
		return false, ErrWrongRound
	}
	if !c.validators.Contains(vote.Voter) {
		return false, ErrNotValidator
	}
	if vote.VoteType == Precommit && c.state == Prevoting {
		return false, ErrNotInPrecommitPhase
	}
	if err := vote.Verify(); err != nil {
		return false, ErrInvalidSignature
	}

	phase := int(vote.VoteType)
	if prior, ok := c.priorVote[phase][vote.Voter]; ok {
		if prior == vote.Target {
			return false, nil // idempotent re-receipt
		}
		// Equivocation: find the earlier vote so the proof carries both.
		var first FinalityVote
		for _, v := range c.votes {
			if v.VoteType == vote.VoteType && v.Voter == vote.Voter {
				first = v
				break
			}
		}
		c.equivocations = append(c.equivocations, EquivocationProof{
			Voter: vote.Voter,
			Vote1: first,
			Vote2: vote,
		})
		return false, &EquivocationError{Voter: vote.Voter}
	}

	c.priorVote[phase][vote.Voter] = vote.Target
	c.votes = append(c.votes, vote)

	if c.tally[phase][vote.Target] == nil {
		c.tally[phase][vote.Target] = newBitset(c.totalVoters)
	}
	c.tally[phase][vote.Target].Set(c.indexOf[vote.Voter])

	c.recomputeBest(phase)
	c.maybeAdvance(phase)

	return true, nil
}

// recomputeBest applies the tie-break rule: highest vote count wins; on
// equal count, the higher BlockNumber wins, deterministically across
// honest nodes.
func (c *Collector) recomputeBest(phase int) {
	var best *Target
	bestCount := -1
	for target, bs := range c.tally[phase] {
		target := target
		count := bs.Count()
		if count > bestCount ||
			(count == bestCount && best != nil && target.Number > best.Number) {
			bestCount = count
			best = &target
		}
	}
	if phase == int(Prevote) {
		c.bestPrevote = best
	} else {
		c.bestPrecommit = best
	}
}

func (c *Collector) maybeAdvance(phase int) {
	total := uint64(c.totalVoters)
	switch {
	case c.state == Prevoting && phase == int(Prevote):
		if c.bestPrevote == nil {
			return
		}
		count := uint64(c.tally[Prevote][*c.bestPrevote].Count())
		if count >= MinSupermajority(total) {
			c.state = Precommitting
		}
	case c.state == Precommitting && phase == int(Precommit):
		if c.bestPrecommit == nil {
			return
		}
		count := uint64(c.tally[Precommit][*c.bestPrecommit].Count())
		if count >= MinSupermajority(total) {
			c.state = Completed
		}
	}
}
