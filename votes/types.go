// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package votes implements the per-round vote collector: prevote and
// precommit aggregation, equivocation detection, and supermajority
// tracking (spec.md §4.2, component C2).
package votes

import (
	"errors"
	"time"

	"github.com/kratos-labs/kratos/primitives"
)

// VoteType distinguishes the two phases of a GRANDPA-style round.
type VoteType uint8

const (
	Prevote VoteType = iota
	Precommit
)

func (t VoteType) String() string {
	if t == Prevote {
		return "prevote"
	}
	return "precommit"
}

// Target identifies the block a vote points at.
type Target struct {
	Number primitives.BlockNumber
	Hash   primitives.Hash
}

// FinalityVote is one validator's signed vote in one round.
//
// Identity for deduplication is (VoteType, Round, Epoch, Voter): the
// tuple an honest voter must never repeat with a different Target.
type FinalityVote struct {
	VoteType  VoteType
	Target    Target
	Round     uint64
	Epoch     primitives.EpochNumber
	Voter     primitives.AccountId
	Signature primitives.Signature
	Timestamp time.Time
}

// Payload is the exact raw byte sequence the voter signs, before domain
// separation is applied by primitives.Sign/Verify. FinalityRound uses
// this to build the bytes it hands to the Signer capability.
func (v FinalityVote) Payload() []byte {
	buf := make([]byte, 0, 1+8+8+32+8)
	buf = append(buf, byte(v.VoteType))
	buf = appendUint64(buf, uint64(v.Target.Number))
	buf = append(buf, v.Target.Hash[:]...)
	buf = appendUint64(buf, v.Round)
	buf = appendUint64(buf, uint64(v.Epoch))
	return buf
}

func appendUint64(buf []byte, v uint64) []byte {
	for i := 0; i < 8; i++ {
		buf = append(buf, byte(v>>(8*(7-i))))
	}
	return buf
}

// Verify checks the vote's signature under the finality-vote domain.
func (v FinalityVote) Verify() error {
	return primitives.Verify(v.Voter, primitives.DomainFinalityVote, v.Payload(), v.Signature)
}

// RoundState is the round's phase state machine: Prevoting ->
// Precommitting -> Completed, with a sink state Failed. A round never
// returns to a previous state and Completed/Failed are terminal.
type RoundState uint8

const (
	Prevoting RoundState = iota
	Precommitting
	Completed
	Failed
)

func (s RoundState) String() string {
	switch s {
	case Prevoting:
		return "prevoting"
	case Precommitting:
		return "precommitting"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// EquivocationProof is evidence that voter signed two conflicting votes
// of the same type in the same (epoch, round).
type EquivocationProof struct {
	Voter primitives.AccountId
	Vote1 FinalityVote
	Vote2 FinalityVote
}

// VoteError is the narrow error taxonomy a caller of AddVote must act on
// (spec.md §7).
var (
	ErrWrongRound          = errors.New("votes: vote targets a different round or epoch")
	ErrNotValidator        = errors.New("votes: voter is not in the validator set")
	ErrInvalidSignature    = primitives.ErrInvalidSignature
	ErrNotInPrecommitPhase = errors.New("votes: precommit received before precommit phase")
)

// EquivocationError wraps the voter who equivocated; callers pattern
// match with errors.As.
type EquivocationError struct {
	Voter primitives.AccountId
}

func (e *EquivocationError) Error() string {
	return "votes: equivocation detected for voter " + e.Voter.String()
}
