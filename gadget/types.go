// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package gadget implements the finality gadget's external API (spec.md
// §4.5, component C5): block-imported notifications, message dispatch,
// tick, and catch-up, wrapping finality.Manager with the Signer and
// Broadcaster capabilities. Grounded on the teacher's external-facing
// engine shape (wave/fpc.WaveFPC) generalized to GRANDPA's message set.
package gadget

import (
	"github.com/kratos-labs/kratos/primitives"
	"github.com/kratos-labs/kratos/votes"
)

// Signer is the entire signing capability the gadget needs: it signs
// already domain-separated bytes and knows its own validator identity.
// It never exposes a private key.
type Signer interface {
	Sign(domainSeparatedPayload []byte) primitives.Signature
	ValidatorID() primitives.AccountId
}

// Broadcaster enqueues a message for gossip. Broadcast is assumed
// synchronous-from-the-gadget's-perspective: it returns immediately and
// has no failure mode visible to the state machine (spec.md §5).
type Broadcaster interface {
	Broadcast(msg FinalityMessage)
}

// MessageKind tags FinalityMessage's closed variant set (spec.md §6.1).
type MessageKind uint8

const (
	MsgVote MessageKind = iota
	MsgRequestVotes
	MsgFinalized
	MsgCatchUpRequest
	MsgCatchUpResponse
)

func (k MessageKind) String() string {
	switch k {
	case MsgVote:
		return "Vote"
	case MsgRequestVotes:
		return "RequestVotes"
	case MsgFinalized:
		return "Finalized"
	case MsgCatchUpRequest:
		return "CatchUpRequest"
	case MsgCatchUpResponse:
		return "CatchUpResponse"
	default:
		return "Unknown"
	}
}

// RequestVotes asks a peer for every vote it holds for (Epoch, Round).
type RequestVotes struct {
	Epoch primitives.EpochNumber
	Round uint64
}

// FinalizedAnnouncement is broadcast once a round completes.
type FinalizedAnnouncement struct {
	Number primitives.BlockNumber
	Hash   primitives.Hash
	Epoch  primitives.EpochNumber
	Round  uint64
}

// CatchUpRequest asks a peer to replay votes for a round range.
type CatchUpRequest struct {
	FromRound uint64
	ToRound   uint64
	Epoch     primitives.EpochNumber
}

// CatchUpResponse carries votes to replay through AddVote.
type CatchUpResponse struct {
	Votes []votes.FinalityVote
	Epoch primitives.EpochNumber
}

// FinalityMessage is a tagged union, not a dynamically dispatched
// interface (spec.md §9): exactly one of the payload fields is
// meaningful, selected by Kind.
type FinalityMessage struct {
	Kind            MessageKind
	Vote            votes.FinalityVote
	RequestVotes    RequestVotes
	Finalized       FinalizedAnnouncement
	CatchUpRequest  CatchUpRequest
	CatchUpResponse CatchUpResponse
}

// VoteResultKind tags VoteResult's closed variant set.
type VoteResultKind uint8

const (
	ResultAccepted VoteResultKind = iota
	ResultStateChanged
	ResultFinalized
	ResultRejected
)

// VoteResult is returned by OnMessage for Vote messages.
type VoteResult struct {
	Kind            VoteResultKind
	NewState        votes.RoundState
	FinalizedNumber primitives.BlockNumber
	FinalizedHash   primitives.Hash
	Err             error
}
