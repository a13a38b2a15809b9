// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package warpsync implements the warp-sync snapshot producer and
// consumer (spec.md §4.9, component C9): chunked state with per-chunk
// Merkle proofs, allowing a new node to bootstrap from a verified
// snapshot plus header replay instead of full block re-execution.
// Grounded on primitives/merkle.go's dual raw/pre-hashed verification,
// generalized from a single tree to a chunked state root.
package warpsync

import (
	"errors"

	"github.com/kratos-labs/kratos/primitives"
)

// AccountInfo is the per-account state a snapshot chunk carries.
type AccountInfo struct {
	Account primitives.AccountId
	Nonce   uint64
	Balance primitives.Balance
}

// Chunk is a contiguous slice of accounts plus the proof that its hash
// belongs under the snapshot's state root (spec.md §4.9).
type Chunk struct {
	Index     uint64
	Accounts  []AccountInfo
	ChunkHash primitives.Hash
	Proof     []primitives.Hash // sibling chain, leaf to root
}

// Header describes a snapshot: its state root and how many chunks it
// is split into.
type Header struct {
	StateRoot            primitives.Hash
	NumChunks            uint64
	BlockNumber          primitives.BlockNumber
	FromHeader, ToHeader primitives.BlockNumber
}

// Error taxonomy (spec.md §7, WarpSyncError).
var (
	ErrNoPeers            = errors.New("warpsync: no peers")
	ErrInvalidStateRoot   = errors.New("warpsync: invalid state root")
	ErrSnapshotTooOld     = errors.New("warpsync: snapshot too old")
	ErrTimeout            = errors.New("warpsync: timeout")
	ErrInvalidChunk       = errors.New("warpsync: invalid chunk")
	ErrInvalidMerkleProof = errors.New("warpsync: invalid merkle proof")
)

// ConsumerStateKind is the consumer's state machine phase (spec.md
// §4.9): Inactive -> RequestingSnapshot -> DownloadingState ->
// VerifyingState -> DownloadingHeaders -> Complete, with a terminal
// Failed sink reachable from any phase.
type ConsumerStateKind uint8

const (
	Inactive ConsumerStateKind = iota
	RequestingSnapshot
	DownloadingState
	VerifyingState
	DownloadingHeaders
	Complete
	Failed
)

func (k ConsumerStateKind) String() string {
	switch k {
	case Inactive:
		return "inactive"
	case RequestingSnapshot:
		return "requesting_snapshot"
	case DownloadingState:
		return "downloading_state"
	case VerifyingState:
		return "verifying_state"
	case DownloadingHeaders:
		return "downloading_headers"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
