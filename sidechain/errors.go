// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sidechain

import "errors"

// ChainError variants (spec.md §7). The taxonomy is deliberately narrow:
// only conditions a caller must act on are surfaced.
var (
	ErrInsufficientDeposit = errors.New("sidechain: insufficient deposit")
	ErrChainNotFound       = errors.New("sidechain: chain not found")
	ErrParentNotFound      = errors.New("sidechain: parent chain not found")
	ErrHostNotFound        = errors.New("sidechain: host chain not found")
	ErrInvalidSecurityMode = errors.New("sidechain: invalid security mode for operation")
	ErrInvalidState        = errors.New("sidechain: invalid chain state for operation")
	ErrFraudProofInvalid   = errors.New("sidechain: fraud proof invalid")
	ErrFraudProofExpired   = errors.New("sidechain: fraud proof expired")
	ErrUnauthorized        = errors.New("sidechain: unauthorized")
	ErrAlreadyWithdrawn    = errors.New("sidechain: already withdrawn")
	ErrRequiresMerkleProof = errors.New("sidechain: requires merkle proof")
	ErrNoSnapshotStateRoot = errors.New("sidechain: no snapshot state root")
	ErrInvalidMerkleProof  = errors.New("sidechain: invalid merkle proof")
)
