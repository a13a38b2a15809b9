// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fraud implements the fraud proof verifier (spec.md §4.8,
// component C8): double-finalization, invalid-state-transition, and
// invalid-exit proofs, each mapped to a severity and fed back into the
// sidechain registry's slashing counter. Grounded on the teacher's
// pkg/wire/credentials.go proof-severity-by-type pattern.
package fraud

import (
	"errors"

	"github.com/kratos-labs/kratos/primitives"
)

// Severity is how harshly a confirmed proof should be treated by an
// external economic-slashing policy (spec.md §4.8); this package only
// classifies proofs, it never moves funds.
type Severity uint8

const (
	SeverityNone Severity = iota
	SeveritySevere
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeveritySevere:
		return "Severe"
	case SeverityCritical:
		return "Critical"
	default:
		return "None"
	}
}

// InvalidExitKind selects an InvalidExitProof's sub-variant.
type InvalidExitKind uint8

const (
	PrematureExit InvalidExitKind = iota
	ExpiredWithdrawal
	InflatedBalance
	InvalidChainState
)

// Errors surfaced by verification (spec.md §7): malformed or
// non-qualifying proofs are rejected, never panics.
var (
	ErrProofInvalid = errors.New("fraud: proof does not demonstrate fraud")
	ErrProofExpired = errors.New("fraud: proof expired")
)

// AccountSnapshot is the (nonce, balance) pair an InvalidStateTransition
// proof compares across two blocks.
type AccountSnapshot struct {
	Account primitives.AccountId
	Nonce   uint64
	Balance primitives.Balance
}

// DoubleFinalizationProof shows a validator signed finality for two
// different block hashes at the same height (spec.md §4.8).
type DoubleFinalizationProof struct {
	Validator    primitives.AccountId
	BlockNumber  primitives.BlockNumber
	HashA, HashB primitives.Hash
	SigA, SigB   primitives.Signature
}

// InvalidStateTransitionProof shows a (before, after) account snapshot
// pair, each proven against its own block by a Merkle proof, whose
// delta violates the transition policy (spec.md §4.8).
type InvalidStateTransitionProof struct {
	Before, After           AccountSnapshot
	BlockBefore, BlockAfter primitives.BlockNumber
	ProofBefore, ProofAfter primitives.MerkleProof
	// MaxPlausibleDeposit bounds how much a balance may legitimately
	// increase in one block (e.g. a single deposit transaction); any
	// larger increase cannot be explained by ordinary activity.
	MaxPlausibleDeposit primitives.Balance
}

// InvalidExitProof shows a withdrawal claim contradicted by Merkle-
// proven state (spec.md §4.8).
type InvalidExitProof struct {
	Kind           InvalidExitKind
	Account        primitives.AccountId
	ClaimedBalance primitives.Balance
	Proof          primitives.MerkleProof
	ActualBalance  primitives.Balance
	FraudBlock     primitives.BlockNumber
	WindowStart    primitives.BlockNumber
	CurrentBlock   primitives.BlockNumber
}
