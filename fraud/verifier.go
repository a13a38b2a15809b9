// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fraud

import (
	"github.com/kratos-labs/kratos/config"
	"github.com/kratos-labs/kratos/primitives"
	"github.com/kratos-labs/kratos/purge"
	"github.com/kratos-labs/kratos/sidechain"
)

// Verifier checks fraud proofs and, on a confirmed proof, slashes the
// accused validator through the sidechain registry and escalates to a
// purge trigger once the threshold is crossed (spec.md §4.8).
type Verifier struct {
	registry *sidechain.Registry
	purge    *purge.Machine
	params   config.Parameters
}

// NewVerifier binds a fraud verifier to the registry and purge machine
// it reports into.
func NewVerifier(registry *sidechain.Registry, purgeMachine *purge.Machine, params config.Parameters) *Verifier {
	return &Verifier{registry: registry, purge: purgeMachine, params: params}
}

func (v *Verifier) expired(fraudBlock, currentBlock primitives.BlockNumber) bool {
	return uint64(currentBlock) > uint64(fraudBlock)+v.params.FraudProofExpiryBlocks
}

// VerifyDoubleFinalization checks that a validator signed finality for
// two distinct hashes at the same height (spec.md §4.8). Unlike
// votes.Collector's within-round equivocation check, this proof spans
// rounds or epochs, so it is built over a reduced (number, hash)
// payload rather than a full votes.FinalityVote. Severity is always
// Critical: a validator helping finalize two incompatible histories is
// the safety violation the whole gadget exists to prevent.
func (v *Verifier) VerifyDoubleFinalization(p DoubleFinalizationProof) (Severity, error) {
	if p.HashA == p.HashB {
		return SeverityNone, ErrProofInvalid
	}
	numBytes := func(n primitives.BlockNumber) []byte {
		var b [8]byte
		nv := uint64(n)
		for i := 0; i < 8; i++ {
			b[i] = byte(nv >> (56 - 8*i))
		}
		return b[:]
	}
	payloadA := append(numBytes(p.BlockNumber), p.HashA[:]...)
	payloadB := append(numBytes(p.BlockNumber), p.HashB[:]...)
	if err := primitives.Verify(p.Validator, primitives.DomainFinalityVote, payloadA, p.SigA); err != nil {
		return SeverityNone, ErrProofInvalid
	}
	if err := primitives.Verify(p.Validator, primitives.DomainFinalityVote, payloadB, p.SigB); err != nil {
		return SeverityNone, ErrProofInvalid
	}
	return SeverityCritical, nil
}

// VerifyInvalidStateTransition checks a consecutive-block account delta
// against the transition policy: nonce must never decrease or skip more
// than one, and balance must never grow beyond what a single plausible
// deposit could explain (spec.md §4.8). Severity is Severe.
func (v *Verifier) VerifyInvalidStateTransition(p InvalidStateTransitionProof) (Severity, error) {
	if p.BlockAfter != p.BlockBefore+1 {
		return SeverityNone, ErrProofInvalid
	}
	if p.Before.Account != p.After.Account {
		return SeverityNone, ErrProofInvalid
	}
	if !primitives.VerifyMerkleProof(p.ProofBefore) || !primitives.VerifyMerkleProof(p.ProofAfter) {
		return SeverityNone, ErrProofInvalid
	}

	violates := false
	switch {
	case p.After.Nonce < p.Before.Nonce:
		violates = true
	case p.After.Nonce > p.Before.Nonce+1:
		violates = true
	case p.After.Balance.Cmp(p.Before.Balance) > 0 &&
		p.After.Balance.Sub(p.Before.Balance).Cmp(p.MaxPlausibleDeposit) > 0:
		violates = true
	}
	if !violates {
		return SeverityNone, ErrProofInvalid
	}
	return SeveritySevere, nil
}

// VerifyInvalidExit checks a withdrawal claim against Merkle-proven
// state. PrematureExit and ExpiredWithdrawal are timing violations
// (Severe); InflatedBalance, where the claimed amount exceeds what the
// proof attests to, is Critical; InvalidChainState covers any other
// contradiction (Severe).
func (v *Verifier) VerifyInvalidExit(p InvalidExitProof) (Severity, error) {
	switch p.Kind {
	case PrematureExit:
		if p.CurrentBlock >= p.WindowStart {
			return SeverityNone, ErrProofInvalid
		}
		return SeveritySevere, nil
	case ExpiredWithdrawal:
		if uint64(p.CurrentBlock) <= uint64(p.WindowStart)+v.params.WithdrawalWindowBlocks {
			return SeverityNone, ErrProofInvalid
		}
		return SeveritySevere, nil
	case InflatedBalance:
		if !primitives.VerifyMerkleProof(p.Proof) {
			return SeverityNone, ErrProofInvalid
		}
		if p.ClaimedBalance.Cmp(p.ActualBalance) <= 0 {
			return SeverityNone, ErrProofInvalid
		}
		return SeverityCritical, nil
	case InvalidChainState:
		if primitives.VerifyMerkleProof(p.Proof) {
			return SeverityNone, ErrProofInvalid
		}
		return SeveritySevere, nil
	default:
		return SeverityNone, ErrProofInvalid
	}
}

// ApplyFraudProof slashes accused on chainID and, if the registry
// reports the slash crossed the ValidatorFraud threshold, drives the
// chain into PendingPurge (spec.md §4.8's integration with C6/C7). It
// returns whether a purge was triggered.
func (v *Verifier) ApplyFraudProof(chainID primitives.ChainId, accused primitives.AccountId, fraudBlock, currentBlock primitives.BlockNumber) (purgeTriggered bool, err error) {
	if v.expired(fraudBlock, currentBlock) {
		return false, ErrProofExpired
	}
	crossed, err := v.registry.SlashValidator(chainID, accused)
	if err != nil {
		return false, err
	}
	if !crossed {
		return false, nil
	}
	if err := v.purge.ApplyTrigger(chainID, sidechain.TriggerValidatorFraud, currentBlock); err != nil {
		return false, err
	}
	return true, nil
}
