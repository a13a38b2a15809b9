// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package sidechain implements the chain registry (spec.md §4.6,
// component C6): chain metadata, validator assignment by security mode,
// and activity tracking. Grounded on the teacher's validator-set-as-
// snapshot idiom (formerly validators/validators.go, dropped once its
// BLS/NodeID coupling could not be wired — see DESIGN.md) generalized
// to sidechains keyed by primitives.ChainId.
package sidechain

import (
	"github.com/kratos-labs/kratos/primitives"
	"github.com/kratos-labs/kratos/set"
)

// SecurityMode selects who backs a child chain's validator set.
type SecurityMode uint8

const (
	Inherited SecurityMode = iota
	Shared
	Sovereign
)

func (m SecurityMode) String() string {
	switch m {
	case Inherited:
		return "Inherited"
	case Shared:
		return "Shared"
	case Sovereign:
		return "Sovereign"
	default:
		return "Unknown"
	}
}

// ChainStatus is the purge lifecycle position (spec.md §4.7). Ordered
// so that int comparison matches the spec's monotonicity invariant:
// Active < Inactive < PendingPurge < Frozen < Snapshot <
// WithdrawalWindow < Purged.
type ChainStatus uint8

const (
	Active ChainStatus = iota
	Inactive
	PendingPurge
	Frozen
	Snapshot
	WithdrawalWindow
	Purged
)

func (s ChainStatus) String() string {
	switch s {
	case Active:
		return "Active"
	case Inactive:
		return "Inactive"
	case PendingPurge:
		return "PendingPurge"
	case Frozen:
		return "Frozen"
	case Snapshot:
		return "Snapshot"
	case WithdrawalWindow:
		return "WithdrawalWindow"
	case Purged:
		return "Purged"
	default:
		return "Unknown"
	}
}

// PurgeTrigger names why a chain entered PendingPurge.
type PurgeTrigger uint8

const (
	TriggerNone PurgeTrigger = iota
	TriggerInactivity
	TriggerGovernanceFailure
	TriggerValidatorFraud
	TriggerSecurityInsolvency
	TriggerStateDivergence
)

func (t PurgeTrigger) String() string {
	switch t {
	case TriggerInactivity:
		return "Inactivity"
	case TriggerGovernanceFailure:
		return "GovernanceFailure"
	case TriggerValidatorFraud:
		return "ValidatorFraud"
	case TriggerSecurityInsolvency:
		return "SecurityInsolvency"
	case TriggerStateDivergence:
		return "StateDivergence"
	default:
		return "None"
	}
}

// SidechainInfo is the registry's per-chain record (spec.md §3.3). It is
// exclusively owned by the Registry; the validator set is owned by
// value, not shared, so a snapshot handed to a finality.Round is never
// mutated out from under it.
type SidechainInfo struct {
	ID     primitives.ChainId
	Parent *primitives.ChainId
	Owner  primitives.AccountId
	Name   string
	SecurityMode
	Validators set.Set[primitives.AccountId]
	Status     ChainStatus

	CreatedAt    primitives.BlockNumber
	LastActivity primitives.BlockNumber
	Deposit      primitives.Balance

	PurgeTriggeredAt *primitives.BlockNumber
	PurgeTrigger     PurgeTrigger

	FrozenAt              *primitives.BlockNumber
	SnapshotAt            *primitives.BlockNumber
	WithdrawalWindowStart *primitives.BlockNumber

	GovernanceFailures    uint64
	SlashedValidatorCount uint64

	LastVerifiedStateRoot   *primitives.Hash
	StateDivergenceDetected *primitives.BlockNumber
	SnapshotStateRoot       *primitives.Hash

	WithdrawnAccounts set.Set[primitives.AccountId]
}

// clone returns a deep-enough copy of si so the registry can hand out
// snapshots to callers without risking a caller mutating internal sets.
func (si *SidechainInfo) clone() SidechainInfo {
	out := *si
	out.Validators = set.Of(si.Validators.List()...)
	out.WithdrawnAccounts = set.Of(si.WithdrawnAccounts.List()...)
	return out
}

// HostChainInfo is a Shared-mode parent pool (spec.md §3.3).
type HostChainInfo struct {
	ID            primitives.ChainId
	Creator       primitives.AccountId
	MemberChains  set.Set[primitives.ChainId]
	ValidatorPool set.Set[primitives.AccountId]
	CreatedAt     primitives.BlockNumber
}
