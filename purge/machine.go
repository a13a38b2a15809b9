// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package purge implements the sidechain purge state machine (spec.md
// §4.7, component C7): trigger detection, the five-state purge
// progression, withdrawal windows, and Merkle-verified exit. Grounded
// on the teacher's beam state-progression idiom, generalized from a
// two-state linear finalizer to the spec's seven-state lifecycle.
package purge

import (
	"github.com/kratos-labs/kratos/config"
	"github.com/kratos-labs/kratos/kvstore"
	"github.com/kratos-labs/kratos/primitives"
	"github.com/kratos-labs/kratos/sidechain"
)

// Machine drives purge transitions over a sidechain.Registry. It holds
// no chain state of its own beyond the last sweep block, so it can be
// rebuilt from the registry's persisted state on startup.
type Machine struct {
	registry         *sidechain.Registry
	params           config.Parameters
	lastSweepAt      primitives.BlockNumber
	sweptAtLeastOnce bool
}

// NewMachine binds a purge machine to a registry and its parameters.
func NewMachine(registry *sidechain.Registry, params config.Parameters) *Machine {
	return &Machine{registry: registry, params: params}
}

// CheckPurgeTriggers evaluates the trigger table (spec.md §4.7) against
// a chain currently Active or Inactive. It returns TriggerNone if no
// condition holds or the chain is past that stage.
func (m *Machine) CheckPurgeTriggers(chain sidechain.SidechainInfo, currentBlock primitives.BlockNumber) sidechain.PurgeTrigger {
	if chain.Status != sidechain.Active && chain.Status != sidechain.Inactive {
		return sidechain.TriggerNone
	}
	if uint64(currentBlock)-uint64(chain.LastActivity) > m.params.InactivityThresholdBlocks {
		return sidechain.TriggerInactivity
	}
	if chain.GovernanceFailures >= m.params.GovernanceFailureThreshold {
		return sidechain.TriggerGovernanceFailure
	}
	total := uint64(chain.Validators.Len())
	if total > 0 && chain.SlashedValidatorCount*100 >= total*m.params.ValidatorFraudSlashedPercent {
		return sidechain.TriggerValidatorFraud
	}
	if chain.StateDivergenceDetected != nil {
		return sidechain.TriggerStateDivergence
	}
	return sidechain.TriggerNone
}

// ApplyTrigger transitions a chain to PendingPurge under the given
// trigger. A chain already past Active/Inactive cannot be re-triggered.
func (m *Machine) ApplyTrigger(chainID primitives.ChainId, trigger sidechain.PurgeTrigger, now primitives.BlockNumber) error {
	return m.registry.MutateForPurge(chainID, func(si *sidechain.SidechainInfo) {
		if si.Status != sidechain.Active && si.Status != sidechain.Inactive {
			return
		}
		si.Status = sidechain.PendingPurge
		si.PurgeTriggeredAt = &now
		si.PurgeTrigger = trigger
	})
}

// AdvancePurgeState performs one idempotent, time-gated transition step
// (spec.md §4.7). It is a no-op if the chain is not ready to advance.
func (m *Machine) AdvancePurgeState(chainID primitives.ChainId, now primitives.BlockNumber) error {
	chain, ok := m.registry.Chain(chainID)
	if !ok {
		return sidechain.ErrChainNotFound
	}
	return m.advanceOne(&chain, now)
}

// advanceOne writes a fetched snapshot's next state back through
// MutateForPurge. It returns only the registry's error, and nil without
// a change when the chain is not ready to advance; callers re-read the
// chain to see whether its status moved.
func (m *Machine) advanceOne(chain *sidechain.SidechainInfo, now primitives.BlockNumber) error {
	switch chain.Status {
	case sidechain.PendingPurge:
		if chain.PurgeTriggeredAt == nil || uint64(now) < uint64(*chain.PurgeTriggeredAt)+m.params.PurgeWarningBlocks {
			return nil
		}
		return m.registry.MutateForPurge(chain.ID, func(si *sidechain.SidechainInfo) {
			si.Status = sidechain.Frozen
			si.FrozenAt = &now
		})
	case sidechain.Frozen:
		return m.registry.MutateForPurge(chain.ID, func(si *sidechain.SidechainInfo) {
			si.Status = sidechain.Snapshot
			si.SnapshotAt = &now
			if si.LastVerifiedStateRoot != nil {
				root := *si.LastVerifiedStateRoot
				si.SnapshotStateRoot = &root
			}
		})
	case sidechain.Snapshot:
		return m.registry.MutateForPurge(chain.ID, func(si *sidechain.SidechainInfo) {
			si.Status = sidechain.WithdrawalWindow
			si.WithdrawalWindowStart = &now
		})
	case sidechain.WithdrawalWindow:
		if chain.WithdrawalWindowStart == nil || uint64(now) < uint64(*chain.WithdrawalWindowStart)+m.params.WithdrawalWindowBlocks {
			return nil
		}
		if err := m.registry.MutateForPurge(chain.ID, func(si *sidechain.SidechainInfo) {
			si.Status = sidechain.Purged
		}); err != nil {
			return err
		}
		m.registry.RemoveFromHost(chain.ID)
		return nil
	}
	return nil
}

// AutoPurge is the periodic sweep (spec.md §4.7): it detects triggers
// on Active/Inactive chains and drives multi-step immediate
// transitions (Frozen→Snapshot→WithdrawalWindow) in one call, bounded
// to maxSteps iterations per chain to guard against clock anomalies. It
// is a no-op if called before the sweep cadence has elapsed, except on
// its very first invocation.
func (m *Machine) AutoPurge(now primitives.BlockNumber) []primitives.ChainId {
	if m.sweptAtLeastOnce && uint64(now)-uint64(m.lastSweepAt) < m.params.AutoPurgeSweepCadence {
		return nil
	}
	m.lastSweepAt = now
	m.sweptAtLeastOnce = true

	var touched []primitives.ChainId
	for _, id := range m.registry.AllChainIDs() {
		chain, ok := m.registry.Chain(id)
		if !ok {
			continue
		}
		if trig := m.CheckPurgeTriggers(chain, now); trig != sidechain.TriggerNone {
			_ = m.ApplyTrigger(id, trig, now)
			touched = append(touched, id)
			chain, _ = m.registry.Chain(id)
		}
		advanced := false
		for i := 0; i < m.params.AutoPurgeMaxSteps; i++ {
			before := chain.Status
			if err := m.advanceOne(&chain, now); err != nil {
				break
			}
			chain, ok = m.registry.Chain(id)
			if !ok || chain.Status == before {
				break
			}
			advanced = true
		}
		if advanced && !containsChain(touched, id) {
			touched = append(touched, id)
		}
	}
	return touched
}

func containsChain(ids []primitives.ChainId, id primitives.ChainId) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

// AuditPurged persists every Purged chain's final record to store
// (spec.md §6.2's chain:<u32> namespace), for retention after the
// in-memory registry's validator sets and purge timestamps are no
// longer needed. Intended to be called after AutoPurge with the ids it
// returned, not on every sweep.
func (m *Machine) AuditPurged(store kvstore.Store, touched []primitives.ChainId) int {
	audited := 0
	for _, id := range touched {
		chain, ok := m.registry.Chain(id)
		if !ok || chain.Status != sidechain.Purged {
			continue
		}
		if err := m.registry.PersistChain(store, id); err == nil {
			audited++
		}
	}
	return audited
}
