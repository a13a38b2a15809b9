// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sidechain

import (
	"encoding/binary"

	"github.com/kratos-labs/kratos/config"
	"github.com/kratos-labs/kratos/kvstore"
	"github.com/kratos-labs/kratos/primitives"
	"github.com/kratos-labs/kratos/set"
)

// Registry owns every SidechainInfo and HostChainInfo plus the reverse
// index from a Shared child to its host (spec.md §4.6). It is single-
// owner and uses no internal locks, matching the Finality Gadget's
// concurrency model (spec.md §5): callers serialize access, typically
// by wrapping the registry in a mutex at the integration layer.
type Registry struct {
	params config.Parameters

	chains      map[primitives.ChainId]*SidechainInfo
	hosts       map[primitives.ChainId]*HostChainInfo
	chainToHost map[primitives.ChainId]primitives.ChainId
	nextChainID uint32
}

// NewRegistry creates an empty registry. The root chain (ChainId 0) is
// reserved and never allocated by CreateSidechain.
func NewRegistry(params config.Parameters) *Registry {
	return &Registry{
		params:      params,
		chains:      make(map[primitives.ChainId]*SidechainInfo),
		hosts:       make(map[primitives.ChainId]*HostChainInfo),
		chainToHost: make(map[primitives.ChainId]primitives.ChainId),
		nextChainID: 1,
	}
}

// Chain returns a defensive copy of a chain's record.
func (r *Registry) Chain(id primitives.ChainId) (SidechainInfo, bool) {
	si, ok := r.chains[id]
	if !ok {
		return SidechainInfo{}, false
	}
	return si.clone(), true
}

// Host returns a host chain's record.
func (r *Registry) Host(id primitives.ChainId) (HostChainInfo, bool) {
	h, ok := r.hosts[id]
	if !ok {
		return HostChainInfo{}, false
	}
	out := *h
	out.MemberChains = set.Of(h.MemberChains.List()...)
	out.ValidatorPool = set.Of(h.ValidatorPool.List()...)
	return out, true
}

// CreateHostChain registers a host with an initial validator pool.
func (r *Registry) CreateHostChain(creator primitives.AccountId, initialPool set.Set[primitives.AccountId], currentBlock primitives.BlockNumber) primitives.ChainId {
	id := primitives.ChainId(r.nextChainID)
	r.nextChainID++
	r.hosts[id] = &HostChainInfo{
		ID:            id,
		Creator:       creator,
		MemberChains:  set.Set[primitives.ChainId]{},
		ValidatorPool: set.Of(initialPool.List()...),
		CreatedAt:     currentBlock,
	}
	return id
}

// CreateParams bundles CreateSidechain's inputs (spec.md §4.6).
type CreateParams struct {
	Owner        primitives.AccountId
	Name         string
	Parent       *primitives.ChainId
	SecurityMode SecurityMode
	HostID       *primitives.ChainId
	Deposit      primitives.Balance
	CurrentBlock primitives.BlockNumber
}

// CreateSidechain validates inputs, allocates a fresh ChainId, and (for
// non-Sovereign chains) assigns the initial validator set from the
// parent or host pool (spec.md §4.6).
func (r *Registry) CreateSidechain(p CreateParams) (primitives.ChainId, error) {
	required := r.requiredDeposit(p.SecurityMode, p.HostID)
	if p.Deposit.Cmp(required) < 0 {
		return 0, ErrInsufficientDeposit
	}

	var parentChain *SidechainInfo
	if p.SecurityMode == Inherited {
		if p.Parent == nil {
			return 0, ErrParentNotFound
		}
		pc, ok := r.chains[*p.Parent]
		if !ok {
			return 0, ErrParentNotFound
		}
		parentChain = pc
	}

	var host *HostChainInfo
	if p.SecurityMode == Shared {
		if p.HostID == nil {
			return 0, ErrHostNotFound
		}
		h, ok := r.hosts[*p.HostID]
		if !ok {
			return 0, ErrHostNotFound
		}
		host = h
	}

	id := primitives.ChainId(r.nextChainID)
	r.nextChainID++

	si := &SidechainInfo{
		ID:                id,
		Parent:            p.Parent,
		Owner:             p.Owner,
		Name:              p.Name,
		SecurityMode:      p.SecurityMode,
		Validators:        set.Set[primitives.AccountId]{},
		Status:            Active,
		CreatedAt:         p.CurrentBlock,
		LastActivity:      p.CurrentBlock,
		Deposit:           p.Deposit,
		WithdrawnAccounts: set.Set[primitives.AccountId]{},
	}
	r.chains[id] = si

	switch p.SecurityMode {
	case Inherited:
		si.Validators = set.Of(parentChain.Validators.List()...)
	case Shared:
		si.Validators = set.Of(host.ValidatorPool.List()...)
		host.MemberChains.Add(id)
		r.chainToHost[id] = *p.HostID
	case Sovereign:
		// no-op: validator set is mutated only through explicit operations.
	}

	return id, nil
}

// requiredDeposit computes the minimum deposit per spec.md §4.6: Shared
// scales with the host's current member count at creation time.
func (r *Registry) requiredDeposit(mode SecurityMode, hostID *primitives.ChainId) primitives.Balance {
	switch mode {
	case Inherited:
		return primitives.NewBalance(r.params.InheritedDeposit)
	case Sovereign:
		return primitives.NewBalance(r.params.SovereignDeposit)
	case Shared:
		// spec.md §4.6: required deposit for a Shared-mode child scales
		// with the host's CURRENT member count at the time of the
		// creation request (before this chain joins) — so a host's
		// first affiliate requires no deposit floor from this rule.
		memberCount := uint64(0)
		if hostID != nil {
			if h, ok := r.hosts[*hostID]; ok {
				memberCount = uint64(h.MemberChains.Len())
			}
		}
		return primitives.NewBalance(r.params.SharedDepositPerMember).MulSmall(memberCount)
	default:
		return primitives.NewBalance(0)
	}
}

// RecordActivity updates last_activity and flips Inactive back to
// Active (spec.md §4.6).
func (r *Registry) RecordActivity(id primitives.ChainId, block primitives.BlockNumber) error {
	si, ok := r.chains[id]
	if !ok {
		return ErrChainNotFound
	}
	si.LastActivity = block
	if si.Status == Inactive {
		si.Status = Active
	}
	return nil
}

// UpdateHostPool mutates a host's validator pool and re-copies it into
// every affiliated Shared-mode child (spec.md §4.6).
func (r *Registry) UpdateHostPool(hostID primitives.ChainId, newPool set.Set[primitives.AccountId]) error {
	host, ok := r.hosts[hostID]
	if !ok {
		return ErrHostNotFound
	}
	host.ValidatorPool = set.Of(newPool.List()...)
	for _, memberID := range host.MemberChains.List() {
		if child, ok := r.chains[memberID]; ok && child.SecurityMode == Shared {
			child.Validators = set.Of(host.ValidatorPool.List()...)
		}
	}
	return nil
}

// AssignValidators re-derives a chain's validator set from its source
// of truth: Inherited from the parent, Shared from the host pool,
// Sovereign is a no-op (spec.md §4.6).
func (r *Registry) AssignValidators(id primitives.ChainId) error {
	si, ok := r.chains[id]
	if !ok {
		return ErrChainNotFound
	}
	switch si.SecurityMode {
	case Inherited:
		if si.Parent == nil {
			return ErrParentNotFound
		}
		parent, ok := r.chains[*si.Parent]
		if !ok {
			return ErrParentNotFound
		}
		si.Validators = set.Of(parent.Validators.List()...)
	case Shared:
		hostID, ok := r.chainToHost[id]
		if !ok {
			return ErrHostNotFound
		}
		host, ok := r.hosts[hostID]
		if !ok {
			return ErrHostNotFound
		}
		si.Validators = set.Of(host.ValidatorPool.List()...)
	case Sovereign:
		// no-op
	}
	return nil
}

// SlashValidator increments a chain's slashed-validator counter. It is
// invoked by the fraud proof verifier (component C8) and returns
// whether the new count crosses the ValidatorFraud threshold, in which
// case the caller should apply the purge trigger.
func (r *Registry) SlashValidator(id primitives.ChainId, _ primitives.AccountId) (crossedThreshold bool, err error) {
	si, ok := r.chains[id]
	if !ok {
		return false, ErrChainNotFound
	}
	si.SlashedValidatorCount++
	total := uint64(si.Validators.Len())
	if total == 0 {
		return false, nil
	}
	crossed := si.SlashedValidatorCount*100 >= total*r.params.ValidatorFraudSlashedPercent
	return crossed, nil
}

// MutateForPurge gives the purge state machine controlled write access
// to fields it owns the transitions for, without exposing the full map
// to external packages. It is the seam between component C6 and C7.
func (r *Registry) MutateForPurge(id primitives.ChainId, f func(*SidechainInfo)) error {
	si, ok := r.chains[id]
	if !ok {
		return ErrChainNotFound
	}
	f(si)
	return nil
}

// RemoveFromHost removes a purged chain from its host's member set
// (spec.md §4.7, WithdrawalWindow → Purged).
func (r *Registry) RemoveFromHost(id primitives.ChainId) {
	hostID, ok := r.chainToHost[id]
	if !ok {
		return
	}
	if host, ok := r.hosts[hostID]; ok {
		host.MemberChains.Remove(id)
	}
}

// AllChainIDs returns every registered chain id, for the purge sweep's
// prefix-iteration equivalent.
func (r *Registry) AllChainIDs() []primitives.ChainId {
	ids := make([]primitives.ChainId, 0, len(r.chains))
	for id := range r.chains {
		ids = append(ids, id)
	}
	return ids
}

// PersistChain writes a chain's name, status, and last-activity block
// under kvstore's chain:<u32> namespace (spec.md §6.2), so a restarted
// node can rebuild its chain list via store.IteratePrefix(ChainPrefix)
// without replaying every CreateSidechain call.
func (r *Registry) PersistChain(store kvstore.Store, id primitives.ChainId) error {
	si, ok := r.chains[id]
	if !ok {
		return ErrChainNotFound
	}
	store.Put(kvstore.ChainKey(id), encodeChainRecord(si))
	return nil
}

// encodeChainRecord serializes the fields a restarted node needs to
// know a chain exists and where it stands: name length, name bytes,
// status, last_activity. Full SidechainInfo reconstruction (validator
// sets, purge timestamps) is rebuilt from the finality/purge logs that
// produced it, not from this summary record.
func encodeChainRecord(si *SidechainInfo) []byte {
	name := []byte(si.Name)
	out := make([]byte, 0, 4+len(name)+1+8)
	var nameLen [4]byte
	binary.BigEndian.PutUint32(nameLen[:], uint32(len(name)))
	out = append(out, nameLen[:]...)
	out = append(out, name...)
	out = append(out, byte(si.Status))
	var lastActivity [8]byte
	binary.BigEndian.PutUint64(lastActivity[:], uint64(si.LastActivity))
	out = append(out, lastActivity[:]...)
	return out
}
