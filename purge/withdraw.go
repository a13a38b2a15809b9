// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package purge

import (
	"github.com/kratos-labs/kratos/primitives"
	"github.com/kratos-labs/kratos/sidechain"
)

// leafFor deterministically serializes (account, balance) as the
// Merkle leaf a withdrawal proof must be built over.
func leafFor(account primitives.AccountId, balance primitives.Balance) []byte {
	out := make([]byte, 0, 32+16)
	out = append(out, account[:]...)
	var buf [16]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(balance.Hi >> (56 - 8*i))
		buf[8+i] = byte(balance.Lo >> (56 - 8*i))
	}
	return append(out, buf[:]...)
}

// WithdrawFromPurgedChain returns the owner's full deposit once the
// chain has reached WithdrawalWindow (spec.md §4.7 path 1).
func (m *Machine) WithdrawFromPurgedChain(chainID primitives.ChainId, owner primitives.AccountId) (primitives.Balance, error) {
	chain, ok := m.registry.Chain(chainID)
	if !ok {
		return primitives.Balance{}, sidechain.ErrChainNotFound
	}
	if chain.WithdrawnAccounts.Contains(owner) {
		return primitives.Balance{}, sidechain.ErrAlreadyWithdrawn
	}
	if chain.Status != sidechain.WithdrawalWindow {
		return primitives.Balance{}, sidechain.ErrInvalidState
	}
	if chain.Owner != owner {
		return primitives.Balance{}, sidechain.ErrUnauthorized
	}
	amount := chain.Deposit
	err := m.registry.MutateForPurge(chainID, func(si *sidechain.SidechainInfo) {
		si.WithdrawnAccounts.Add(owner)
	})
	return amount, err
}

// WithdrawWithProof lets a non-owner recover a balance proven to be
// their state at the snapshot (spec.md §4.7 path 2).
func (m *Machine) WithdrawWithProof(chainID primitives.ChainId, account primitives.AccountId, claimedBalance primitives.Balance, proof primitives.MerkleProof) (primitives.Balance, error) {
	chain, ok := m.registry.Chain(chainID)
	if !ok {
		return primitives.Balance{}, sidechain.ErrChainNotFound
	}
	if chain.WithdrawnAccounts.Contains(account) {
		return primitives.Balance{}, sidechain.ErrAlreadyWithdrawn
	}
	if chain.Status != sidechain.WithdrawalWindow {
		return primitives.Balance{}, sidechain.ErrInvalidState
	}
	if chain.SnapshotStateRoot == nil {
		return primitives.Balance{}, sidechain.ErrNoSnapshotStateRoot
	}
	if proof.Root != *chain.SnapshotStateRoot {
		return primitives.Balance{}, sidechain.ErrInvalidMerkleProof
	}
	wantLeaf := leafFor(account, claimedBalance)
	if string(proof.Leaf) != string(wantLeaf) {
		return primitives.Balance{}, sidechain.ErrInvalidMerkleProof
	}
	if !primitives.VerifyMerkleProof(proof) {
		return primitives.Balance{}, sidechain.ErrInvalidMerkleProof
	}
	err := m.registry.MutateForPurge(chainID, func(si *sidechain.SidechainInfo) {
		si.WithdrawnAccounts.Add(account)
	})
	return claimedBalance, err
}

// EmergencyExit is permitted regardless of chain status because exit
// is a constitutional right (spec.md §4.7 path 3). The owner always
// recovers the full deposit. A non-owner needs a Merkle proof: no
// proof at all always pays 50% slippage; with a proof, a valid one
// against the snapshot pays in full, an invalid one pays 50%, and no
// snapshot yet (nothing to prove against) pays in full on good faith.
func (m *Machine) EmergencyExit(chainID primitives.ChainId, account primitives.AccountId, claimedBalance primitives.Balance, proof *primitives.MerkleProof) (primitives.Balance, error) {
	chain, ok := m.registry.Chain(chainID)
	if !ok {
		return primitives.Balance{}, sidechain.ErrChainNotFound
	}
	if chain.WithdrawnAccounts.Contains(account) {
		return primitives.Balance{}, sidechain.ErrAlreadyWithdrawn
	}

	var amount primitives.Balance
	if account == chain.Owner {
		amount = chain.Deposit
	} else {
		switch {
		case proof == nil:
			amount = claimedBalance.MulSmall(50).DivSmall(100)
		case chain.SnapshotStateRoot == nil:
			amount = claimedBalance
		case proof.Root == *chain.SnapshotStateRoot &&
			string(proof.Leaf) == string(leafFor(account, claimedBalance)) &&
			primitives.VerifyMerkleProof(*proof):
			amount = claimedBalance
		default:
			amount = claimedBalance.MulSmall(50).DivSmall(100)
		}
	}

	err := m.registry.MutateForPurge(chainID, func(si *sidechain.SidechainInfo) {
		si.WithdrawnAccounts.Add(account)
	})
	return amount, err
}
