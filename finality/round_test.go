// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package finality

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kratos-labs/kratos/primitives"
	"github.com/kratos-labs/kratos/set"
	"github.com/kratos-labs/kratos/votes"
)

type testValidator struct {
	id   primitives.AccountId
	priv ed25519.PrivateKey
}

func newValidators(t *testing.T, n int) ([]testValidator, set.Set[primitives.AccountId]) {
	t.Helper()
	vs := make([]testValidator, n)
	ids := make([]primitives.AccountId, n)
	for i := 0; i < n; i++ {
		id, priv, err := primitives.GenerateKey()
		require.NoError(t, err)
		vs[i] = testValidator{id: id, priv: priv}
		ids[i] = id
	}
	return vs, set.Of(ids...)
}

// signerFor returns a SignFunc that raw-signs an already domain-separated
// message, matching how Round.CreatePrevote/CreatePrecommit invoke it.
func signerFor(v testValidator) SignFunc {
	return func(msg []byte) primitives.Signature {
		raw := ed25519.Sign(v.priv, msg)
		var sig primitives.Signature
		copy(sig[:], raw)
		return sig
	}
}

func signVote(v testValidator, vt votes.VoteType, target votes.Target, round uint64, epoch primitives.EpochNumber) votes.FinalityVote {
	vote := votes.FinalityVote{
		VoteType:  vt,
		Target:    target,
		Round:     round,
		Epoch:     epoch,
		Voter:     v.id,
		Timestamp: time.Now(),
	}
	vote.Signature = primitives.Sign(v.priv, primitives.DomainFinalityVote, vote.Payload())
	return vote
}

func TestRoundHappyPath(t *testing.T) {
	require := require.New(t)
	vs, all := newValidators(t, 3)
	ourID := vs[0].id

	r := NewRound(1, 1, all, &ourID, time.Minute)
	target := votes.Target{Number: 10, Hash: primitives.HashBytes([]byte("block-10"))}

	vote, ok := r.CreatePrevote(target.Number, target.Hash, signerFor(vs[0]))
	require.True(ok)
	require.Equal(votes.Prevote, vote.VoteType)
	require.Equal(votes.Prevoting, r.State())

	// A second CreatePrevote call is a no-op: havePrevoted latches.
	_, ok = r.CreatePrevote(target.Number, target.Hash, signerFor(vs[0]))
	require.False(ok)

	accepted, err := r.AddVote(signVote(vs[1], votes.Prevote, target, 1, 1))
	require.NoError(err)
	require.True(accepted)
	require.Equal(votes.Precommitting, r.State())
	require.True(r.ShouldPrecommit())

	pc, ok := r.CreatePrecommit(signerFor(vs[0]))
	require.True(ok)
	require.Equal(target, pc.Target)
	require.False(r.ShouldPrecommit())

	accepted, err = r.AddVote(signVote(vs[1], votes.Precommit, target, 1, 1))
	require.NoError(err)
	require.True(accepted)
	require.Equal(votes.Completed, r.State())

	just, ok := r.CreateJustification()
	require.True(ok)
	require.Equal(target.Number, just.BlockNumber)
	require.Equal(target.Hash, just.BlockHash)
	require.Len(just.Signatures, 2)

	require.True(VerifyJustification(just, 3))
}

func TestRoundCreatePrecommitRequiresBestPrevote(t *testing.T) {
	require := require.New(t)
	vs, all := newValidators(t, 3)
	ourID := vs[0].id
	r := NewRound(1, 1, all, &ourID, time.Minute)

	_, ok := r.CreatePrecommit(signerFor(vs[0]))
	require.False(ok)
}

func TestRoundNonValidatorNeverAuthorsVotes(t *testing.T) {
	require := require.New(t)
	vs, all := newValidators(t, 3)
	r := NewRound(1, 1, all, nil, time.Minute)

	target := votes.Target{Number: 1, Hash: primitives.HashBytes([]byte("b"))}
	_, ok := r.CreatePrevote(target.Number, target.Hash, signerFor(vs[0]))
	require.False(ok)
}

func TestRoundIsTimedOut(t *testing.T) {
	require := require.New(t)
	_, all := newValidators(t, 3)
	r := NewRound(1, 1, all, nil, time.Nanosecond)
	time.Sleep(time.Millisecond)
	require.True(r.IsTimedOut())
}

func TestVerifyJustificationRejectsBelowQuorum(t *testing.T) {
	require := require.New(t)
	vs, _ := newValidators(t, 3)
	target := votes.Target{Number: 1, Hash: primitives.HashBytes([]byte("b"))}
	vote := votes.FinalityVote{VoteType: votes.Precommit, Target: target, Epoch: 1, Voter: vs[0].id}
	vote.Signature = primitives.Sign(vs[0].priv, primitives.DomainFinalityVote, vote.Payload())

	j := &Justification{
		BlockNumber: target.Number,
		BlockHash:   target.Hash,
		Epoch:       1,
		Signatures:  []SignedPrecommit{{Voter: vs[0].id, Signature: vote.Signature}},
	}
	require.False(VerifyJustification(j, 3))
}

func TestVerifyJustificationRejectsBadSignature(t *testing.T) {
	require := require.New(t)
	vs, _ := newValidators(t, 3)
	target := votes.Target{Number: 1, Hash: primitives.HashBytes([]byte("b"))}

	var sig primitives.Signature
	sig[0] = 0xFF
	j := &Justification{
		BlockNumber: target.Number,
		BlockHash:   target.Hash,
		Epoch:       1,
		Signatures:  []SignedPrecommit{{Voter: vs[0].id, Signature: sig}},
	}
	require.False(VerifyJustification(j, 3))
}
