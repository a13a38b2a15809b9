// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package votes

import (
	"crypto/ed25519"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kratos-labs/kratos/primitives"
	"github.com/kratos-labs/kratos/set"
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

func sign(v testValidator, vt VoteType, target Target, round uint64, epoch primitives.EpochNumber) FinalityVote {
	vote := FinalityVote{
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

func TestCollectorSupermajorityPromotesPhases(t *testing.T) {
	require := require.New(t)
	vs, all := newValidators(t, 3)
	c := NewCollector(1, 1, all)

	target := Target{Number: 1, Hash: primitives.HashBytes([]byte("b1"))}

	accepted, err := c.AddVote(sign(vs[0], Prevote, target, 1, 1))
	require.NoError(err)
	require.True(accepted)
	require.Equal(Prevoting, c.State())

	accepted, err = c.AddVote(sign(vs[1], Prevote, target, 1, 1))
	require.NoError(err)
	require.True(accepted)
	require.Equal(Precommitting, c.State())

	accepted, err = c.AddVote(sign(vs[0], Precommit, target, 1, 1))
	require.NoError(err)
	require.True(accepted)
	require.Equal(Precommitting, c.State())

	accepted, err = c.AddVote(sign(vs[1], Precommit, target, 1, 1))
	require.NoError(err)
	require.True(accepted)
	require.Equal(Completed, c.State())

	finalTarget, ok := c.FinalizedTarget()
	require.True(ok)
	require.Equal(target, finalTarget)
}

func TestCollectorRejectsWrongRound(t *testing.T) {
	require := require.New(t)
	vs, all := newValidators(t, 3)
	c := NewCollector(1, 1, all)

	vote := sign(vs[0], Prevote, Target{Number: 1}, 2, 1)
	_, err := c.AddVote(vote)
	require.ErrorIs(err, ErrWrongRound)
}

func TestCollectorRejectsNonValidator(t *testing.T) {
	require := require.New(t)
	_, all := newValidators(t, 3)
	c := NewCollector(1, 1, all)

	outsider, priv, err := primitives.GenerateKey()
	require.NoError(err)
	vote := FinalityVote{VoteType: Prevote, Target: Target{Number: 1}, Round: 1, Epoch: 1, Voter: outsider}
	vote.Signature = primitives.Sign(priv, primitives.DomainFinalityVote, vote.Payload())

	_, err = c.AddVote(vote)
	require.ErrorIs(err, ErrNotValidator)
}

func TestCollectorFastFailsPrecommitBeforePhase(t *testing.T) {
	require := require.New(t)
	vs, all := newValidators(t, 3)
	c := NewCollector(1, 1, all)

	vote := sign(vs[0], Precommit, Target{Number: 1}, 1, 1)
	_, err := c.AddVote(vote)
	require.ErrorIs(err, ErrNotInPrecommitPhase)
}

func TestCollectorDetectsEquivocation(t *testing.T) {
	require := require.New(t)
	vs, all := newValidators(t, 3)
	c := NewCollector(1, 1, all)

	h1 := primitives.HashBytes([]byte("b1"))
	h1b := primitives.HashBytes([]byte("b1-fork"))

	_, err := c.AddVote(sign(vs[1], Prevote, Target{Number: 1, Hash: h1}, 1, 1))
	require.NoError(err)

	_, err = c.AddVote(sign(vs[1], Prevote, Target{Number: 1, Hash: h1b}, 1, 1))
	var equiv *EquivocationError
	require.True(errors.As(err, &equiv))
	require.Equal(vs[1].id, equiv.Voter)

	proofs := c.Equivocations()
	require.Len(proofs, 1)
	require.Equal(h1, proofs[0].Vote1.Target.Hash)
	require.Equal(h1b, proofs[0].Vote2.Target.Hash)
}

func TestCollectorDuplicateVoteIsIdempotent(t *testing.T) {
	require := require.New(t)
	vs, all := newValidators(t, 3)
	c := NewCollector(1, 1, all)

	target := Target{Number: 1, Hash: primitives.HashBytes([]byte("b1"))}
	vote := sign(vs[0], Prevote, target, 1, 1)

	accepted, err := c.AddVote(vote)
	require.NoError(err)
	require.True(accepted)

	accepted, err = c.AddVote(vote)
	require.NoError(err)
	require.False(accepted)
}

func TestCollectorRejectsBadSignature(t *testing.T) {
	require := require.New(t)
	vs, all := newValidators(t, 3)
	c := NewCollector(1, 1, all)

	vote := sign(vs[0], Prevote, Target{Number: 1}, 1, 1)
	vote.Signature[0] ^= 0xFF

	_, err := c.AddVote(vote)
	require.ErrorIs(err, ErrInvalidSignature)
}

func TestMinSupermajority(t *testing.T) {
	require := require.New(t)
	require.Equal(uint64(2), MinSupermajority(3))
	require.Equal(uint64(3), MinSupermajority(4))
	require.Equal(uint64(4), MinSupermajority(5))
	require.Equal(uint64(67), MinSupermajority(100))
}
