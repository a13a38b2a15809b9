// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gadget

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kratos-labs/kratos/primitives"
	"github.com/kratos-labs/kratos/set"
	"github.com/kratos-labs/kratos/votes"
)

type fakeValidator struct {
	id   primitives.AccountId
	priv ed25519.PrivateKey
}

func (f fakeValidator) Sign(msg []byte) primitives.Signature {
	raw := ed25519.Sign(f.priv, msg)
	var sig primitives.Signature
	copy(sig[:], raw)
	return sig
}

func (f fakeValidator) ValidatorID() primitives.AccountId { return f.id }

type recordingBroadcaster struct {
	sent []FinalityMessage
}

func (r *recordingBroadcaster) Broadcast(msg FinalityMessage) {
	r.sent = append(r.sent, msg)
}

func (r *recordingBroadcaster) lastVote() *votes.FinalityVote {
	for i := len(r.sent) - 1; i >= 0; i-- {
		if r.sent[i].Kind == MsgVote {
			return &r.sent[i].Vote
		}
	}
	return nil
}

func mkValidators(t *testing.T, n int) ([]fakeValidator, set.Set[primitives.AccountId]) {
	t.Helper()
	vs := make([]fakeValidator, n)
	ids := make([]primitives.AccountId, n)
	for i := 0; i < n; i++ {
		id, priv, err := primitives.GenerateKey()
		require.NoError(t, err)
		vs[i] = fakeValidator{id: id, priv: priv}
		ids[i] = id
	}
	return vs, set.Of(ids...)
}

func peerVote(v fakeValidator, vt votes.VoteType, target votes.Target, round uint64, epoch primitives.EpochNumber) votes.FinalityVote {
	vote := votes.FinalityVote{VoteType: vt, Target: target, Round: round, Epoch: epoch, Voter: v.id, Timestamp: time.Now()}
	vote.Signature = primitives.Sign(v.priv, primitives.DomainFinalityVote, vote.Payload())
	return vote
}

// TestHappyPathFinalityThreeValidators reproduces spec.md §8.2 scenario 1.
func TestHappyPathFinalityThreeValidators(t *testing.T) {
	require := require.New(t)
	vs, all := mkValidators(t, 3)
	bc := &recordingBroadcaster{}
	g := New(all, vs[0], bc, time.Minute, 100, nil)

	h1 := primitives.HashBytes([]byte("b1"))
	g.OnBlockImported(1, h1)

	v0Prevote := bc.lastVote()
	require.NotNil(v0Prevote)
	require.Equal(votes.Prevote, v0Prevote.VoteType)
	require.Equal(h1, v0Prevote.Target.Hash)

	res := g.OnMessage(FinalityMessage{Kind: MsgVote, Vote: peerVote(vs[1], votes.Prevote, votes.Target{Number: 1, Hash: h1}, 1, 0)})
	require.Equal(ResultStateChanged, res.Kind)
	require.Equal(votes.Precommitting, res.NewState)

	v0Precommit := bc.lastVote()
	require.NotNil(v0Precommit)
	require.Equal(votes.Precommit, v0Precommit.VoteType)

	res = g.OnMessage(FinalityMessage{Kind: MsgVote, Vote: peerVote(vs[1], votes.Precommit, votes.Target{Number: 1, Hash: h1}, 1, 0)})
	require.Equal(ResultFinalized, res.Kind)
	require.Equal(primitives.BlockNumber(1), res.FinalizedNumber)
	require.Equal(h1, res.FinalizedHash)

	last, ok := g.LastFinalized()
	require.True(ok)
	require.Equal(primitives.BlockNumber(1), last.Number)
	require.Equal(h1, last.Hash)

	require.Len(g.Justifications(), 1)
	require.Len(g.Justifications()[0].Signatures, 2)
}

func TestEquivocationRejected(t *testing.T) {
	require := require.New(t)
	vs, all := mkValidators(t, 3)
	bc := &recordingBroadcaster{}
	g := New(all, vs[0], bc, time.Minute, 100, nil)

	h1 := primitives.HashBytes([]byte("b1"))
	h1b := primitives.HashBytes([]byte("b1-fork"))
	g.OnBlockImported(1, h1)

	res := g.OnMessage(FinalityMessage{Kind: MsgVote, Vote: peerVote(vs[1], votes.Prevote, votes.Target{Number: 1, Hash: h1}, 1, 0)})
	require.Equal(ResultStateChanged, res.Kind)

	res = g.OnMessage(FinalityMessage{Kind: MsgVote, Vote: peerVote(vs[1], votes.Prevote, votes.Target{Number: 1, Hash: h1b}, 1, 0)})
	require.Equal(ResultRejected, res.Kind)
	require.Error(res.Err)
}

func TestTickTimesOutRound(t *testing.T) {
	require := require.New(t)
	vs, all := mkValidators(t, 3)
	bc := &recordingBroadcaster{}
	g := New(all, vs[0], bc, time.Nanosecond, 100, nil)

	g.OnBlockImported(1, primitives.HashBytes([]byte("b1")))
	time.Sleep(time.Millisecond)

	require.True(g.Tick())
	require.False(g.haveFinalized)
}

// TestCompletedRoundAdvancesWhenBlocksPending reproduces the ground-
// truth original's complete_current_round: finalizing a round with a
// higher block still pending must start the next round and prevote for
// it immediately, rather than stalling until another block import
// arrives.
func TestCompletedRoundAdvancesWhenBlocksPending(t *testing.T) {
	require := require.New(t)
	vs, all := mkValidators(t, 3)
	bc := &recordingBroadcaster{}
	g := New(all, vs[0], bc, time.Minute, 100, nil)

	h1 := primitives.HashBytes([]byte("b1"))
	h2 := primitives.HashBytes([]byte("b2"))
	g.OnBlockImported(1, h1)
	g.OnBlockImported(2, h2)

	firstRound := g.manager.Current().Num

	res := g.OnMessage(FinalityMessage{Kind: MsgVote, Vote: peerVote(vs[1], votes.Prevote, votes.Target{Number: 1, Hash: h1}, firstRound, 0)})
	require.Equal(ResultStateChanged, res.Kind)
	require.Equal(votes.Precommitting, res.NewState)

	res = g.OnMessage(FinalityMessage{Kind: MsgVote, Vote: peerVote(vs[1], votes.Precommit, votes.Target{Number: 1, Hash: h1}, firstRound, 0)})
	require.Equal(ResultFinalized, res.Kind)
	require.Equal(primitives.BlockNumber(1), res.FinalizedNumber)

	require.NotNil(g.manager.Current())
	require.Equal(firstRound+1, g.manager.Current().Num)

	v0NextPrevote := bc.lastVote()
	require.NotNil(v0NextPrevote)
	require.Equal(votes.Prevote, v0NextPrevote.VoteType)
	require.Equal(h2, v0NextPrevote.Target.Hash)
	require.Equal(firstRound+1, v0NextPrevote.Round)
}

func TestWireRoundTripVote(t *testing.T) {
	require := require.New(t)
	vs, _ := mkValidators(t, 1)
	vote := peerVote(vs[0], votes.Prevote, votes.Target{Number: 42, Hash: primitives.HashBytes([]byte("x"))}, 3, 7)
	msg := FinalityMessage{Kind: MsgVote, Vote: vote}

	b := Encode(msg)
	decoded, err := Decode(b)
	require.NoError(err)
	require.Equal(vote.VoteType, decoded.Vote.VoteType)
	require.Equal(vote.Target, decoded.Vote.Target)
	require.Equal(vote.Round, decoded.Vote.Round)
	require.Equal(vote.Epoch, decoded.Vote.Epoch)
	require.Equal(vote.Voter, decoded.Vote.Voter)
	require.Equal(vote.Signature, decoded.Vote.Signature)
}

func TestWireDecodeRejectsTruncated(t *testing.T) {
	require := require.New(t)
	_, err := Decode([]byte{byte(MsgVote), 0x01})
	require.ErrorIs(err, ErrMalformedMessage)
}

func TestWireRoundTripCatchUpResponse(t *testing.T) {
	require := require.New(t)
	vs, _ := mkValidators(t, 2)
	v1 := peerVote(vs[0], votes.Prevote, votes.Target{Number: 1, Hash: primitives.HashBytes([]byte("a"))}, 1, 0)
	v2 := peerVote(vs[1], votes.Precommit, votes.Target{Number: 1, Hash: primitives.HashBytes([]byte("a"))}, 1, 0)
	msg := FinalityMessage{Kind: MsgCatchUpResponse, CatchUpResponse: CatchUpResponse{Votes: []votes.FinalityVote{v1, v2}, Epoch: 0}}

	b := Encode(msg)
	decoded, err := Decode(b)
	require.NoError(err)
	require.Len(decoded.CatchUpResponse.Votes, 2)
	require.Equal(v1.Voter, decoded.CatchUpResponse.Votes[0].Voter)
	require.Equal(v2.VoteType, decoded.CatchUpResponse.Votes[1].VoteType)
}
