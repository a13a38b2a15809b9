// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package finality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kratos-labs/kratos/primitives"
	"github.com/kratos-labs/kratos/votes"
)

func TestManagerRoundProgression(t *testing.T) {
	require := require.New(t)
	vs, all := newValidators(t, 3)
	ourID := vs[0].id

	m := NewManager(all, &ourID, time.Minute, 100)
	require.Nil(m.Current())

	r := m.StartRound(1)
	require.Equal(r, m.Current())

	target := votes.Target{Number: 5, Hash: primitives.HashBytes([]byte("b5"))}
	_, err := r.AddVote(signVote(vs[0], votes.Prevote, target, 1, 0))
	require.NoError(err)
	_, err = r.AddVote(signVote(vs[1], votes.Prevote, target, 1, 0))
	require.NoError(err)
	_, err = r.AddVote(signVote(vs[0], votes.Precommit, target, 1, 0))
	require.NoError(err)
	_, err = r.AddVote(signVote(vs[1], votes.Precommit, target, 1, 0))
	require.NoError(err)
	require.Equal(votes.Completed, r.State())

	next := m.NextRound()
	require.Equal(uint64(2), next.Num)

	hist := m.History()
	require.Len(hist, 1)
	require.Equal(OutcomeCompleted, hist[0].Outcome)
	require.Equal(target, hist[0].Target)

	last, ok := m.LastFinalized()
	require.True(ok)
	require.Equal(target, last)
}

func TestManagerFailedRoundRecordedInHistory(t *testing.T) {
	require := require.New(t)
	_, all := newValidators(t, 3)

	m := NewManager(all, nil, time.Minute, 100)
	r := m.StartRound(1)
	r.MarkFailed()

	m.CompleteRound()
	hist := m.History()
	require.Len(hist, 1)
	require.Equal(OutcomeFailed, hist[0].Outcome)
}

func TestManagerHistoryCapped(t *testing.T) {
	require := require.New(t)
	_, all := newValidators(t, 3)

	m := NewManager(all, nil, time.Minute, 3)
	for i := 0; i < 10; i++ {
		m.StartRound(uint64(i + 1))
		m.Current().MarkFailed()
		m.CompleteRound()
	}
	require.Len(m.History(), 3)
	require.Equal(uint64(8), m.History()[0].Round)
	require.Equal(uint64(10), m.History()[2].Round)
}

func TestManagerNewEpochResetsValidatorsAndArchivesRound(t *testing.T) {
	require := require.New(t)
	_, all := newValidators(t, 3)
	_, all2 := newValidators(t, 5)

	m := NewManager(all, nil, time.Minute, 100)
	m.StartRound(1)
	m.Current().MarkFailed()

	m.NewEpoch(1, all2)
	require.Equal(primitives.EpochNumber(1), m.Epoch())
	require.Nil(m.Current())
	require.Len(m.History(), 1)

	r := m.StartRound(1)
	require.Equal(primitives.EpochNumber(1), r.Epoch)
}

func TestManagerTick(t *testing.T) {
	require := require.New(t)
	_, all := newValidators(t, 3)
	m := NewManager(all, nil, time.Nanosecond, 100)
	m.StartRound(1)
	time.Sleep(time.Millisecond)
	require.True(m.Tick())
}
