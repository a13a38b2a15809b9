// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gadget

import (
	"time"

	luxlog "github.com/luxfi/log"

	"github.com/kratos-labs/kratos/finality"
	"github.com/kratos-labs/kratos/primitives"
	"github.com/kratos-labs/kratos/set"
	"github.com/kratos-labs/kratos/votes"
)

// Gadget is the external API of the finality core (spec.md §4.5). It is
// a single-threaded cooperative state machine: callers must serialize
// OnBlockImported/OnMessage/Tick calls from one task (spec.md §5).
type Gadget struct {
	manager     *finality.Manager
	signer      Signer
	broadcaster Broadcaster
	log         luxlog.Logger

	pendingBlocks  []votes.Target
	lastFinalized  votes.Target
	haveFinalized  bool
	justifications []finality.Justification
	validatorTotal uint64
}

// New builds a gadget over a validator set snapshot. signer is nil if
// this node is not a validator; it will then never author votes.
func New(validators set.Set[primitives.AccountId], signer Signer, broadcaster Broadcaster, timeout time.Duration, historyCap int, logger luxlog.Logger) *Gadget {
	var ourID *primitives.AccountId
	if signer != nil {
		id := signer.ValidatorID()
		ourID = &id
	}
	if logger == nil {
		logger = luxlog.NewNoOpLogger()
	}
	return &Gadget{
		manager:        finality.NewManager(validators, ourID, timeout, historyCap),
		signer:         signer,
		broadcaster:    broadcaster,
		log:            logger,
		validatorTotal: uint64(validators.Len()),
	}
}

// LastFinalized returns the highest finalized target observed so far.
func (g *Gadget) LastFinalized() (votes.Target, bool) { return g.lastFinalized, g.haveFinalized }

// Justifications returns every justification assembled so far.
func (g *Gadget) Justifications() []finality.Justification {
	out := make([]finality.Justification, len(g.justifications))
	copy(out, g.justifications)
	return out
}

func (g *Gadget) signFn(payload []byte) primitives.Signature {
	return g.signer.Sign(payload)
}

// OnBlockImported appends the block to pending_blocks; if there is no
// active round it starts one targeting the highest pending block, and
// if we are a validator it creates and broadcasts our prevote
// (spec.md §4.5).
func (g *Gadget) OnBlockImported(number primitives.BlockNumber, hash primitives.Hash) {
	g.pendingBlocks = append(g.pendingBlocks, votes.Target{Number: number, Hash: hash})

	if g.manager.Current() == nil {
		nextRoundNum := uint64(1)
		if hist := g.manager.History(); len(hist) > 0 {
			nextRoundNum = hist[len(hist)-1].Round + 1
		}
		g.manager.StartRound(nextRoundNum)
		g.log.Info("finality round started", "epoch", g.manager.Epoch(), "round", nextRoundNum)
	}

	g.createAndBroadcastPrevote()
}

func (g *Gadget) highestPending() votes.Target {
	best := g.pendingBlocks[0]
	for _, t := range g.pendingBlocks[1:] {
		if t.Number > best.Number {
			best = t
		}
	}
	return best
}

// OnMessage dispatches an inbound message, returning a VoteResult only
// for Vote messages (spec.md §4.5); other kinds act by side effect
// (broadcasting a response, replaying votes) and return nil.
func (g *Gadget) OnMessage(msg FinalityMessage) *VoteResult {
	switch msg.Kind {
	case MsgVote:
		return g.onVote(msg.Vote)
	case MsgRequestVotes:
		g.respondWithVotes(msg.RequestVotes.Epoch, msg.RequestVotes.Round)
		return nil
	case MsgFinalized:
		g.onFinalizedAnnouncement(msg.Finalized)
		return nil
	case MsgCatchUpRequest:
		g.respondWithVotes(msg.CatchUpRequest.Epoch, msg.CatchUpRequest.ToRound)
		return nil
	case MsgCatchUpResponse:
		for _, v := range msg.CatchUpResponse.Votes {
			g.onVote(v)
		}
		return nil
	default:
		// Unknown variants are ignored, never crash the gadget.
		return nil
	}
}

func (g *Gadget) respondWithVotes(epoch primitives.EpochNumber, round uint64) {
	cur := g.manager.Current()
	if cur == nil || cur.Epoch != epoch || cur.Num != round {
		return
	}
	g.broadcaster.Broadcast(FinalityMessage{
		Kind: MsgCatchUpResponse,
		CatchUpResponse: CatchUpResponse{
			Votes: cur.AllVotes(),
			Epoch: epoch,
		},
	})
}

func (g *Gadget) onVote(vote votes.FinalityVote) *VoteResult {
	round := g.manager.Current()
	if round == nil {
		return &VoteResult{Kind: ResultRejected, Err: votes.ErrWrongRound}
	}
	prevState := round.State()
	accepted, err := round.AddVote(vote)
	if err != nil {
		g.log.Warn("vote rejected", "voter", vote.Voter.String(), "err", err)
		return &VoteResult{Kind: ResultRejected, Err: err}
	}
	if !accepted {
		return &VoteResult{Kind: ResultAccepted}
	}

	newState := round.State()
	if newState == prevState {
		return &VoteResult{Kind: ResultAccepted}
	}

	if newState == votes.Precommitting && g.signer != nil {
		if pc, ok := round.CreatePrecommit(g.signFn); ok {
			g.broadcaster.Broadcast(FinalityMessage{Kind: MsgVote, Vote: *pc})
		}
	}

	if newState == votes.Completed {
		just, ok := round.CreateJustification()
		if ok {
			g.justifications = append(g.justifications, *just)
			target := votes.Target{Number: just.BlockNumber, Hash: just.BlockHash}
			g.advanceFinalized(target)
			g.broadcaster.Broadcast(FinalityMessage{
				Kind: MsgFinalized,
				Finalized: FinalizedAnnouncement{
					Number: just.BlockNumber,
					Hash:   just.BlockHash,
					Epoch:  just.Epoch,
					Round:  round.Num,
				},
			})
			g.trimPending(target.Number)
			if len(g.pendingBlocks) > 0 {
				nextRoundNum := round.Num + 1
				g.manager.NextRound()
				g.log.Info("finality round started", "epoch", g.manager.Epoch(), "round", nextRoundNum)
				g.createAndBroadcastPrevote()
			} else {
				g.manager.CompleteRound()
			}
			return &VoteResult{Kind: ResultFinalized, FinalizedNumber: target.Number, FinalizedHash: target.Hash}
		}
	}

	return &VoteResult{Kind: ResultStateChanged, NewState: newState}
}

// createAndBroadcastPrevote votes for the highest pending block against
// whatever round is currently active, mirroring the original's
// create_and_broadcast_prevote (spec.md §4.5).
func (g *Gadget) createAndBroadcastPrevote() {
	if g.signer == nil || len(g.pendingBlocks) == 0 {
		return
	}
	round := g.manager.Current()
	if round == nil {
		return
	}
	target := g.highestPending()
	vote, ok := round.CreatePrevote(target.Number, target.Hash, g.signFn)
	if ok {
		g.broadcaster.Broadcast(FinalityMessage{Kind: MsgVote, Vote: *vote})
	}
}

func (g *Gadget) advanceFinalized(target votes.Target) {
	if !g.haveFinalized || target.Number > g.lastFinalized.Number {
		g.lastFinalized = target
		g.haveFinalized = true
	}
}

func (g *Gadget) trimPending(upTo primitives.BlockNumber) {
	kept := g.pendingBlocks[:0]
	for _, t := range g.pendingBlocks {
		if t.Number > upTo {
			kept = append(kept, t)
		}
	}
	g.pendingBlocks = kept
}

// onFinalizedAnnouncement accepts externally-delivered finality
// (spec.md §4.5): if the announced number exceeds our last finalized
// number we trust it, trim pending_blocks, and start the next round.
func (g *Gadget) onFinalizedAnnouncement(f FinalizedAnnouncement) {
	if g.haveFinalized && f.Number <= g.lastFinalized.Number {
		return
	}
	g.advanceFinalized(votes.Target{Number: f.Number, Hash: f.Hash})
	g.trimPending(f.Number)
	if g.manager.Current() != nil {
		g.manager.NextRound()
	} else {
		g.manager.StartRound(f.Round + 1)
	}
}

// Tick drives liveness: if the active round timed out it is marked
// failed and the manager advances; if the round should precommit, it
// does so. Returns true if a round advanced (spec.md §4.5).
func (g *Gadget) Tick() bool {
	round := g.manager.Current()
	if round == nil {
		return false
	}
	if !round.IsDone() && round.IsTimedOut() {
		round.MarkFailed()
		g.manager.NextRound()
		g.log.Info("round timed out", "epoch", g.manager.Epoch())
		return true
	}
	if round.ShouldPrecommit() && g.signer != nil {
		if pc, ok := round.CreatePrecommit(g.signFn); ok {
			g.broadcaster.Broadcast(FinalityMessage{Kind: MsgVote, Vote: *pc})
		}
	}
	return false
}
