// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gadget

import (
	"errors"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/kratos-labs/kratos/primitives"
	"github.com/kratos-labs/kratos/votes"
)

func unixTime(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

// ErrMalformedMessage is returned by Decode on any truncated or
// malformed wire message. Decoding never panics on attacker-controlled
// input (spec.md §7).
var ErrMalformedMessage = errors.New("gadget: malformed wire message")

// Encode serializes msg as a deterministic, length-prefixed, tagged
// binary message (spec.md §6.1). It uses protowire's varint/length-
// delimited primitives as a wire-format toolkit, not full protobuf
// schema encoding: the tag byte selects the variant directly, matching
// the spec's "tagged union, not dynamic dispatch" design note.
func Encode(msg FinalityMessage) []byte {
	buf := []byte{byte(msg.Kind)}
	switch msg.Kind {
	case MsgVote:
		buf = appendVote(buf, msg.Vote)
	case MsgRequestVotes:
		buf = protowire.AppendVarint(buf, uint64(msg.RequestVotes.Epoch))
		buf = protowire.AppendVarint(buf, msg.RequestVotes.Round)
	case MsgFinalized:
		buf = protowire.AppendVarint(buf, uint64(msg.Finalized.Number))
		buf = protowire.AppendBytes(buf, msg.Finalized.Hash[:])
		buf = protowire.AppendVarint(buf, uint64(msg.Finalized.Epoch))
		buf = protowire.AppendVarint(buf, msg.Finalized.Round)
	case MsgCatchUpRequest:
		buf = protowire.AppendVarint(buf, msg.CatchUpRequest.FromRound)
		buf = protowire.AppendVarint(buf, msg.CatchUpRequest.ToRound)
		buf = protowire.AppendVarint(buf, uint64(msg.CatchUpRequest.Epoch))
	case MsgCatchUpResponse:
		buf = protowire.AppendVarint(buf, uint64(msg.CatchUpResponse.Epoch))
		buf = protowire.AppendVarint(buf, uint64(len(msg.CatchUpResponse.Votes)))
		for _, v := range msg.CatchUpResponse.Votes {
			buf = appendVote(buf, v)
		}
	}
	return buf
}

// Decode is the inverse of Encode. It returns ErrMalformedMessage on
// any truncation, never consulting more bytes than len(b).
func Decode(b []byte) (FinalityMessage, error) {
	if len(b) < 1 {
		return FinalityMessage{}, ErrMalformedMessage
	}
	kind := MessageKind(b[0])
	rest := b[1:]
	var msg FinalityMessage
	msg.Kind = kind

	var ok bool
	switch kind {
	case MsgVote:
		msg.Vote, rest, ok = consumeVote(rest)
	case MsgRequestVotes:
		var epoch, round uint64
		epoch, rest, ok = consumeVarint(rest)
		if ok {
			round, rest, ok = consumeVarint(rest)
		}
		msg.RequestVotes = RequestVotes{Epoch: primitives.EpochNumber(epoch), Round: round}
	case MsgFinalized:
		var num uint64
		var hashB []byte
		var epoch, round uint64
		num, rest, ok = consumeVarint(rest)
		if ok {
			hashB, rest, ok = consumeBytes(rest, 32)
		}
		if ok {
			epoch, rest, ok = consumeVarint(rest)
		}
		if ok {
			round, rest, ok = consumeVarint(rest)
		}
		if ok {
			var h primitives.Hash
			copy(h[:], hashB)
			msg.Finalized = FinalizedAnnouncement{
				Number: primitives.BlockNumber(num),
				Hash:   h,
				Epoch:  primitives.EpochNumber(epoch),
				Round:  round,
			}
		}
	case MsgCatchUpRequest:
		var from, to, epoch uint64
		from, rest, ok = consumeVarint(rest)
		if ok {
			to, rest, ok = consumeVarint(rest)
		}
		if ok {
			epoch, rest, ok = consumeVarint(rest)
		}
		msg.CatchUpRequest = CatchUpRequest{FromRound: from, ToRound: to, Epoch: primitives.EpochNumber(epoch)}
	case MsgCatchUpResponse:
		var epoch, n uint64
		epoch, rest, ok = consumeVarint(rest)
		if ok {
			n, rest, ok = consumeVarint(rest)
		}
		if ok {
			voteList := make([]votes.FinalityVote, 0, n)
			for i := uint64(0); i < n && ok; i++ {
				var v votes.FinalityVote
				v, rest, ok = consumeVote(rest)
				if ok {
					voteList = append(voteList, v)
				}
			}
			msg.CatchUpResponse = CatchUpResponse{Votes: voteList, Epoch: primitives.EpochNumber(epoch)}
		}
	default:
		return FinalityMessage{}, ErrMalformedMessage
	}
	if !ok {
		return FinalityMessage{}, ErrMalformedMessage
	}
	return msg, nil
}

func appendVote(buf []byte, v votes.FinalityVote) []byte {
	buf = protowire.AppendVarint(buf, uint64(v.VoteType))
	buf = protowire.AppendVarint(buf, uint64(v.Target.Number))
	buf = protowire.AppendBytes(buf, v.Target.Hash[:])
	buf = protowire.AppendVarint(buf, v.Round)
	buf = protowire.AppendVarint(buf, uint64(v.Epoch))
	buf = protowire.AppendBytes(buf, v.Voter[:])
	buf = protowire.AppendBytes(buf, v.Signature[:])
	buf = protowire.AppendVarint(buf, uint64(v.Timestamp.Unix()))
	return buf
}

func consumeVote(b []byte) (votes.FinalityVote, []byte, bool) {
	var v votes.FinalityVote
	var voteType, number, round, epoch, ts uint64
	var hashB, voterB, sigB []byte
	var ok bool

	voteType, b, ok = consumeVarint(b)
	if !ok {
		return v, b, false
	}
	number, b, ok = consumeVarint(b)
	if !ok {
		return v, b, false
	}
	hashB, b, ok = consumeBytes(b, 32)
	if !ok {
		return v, b, false
	}
	round, b, ok = consumeVarint(b)
	if !ok {
		return v, b, false
	}
	epoch, b, ok = consumeVarint(b)
	if !ok {
		return v, b, false
	}
	voterB, b, ok = consumeBytes(b, 32)
	if !ok {
		return v, b, false
	}
	sigB, b, ok = consumeBytes(b, 64)
	if !ok {
		return v, b, false
	}
	ts, b, ok = consumeVarint(b)
	if !ok {
		return v, b, false
	}

	v.VoteType = votes.VoteType(voteType)
	v.Target.Number = primitives.BlockNumber(number)
	copy(v.Target.Hash[:], hashB)
	v.Round = round
	v.Epoch = primitives.EpochNumber(epoch)
	copy(v.Voter[:], voterB)
	copy(v.Signature[:], sigB)
	v.Timestamp = unixTime(int64(ts))
	return v, b, true
}

func consumeVarint(b []byte) (uint64, []byte, bool) {
	v, n := protowire.ConsumeVarint(b)
	if n <= 0 {
		return 0, b, false
	}
	return v, b[n:], true
}

func consumeBytes(b []byte, wantLen int) ([]byte, []byte, bool) {
	v, n := protowire.ConsumeBytes(b)
	if n <= 0 || len(v) != wantLen {
		return nil, b, false
	}
	return v, b[n:], true
}
