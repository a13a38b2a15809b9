// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package warpsync

import "github.com/kratos-labs/kratos/primitives"

// Consumer drives the bootstrap side of warp-sync: the state machine
// Inactive -> RequestingSnapshot -> DownloadingState -> VerifyingState
// -> DownloadingHeaders -> Complete, with a terminal Failed sink
// (spec.md §4.9). It holds no network logic of its own; callers feed it
// headers and chunks as they arrive.
type Consumer struct {
	state    ConsumerStateKind
	failErr  error
	header   *Header
	chunks   map[uint64]Chunk
	received uint64
}

// NewConsumer returns a consumer in its Inactive state.
func NewConsumer() *Consumer {
	return &Consumer{state: Inactive, chunks: make(map[uint64]Chunk)}
}

// State returns the consumer's current phase.
func (c *Consumer) State() ConsumerStateKind { return c.state }

// FailErr is the terminal error when State() == Failed.
func (c *Consumer) FailErr() error { return c.failErr }

func (c *Consumer) fail(err error) error {
	c.state = Failed
	c.failErr = err
	return err
}

// RequestSnapshot begins a sync: Inactive -> RequestingSnapshot.
func (c *Consumer) RequestSnapshot() error {
	if c.state != Inactive {
		return ErrTimeout
	}
	c.state = RequestingSnapshot
	return nil
}

// OnHeader records the snapshot header and begins chunk download:
// RequestingSnapshot -> DownloadingState.
func (c *Consumer) OnHeader(header Header) error {
	if c.state != RequestingSnapshot {
		return ErrTimeout
	}
	if header.NumChunks == 0 {
		return c.fail(ErrInvalidStateRoot)
	}
	h := header
	c.header = &h
	c.state = DownloadingState
	return nil
}

// OnChunk verifies and stores one snapshot chunk. Repeat deliveries of
// the same index replace the prior entry and do not double-count
// toward completion (spec.md §4.9, idempotent transitions). Any
// verification failure is terminal.
func (c *Consumer) OnChunk(chunk Chunk) error {
	if c.state != DownloadingState {
		return ErrTimeout
	}
	if !VerifyChunk(chunk, c.header.StateRoot) {
		return c.fail(ErrInvalidMerkleProof)
	}
	if _, exists := c.chunks[chunk.Index]; !exists {
		c.received++
	}
	c.chunks[chunk.Index] = chunk

	if c.received == c.header.NumChunks {
		c.state = VerifyingState
	}
	return nil
}

// Progress reports chunks received versus the snapshot's total.
func (c *Consumer) Progress() (received, total uint64) {
	if c.header == nil {
		return 0, 0
	}
	return c.received, c.header.NumChunks
}

// VerifyState re-checks every downloaded chunk against the snapshot's
// state root before accepting it as the new local state
// (VerifyingState -> DownloadingHeaders). Unlike OnChunk's per-arrival
// check, it walks every index 0..NumChunks-1 and fails if any index is
// missing or its chunk does not verify.
func (c *Consumer) VerifyState() error {
	if c.state != VerifyingState {
		return ErrTimeout
	}
	for i := uint64(0); i < c.header.NumChunks; i++ {
		chunk, ok := c.chunks[i]
		if !ok || !VerifyChunk(chunk, c.header.StateRoot) {
			return c.fail(ErrInvalidMerkleProof)
		}
	}
	c.state = DownloadingHeaders
	return nil
}

// OnHeadersDownloaded completes the sync once headers [from, to] have
// been replayed on top of the verified snapshot (DownloadingHeaders ->
// Complete).
func (c *Consumer) OnHeadersDownloaded(from, to primitives.BlockNumber) error {
	if c.state != DownloadingHeaders {
		return ErrTimeout
	}
	if to < from {
		return c.fail(ErrInvalidChunk)
	}
	c.state = Complete
	return nil
}

// Accounts returns every downloaded account once the state has been
// verified (DownloadingHeaders or Complete), flattened in chunk order;
// before that it returns nil.
func (c *Consumer) Accounts() []AccountInfo {
	if c.state != Complete && c.state != DownloadingHeaders {
		return nil
	}
	var out []AccountInfo
	for i := uint64(0); i < c.header.NumChunks; i++ {
		if chunk, ok := c.chunks[i]; ok {
			out = append(out, chunk.Accounts...)
		}
	}
	return out
}
