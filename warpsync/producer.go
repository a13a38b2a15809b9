// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package warpsync

import (
	"encoding/binary"

	"github.com/kratos-labs/kratos/kvstore"
	"github.com/kratos-labs/kratos/primitives"
)

// serializeAccounts deterministically encodes a chunk's accounts in
// order: 32-byte id, 8-byte big-endian nonce, 16-byte big-endian
// balance (Hi then Lo), one after another.
func serializeAccounts(accounts []AccountInfo) []byte {
	out := make([]byte, 0, len(accounts)*(32+8+16))
	for _, a := range accounts {
		out = append(out, a.Account[:]...)
		out = appendUint64(out, a.Nonce)
		out = appendUint64(out, a.Balance.Hi)
		out = appendUint64(out, a.Balance.Lo)
	}
	return out
}

func appendUint64(buf []byte, v uint64) []byte {
	for i := 0; i < 8; i++ {
		buf = append(buf, byte(v>>(8*(7-i))))
	}
	return buf
}

// hashChunk computes a chunk's chunk_hash: Blake3 over its
// deterministically serialized accounts (spec.md §4.9 step 1).
func hashChunk(accounts []AccountInfo) primitives.Hash {
	return primitives.HashBytes(serializeAccounts(accounts))
}

// nodeHash is the internal-node hash for the chunk-hash tree: unlike
// primitives.MerkleTree, the leaves here are already hashes (chunk_hash
// values), not raw payloads to be hashed again.
func nodeHash(left, right primitives.Hash) primitives.Hash {
	return primitives.HashBytes(left[:], right[:])
}

// BuildSnapshot splits accounts into chunkSize-sized chunks, computes
// each chunk_hash, and builds the state-root tree over the chunk-hash
// sequence (spec.md §4.9). It returns the header and every chunk with
// its proof already attached.
func BuildSnapshot(accounts []AccountInfo, chunkSize int, blockNumber primitives.BlockNumber) (Header, []Chunk) {
	if chunkSize <= 0 {
		chunkSize = len(accounts)
		if chunkSize == 0 {
			chunkSize = 1
		}
	}

	var chunkHashes []primitives.Hash
	var rawChunks [][]AccountInfo
	for start := 0; start < len(accounts); start += chunkSize {
		end := start + chunkSize
		if end > len(accounts) {
			end = len(accounts)
		}
		slice := accounts[start:end]
		rawChunks = append(rawChunks, slice)
		chunkHashes = append(chunkHashes, hashChunk(slice))
	}
	if len(rawChunks) == 0 {
		rawChunks = [][]AccountInfo{{}}
		chunkHashes = []primitives.Hash{hashChunk(nil)}
	}

	levels := buildLevels(chunkHashes)
	root := levels[len(levels)-1][0]

	chunks := make([]Chunk, len(rawChunks))
	for i, raw := range rawChunks {
		chunks[i] = Chunk{
			Index:     uint64(i),
			Accounts:  raw,
			ChunkHash: chunkHashes[i],
			Proof:     proveIndex(levels, i),
		}
	}

	return Header{
		StateRoot:   root,
		NumChunks:   uint64(len(chunks)),
		BlockNumber: blockNumber,
	}, chunks
}

// buildLevels builds a binary tree directly over already-hashed
// leaves, padding with a duplicate of the last node at each level
// (same convention as primitives.MerkleTree).
func buildLevels(leaves []primitives.Hash) [][]primitives.Hash {
	if len(leaves) == 0 {
		return [][]primitives.Hash{{primitives.ZeroHash}}
	}
	levels := [][]primitives.Hash{leaves}
	level := leaves
	for len(level) > 1 {
		next := make([]primitives.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, nodeHash(level[i], level[i+1]))
			} else {
				next = append(next, nodeHash(level[i], level[i]))
			}
		}
		levels = append(levels, next)
		level = next
	}
	return levels
}

// proveIndex walks levels bottom-up collecting the sibling chain for
// the leaf at index. A single-leaf tree (spec.md §4.9: single-chunk
// snapshots) yields an empty proof, so chunk_hash == root directly.
func proveIndex(levels [][]primitives.Hash, index int) []primitives.Hash {
	if len(levels[0]) == 1 {
		return nil
	}
	siblings := make([]primitives.Hash, 0, len(levels)-1)
	idx := index
	for lvl := 0; lvl < len(levels)-1; lvl++ {
		level := levels[lvl]
		var sibIdx int
		if idx%2 == 0 {
			sibIdx = idx + 1
		} else {
			sibIdx = idx - 1
		}
		if sibIdx >= len(level) {
			sibIdx = idx
		}
		siblings = append(siblings, level[sibIdx])
		idx /= 2
	}
	return siblings
}

// PersistHeader writes a built snapshot's header under kvstore's
// state:best key (spec.md §6.2), so a node that crashes mid-sync can
// recover the state root and chunk count it was downloading toward
// without rebuilding the snapshot from scratch.
func PersistHeader(store kvstore.Store, header Header) {
	out := make([]byte, 0, 32+8+8)
	out = append(out, header.StateRoot[:]...)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], header.NumChunks)
	out = append(out, buf[:]...)
	binary.BigEndian.PutUint64(buf[:], uint64(header.BlockNumber))
	out = append(out, buf[:]...)
	store.Put(kvstore.StateBestKey, out)
}

// LoadHeader reads back a header written by PersistHeader.
func LoadHeader(store kvstore.Store) (Header, bool) {
	raw, ok := store.Get(kvstore.StateBestKey)
	if !ok || len(raw) != 32+8+8 {
		return Header{}, false
	}
	var h Header
	copy(h.StateRoot[:], raw[:32])
	h.NumChunks = binary.BigEndian.Uint64(raw[32:40])
	h.BlockNumber = primitives.BlockNumber(binary.BigEndian.Uint64(raw[40:48]))
	return h, true
}

// VerifyChunk recomputes chunk_hash from the chunk's accounts and
// replays the sibling chain against the snapshot's state root
// (spec.md §4.9 steps 1-3).
func VerifyChunk(c Chunk, stateRoot primitives.Hash) bool {
	if hashChunk(c.Accounts) != c.ChunkHash {
		return false
	}
	if len(c.Proof) == 0 {
		return c.ChunkHash == stateRoot
	}
	return primitives.VerifyMerkleProofAgainstHash(c.ChunkHash, c.Index, c.Proof, stateRoot)
}
