// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package kvstore

import (
	"encoding/binary"

	"github.com/kratos-labs/kratos/primitives"
)

// Key namespace prefixes (spec.md §6.2). Prefix iteration over
// ChainPrefix/HostPrefix is required for startup rebuild.
var (
	DisputePrefix   = []byte("dispute:")
	ChainPrefix     = []byte("chain:")
	HostPrefix      = []byte("host:")
	BlockHashPrefix = []byte("block:hash:")
	BlockNumPrefix  = []byte("block:num:")
	StateBestKey    = []byte("state:best")
	StateGenesisKey = []byte("state:genesis")
)

// DisputeKey builds the dispute:<u64> key.
func DisputeKey(id uint64) []byte { return appendU64(DisputePrefix, id) }

// ChainKey builds the chain:<u32> key.
func ChainKey(id primitives.ChainId) []byte { return appendU32(ChainPrefix, uint32(id)) }

// HostKey builds the host:<u32> key.
func HostKey(id primitives.ChainId) []byte { return appendU32(HostPrefix, uint32(id)) }

// BlockHashKey builds the block:hash:<32B> key.
func BlockHashKey(h primitives.Hash) []byte {
	out := make([]byte, 0, len(BlockHashPrefix)+len(h))
	out = append(out, BlockHashPrefix...)
	return append(out, h[:]...)
}

// BlockNumKey builds the block:num:<u64> key.
func BlockNumKey(n primitives.BlockNumber) []byte { return appendU64(BlockNumPrefix, uint64(n)) }

func appendU64(prefix []byte, v uint64) []byte {
	out := make([]byte, 0, len(prefix)+8)
	out = append(out, prefix...)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return append(out, buf[:]...)
}

func appendU32(prefix []byte, v uint32) []byte {
	out := make([]byte, 0, len(prefix)+4)
	out = append(out, prefix...)
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return append(out, buf[:]...)
}
