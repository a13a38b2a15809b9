// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package kvstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kratos-labs/kratos/primitives"
)

func TestMemoryPutGetDelete(t *testing.T) {
	require := require.New(t)
	s := NewMemory()

	key := ChainKey(primitives.ChainId(7))
	_, ok := s.Get(key)
	require.False(ok)

	s.Put(key, []byte("payload"))
	v, ok := s.Get(key)
	require.True(ok)
	require.Equal("payload", string(v))

	s.Delete(key)
	_, ok = s.Get(key)
	require.False(ok)
}

func TestIteratePrefixOrderedAndScoped(t *testing.T) {
	require := require.New(t)
	s := NewMemory()

	s.Put(ChainKey(3), []byte("c3"))
	s.Put(ChainKey(1), []byte("c1"))
	s.Put(ChainKey(2), []byte("c2"))
	s.Put(HostKey(1), []byte("h1"))

	var seen []string
	s.IteratePrefix(ChainPrefix, func(key, value []byte) bool {
		seen = append(seen, string(value))
		return true
	})
	require.Equal([]string{"c1", "c2", "c3"}, seen)
}

func TestIteratePrefixEarlyStop(t *testing.T) {
	require := require.New(t)
	s := NewMemory()
	s.Put(ChainKey(1), []byte("c1"))
	s.Put(ChainKey(2), []byte("c2"))
	s.Put(ChainKey(3), []byte("c3"))

	count := 0
	s.IteratePrefix(ChainPrefix, func(key, value []byte) bool {
		count++
		return false
	})
	require.Equal(1, count)
}

func TestBlockHashKeyRoundTrips(t *testing.T) {
	require := require.New(t)
	s := NewMemory()
	h := primitives.HashBytes([]byte("block"))
	s.Put(BlockHashKey(h), []byte("block-bytes"))
	v, ok := s.Get(BlockHashKey(h))
	require.True(ok)
	require.Equal("block-bytes", string(v))
}
