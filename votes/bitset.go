// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package votes

import "math/bits"

// bitset stores validator indices 0..N-1. Adapted from the teacher's
// wavefpc vote-bitmap: a compact per-target voter tally so supermajority
// checks are O(1) rather than re-scanning a map of voters on every vote.
type bitset struct {
	words []uint64
	count int
}

func newBitset(n int) *bitset {
	words := (n + 63) / 64
	if words == 0 {
		words = 1
	}
	return &bitset{words: make([]uint64, words)}
}

// Set marks index i as present and reports whether it was newly set.
func (b *bitset) Set(i int) bool {
	w, off := i/64, uint(i%64)
	mask := uint64(1) << off
	if b.words[w]&mask != 0 {
		return false
	}
	b.words[w] |= mask
	b.count++
	return true
}

func (b *bitset) Count() int { return b.count }

func (b *bitset) ForEach(f func(idx int)) {
	for wi, w := range b.words {
		for w != 0 {
			t := w & -w
			i := bits.TrailingZeros64(w)
			f(wi*64 + i)
			w &= ^t
		}
	}
}
