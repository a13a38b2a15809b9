// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package primitives implements the fixed-size identifiers, domain-separated
// Ed25519 signing and Blake3 hashing, and Merkle proof machinery shared by
// every core component.
package primitives

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// HashSize is the width of a Hash in bytes.
const HashSize = 32

// Hash is a 32-byte Blake3 digest.
type Hash [HashSize]byte

// ZeroHash is the all-zeros hash, used as the genesis parent.
var ZeroHash = Hash{}

// HashBytes computes the Blake3 digest of data.
func HashBytes(data ...[]byte) Hash {
	h := blake3.New()
	for _, d := range data {
		h.Write(d)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// IsZero reports whether h is the all-zeros hash.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns the hash as a byte slice.
func (h Hash) Bytes() []byte {
	return h[:]
}

// HashFromBytes builds a Hash from an arbitrary-length byte slice, which
// must be exactly HashSize bytes.
func HashFromBytes(b []byte) (Hash, bool) {
	var h Hash
	if len(b) != HashSize {
		return h, false
	}
	copy(h[:], b)
	return h, true
}
