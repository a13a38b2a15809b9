// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package primitives

import "encoding/hex"

// AccountIdSize is the width of an Ed25519 public key.
const AccountIdSize = 32

// SignatureSize is the width of an Ed25519 signature.
const SignatureSize = 64

// AccountId is a 32-byte Ed25519 public key. It doubles as the account's
// verification key.
type AccountId [AccountIdSize]byte

func (a AccountId) String() string { return hex.EncodeToString(a[:]) }

// Bytes returns the account id as a byte slice.
func (a AccountId) Bytes() []byte { return a[:] }

// IsZero reports whether a is the all-zeros account id.
func (a AccountId) IsZero() bool { return a == AccountId{} }

// Signature is a 64-byte Ed25519 signature.
type Signature [SignatureSize]byte

func (s Signature) String() string { return hex.EncodeToString(s[:]) }

// Bytes returns the signature as a byte slice.
func (s Signature) Bytes() []byte { return s[:] }

// BlockNumber is a monotonic per-chain block height.
type BlockNumber uint64

// EpochNumber groups many rounds under a stable validator set.
type EpochNumber uint64

// ChainId identifies a chain. 0 is reserved for the root chain.
type ChainId uint32

// RootChainId is the reserved identifier for the root chain.
const RootChainId ChainId = 0

// Balance is an unsigned 128-bit integer of base units, stored as the
// high and low 64-bit words so it remains a comparable value type.
type Balance struct {
	Hi, Lo uint64
}

// NewBalance builds a Balance from a uint64, the common case for deposits
// and slashing counters which never approach the 128-bit ceiling.
func NewBalance(v uint64) Balance { return Balance{Lo: v} }

// Add returns a+b, saturating (never wrapping) at the 128-bit ceiling.
func (a Balance) Add(b Balance) Balance {
	lo := a.Lo + b.Lo
	carry := uint64(0)
	if lo < a.Lo {
		carry = 1
	}
	hi := a.Hi + b.Hi + carry
	if hi < a.Hi || (hi == a.Hi && (b.Hi != 0 || carry != 0)) {
		return Balance{Hi: ^uint64(0), Lo: ^uint64(0)}
	}
	return Balance{Hi: hi, Lo: lo}
}

// Sub returns a-b. The caller must ensure a >= b; callers needing a
// checked subtraction should use Cmp first.
func (a Balance) Sub(b Balance) Balance {
	lo := a.Lo - b.Lo
	borrow := uint64(0)
	if a.Lo < b.Lo {
		borrow = 1
	}
	hi := a.Hi - b.Hi - borrow
	return Balance{Hi: hi, Lo: lo}
}

// Cmp returns -1, 0, or 1 as a is less than, equal to, or greater than b.
func (a Balance) Cmp(b Balance) int {
	switch {
	case a.Hi != b.Hi:
		if a.Hi < b.Hi {
			return -1
		}
		return 1
	case a.Lo != b.Lo:
		if a.Lo < b.Lo {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// IsZero reports whether the balance is exactly zero.
func (a Balance) IsZero() bool { return a.Hi == 0 && a.Lo == 0 }

// MulSmall returns a*n for a small integer multiplier n, saturating at
// the 64-bit-high-word boundary used by this implementation. It is
// sufficient for the spec's per-host-member deposit multiplier
// (1,000 x member count), which never approaches 2^64 members.
func (a Balance) MulSmall(n uint64) Balance {
	if a.Hi != 0 {
		// Deposits never carry a populated high word in practice; treat
		// overflow here as saturation rather than silent wraparound.
		return Balance{Hi: ^uint64(0), Lo: ^uint64(0)}
	}
	hi, lo := mul64(a.Lo, n)
	return Balance{Hi: hi, Lo: lo}
}

// DivSmall returns floor(a/n) for a small integer divisor n using
// schoolbook long division over the two 64-bit words, most significant
// word first. It is sufficient for the spec's slippage fraction (a/100)
// and never needs to handle n == 0 (callers pass fixed percentages).
func (a Balance) DivSmall(n uint64) Balance {
	hi := a.Hi / n
	rem := a.Hi % n
	lo := divWithRemainder(rem, a.Lo, n)
	return Balance{Hi: hi, Lo: lo}
}

// divWithRemainder computes floor((remHi<<64 + lo) / n) where remHi < n,
// processing lo 32 bits at a time so intermediate values fit in 64 bits.
func divWithRemainder(remHi, lo, n uint64) uint64 {
	const halfShift = 32
	const mask32 = 1<<32 - 1

	hiHalf := lo >> halfShift
	acc := remHi<<halfShift | hiHalf
	qHi := acc / n
	rem := acc % n

	loHalf := lo & mask32
	acc = rem<<halfShift | loHalf
	qLo := acc / n

	return qHi<<halfShift | qLo
}

func mul64(a, b uint64) (hi, lo uint64) {
	const mask32 = 1<<32 - 1
	aLo, aHi := a&mask32, a>>32
	bLo, bHi := b&mask32, b>>32

	lo = aLo * bLo
	mid1 := aHi * bLo
	mid2 := aLo * bHi
	carry := (lo>>32 + mid1&mask32 + mid2&mask32) >> 32

	hi = aHi*bHi + mid1>>32 + mid2>>32 + carry
	lo = lo + mid1<<32 + mid2<<32
	return hi, lo
}
