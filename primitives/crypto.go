// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package primitives

import (
	"crypto/ed25519"
	"errors"
)

// ErrInvalidSignature is returned by Verify on any signature/key/message
// mismatch. Callers must never branch on anything else.
var ErrInvalidSignature = errors.New("primitives: invalid signature")

// Domain tags. Each is a fixed, non-empty ASCII byte string with a prefix
// distinct from the others. Changing any of these is a hard fork: see
// spec.md §6.3.
var (
	DomainBlockHeader  = []byte("kratos/block-header/v1")
	DomainTransaction  = []byte("kratos/transaction/v1")
	DomainFinalityVote = []byte("kratos/finality-vote/v1")
)

// SignMessage builds the domain-separated message that is actually signed
// and verified: DOMAIN ‖ payload.
func SignMessage(domain, payload []byte) []byte {
	out := make([]byte, 0, len(domain)+len(payload))
	out = append(out, domain...)
	out = append(out, payload...)
	return out
}

// Sign produces a Signature over payload under domain, using priv.
func Sign(priv ed25519.PrivateKey, domain, payload []byte) Signature {
	msg := SignMessage(domain, payload)
	raw := ed25519.Sign(priv, msg)
	var sig Signature
	copy(sig[:], raw)
	return sig
}

// Verify checks sig against payload under domain for the account's
// verification key. It returns ErrInvalidSignature on any mismatch and
// never panics on attacker-controlled input.
func Verify(pub AccountId, domain, payload []byte, sig Signature) error {
	msg := SignMessage(domain, payload)
	if !ed25519.Verify(ed25519.PublicKey(pub[:]), msg, sig[:]) {
		return ErrInvalidSignature
	}
	return nil
}

// GenerateKey returns a fresh Ed25519 keypair, exposed for tests and
// demo tooling.
func GenerateKey() (AccountId, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return AccountId{}, nil, err
	}
	var id AccountId
	copy(id[:], pub)
	return id, priv, nil
}
