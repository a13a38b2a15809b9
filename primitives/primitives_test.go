// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package primitives

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashBytesDeterministic(t *testing.T) {
	require := require.New(t)

	h1 := HashBytes([]byte("a"), []byte("b"))
	h2 := HashBytes([]byte("a"), []byte("b"))
	require.Equal(h1, h2)

	h3 := HashBytes([]byte("ab"))
	require.Equal(h1, h3, "HashBytes hashes the concatenation of its segments")
}

func TestSignVerifyDomainIsolation(t *testing.T) {
	require := require.New(t)

	id, priv, err := GenerateKey()
	require.NoError(err)

	payload := []byte("finalize block 42")
	sig := Sign(priv, DomainFinalityVote, payload)

	require.NoError(Verify(id, DomainFinalityVote, payload, sig))
	require.ErrorIs(Verify(id, DomainTransaction, payload, sig), ErrInvalidSignature)
	require.ErrorIs(Verify(id, DomainBlockHeader, payload, sig), ErrInvalidSignature)
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	require := require.New(t)

	id, priv, err := GenerateKey()
	require.NoError(err)

	sig := Sign(priv, DomainFinalityVote, []byte("vote for A"))
	require.ErrorIs(Verify(id, DomainFinalityVote, []byte("vote for B"), sig), ErrInvalidSignature)
}

func TestMerkleRoundTrip(t *testing.T) {
	require := require.New(t)

	leaves := [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d"), []byte("e")}
	tree := BuildMerkleTree(leaves)

	for i := range leaves {
		proof, ok := tree.ProveLeaf(i, 1, 0)
		require.True(ok)
		require.True(VerifyMerkleProof(proof))
	}
}

func TestMerkleTamperDetection(t *testing.T) {
	require := require.New(t)

	leaves := [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	tree := BuildMerkleTree(leaves)

	proof, ok := tree.ProveLeaf(1, 1, 0)
	require.True(ok)
	require.True(VerifyMerkleProof(proof))

	tampered := proof
	tampered.Leaf = []byte("tampered")
	require.False(VerifyMerkleProof(tampered))

	tampered = proof
	tampered.Siblings = append([]Hash(nil), proof.Siblings...)
	tampered.Siblings[0][0] ^= 0xFF
	require.False(VerifyMerkleProof(tampered))

	tampered = proof
	tampered.Root[0] ^= 0xFF
	require.False(VerifyMerkleProof(tampered))
}

func TestBalanceArithmetic(t *testing.T) {
	require := require.New(t)

	a := NewBalance(1000)
	b := NewBalance(2000)
	require.Equal(NewBalance(3000), a.Add(b))
	require.Equal(-1, a.Cmp(b))
	require.Equal(NewBalance(5000), NewBalance(1000).MulSmall(5))
}
