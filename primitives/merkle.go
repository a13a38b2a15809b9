// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package primitives

// MerkleProof proves that leaf is present at leafIndex in the tree with
// the given root, via an ordered sibling chain.
type MerkleProof struct {
	Leaf        []byte
	LeafIndex   uint64
	Siblings    []Hash
	Root        Hash
	BlockNumber BlockNumber
	ChainId     ChainId
}

// nodeHash is the domain hash blake3(left‖right), with no padding byte.
func nodeHash(left, right Hash) Hash {
	return HashBytes(left[:], right[:])
}

// leafHash hashes a raw leaf payload into the tree's coordinate space.
func leafHash(leaf []byte) Hash {
	return HashBytes(leaf)
}

// MerkleTree is a simple binary Merkle tree over an ordered leaf set.
// It pads with a duplicate-of-last-leaf at each level so that non-power-
// of-two leaf counts still combine cleanly, mirroring the
// duplicate-last-node convention used throughout the teacher's
// snapshot/checkpoint code.
type MerkleTree struct {
	levels    [][]Hash // levels[0] = leaf hashes, levels[len-1] = [root]
	rawLeaves [][]byte
}

// BuildMerkleTree hashes each leaf and builds the tree bottom-up.
func BuildMerkleTree(leaves [][]byte) *MerkleTree {
	if len(leaves) == 0 {
		return &MerkleTree{levels: [][]Hash{{ZeroHash}}}
	}
	level := make([]Hash, len(leaves))
	for i, l := range leaves {
		level[i] = leafHash(l)
	}
	t := &MerkleTree{levels: [][]Hash{level}, rawLeaves: leaves}
	for len(level) > 1 {
		next := make([]Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, nodeHash(level[i], level[i+1]))
			} else {
				next = append(next, nodeHash(level[i], level[i]))
			}
		}
		t.levels = append(t.levels, next)
		level = next
	}
	return t
}

// Root returns the tree's root hash.
func (t *MerkleTree) Root() Hash {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// NumLeaves returns the number of leaves the tree was built from.
func (t *MerkleTree) NumLeaves() int {
	return len(t.levels[0])
}

// ProveLeaf returns a MerkleProof for the leaf at index.
func (t *MerkleTree) ProveLeaf(index int, blockNumber BlockNumber, chainID ChainId) (MerkleProof, bool) {
	if index < 0 || index >= len(t.levels[0]) {
		return MerkleProof{}, false
	}
	siblings := make([]Hash, 0, len(t.levels)-1)
	idx := index
	for lvl := 0; lvl < len(t.levels)-1; lvl++ {
		level := t.levels[lvl]
		var sibIdx int
		if idx%2 == 0 {
			sibIdx = idx + 1
		} else {
			sibIdx = idx - 1
		}
		if sibIdx >= len(level) {
			// padded node: sibling is the duplicate of the last real node.
			sibIdx = idx
		}
		siblings = append(siblings, level[sibIdx])
		idx /= 2
	}
	return MerkleProof{
		Leaf:        append([]byte(nil), t.rawLeaves[index]...),
		LeafIndex:   uint64(index),
		Siblings:    siblings,
		Root:        t.Root(),
		BlockNumber: blockNumber,
		ChainId:     chainID,
	}, true
}

// VerifyMerkleProof recomputes the leaf hash, walks the sibling chain
// using left/right placement derived from LeafIndex bits, and checks the
// resulting root equals proof.Root.
func VerifyMerkleProof(proof MerkleProof) bool {
	current := leafHash(proof.Leaf)
	idx := proof.LeafIndex
	for _, sib := range proof.Siblings {
		if idx%2 == 0 {
			current = nodeHash(current, sib)
		} else {
			current = nodeHash(sib, current)
		}
		idx /= 2
	}
	return current == proof.Root
}

// VerifyMerkleProofAgainstHash is like VerifyMerkleProof but starts from
// an already-hashed leaf, for callers (e.g. warp-sync chunks) that hash
// their own leaf payload under a different domain before proving it.
func VerifyMerkleProofAgainstHash(leafHashValue Hash, leafIndex uint64, siblings []Hash, root Hash) bool {
	current := leafHashValue
	idx := leafIndex
	for _, sib := range siblings {
		if idx%2 == 0 {
			current = nodeHash(current, sib)
		} else {
			current = nodeHash(sib, current)
		}
		idx /= 2
	}
	return current == root
}
