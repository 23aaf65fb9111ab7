// Package merkle implements a standard binary Merkle tree over 32-byte leaf
// hashes, with single-leaf inclusion proofs. Used to bind a mined
// superblock's per-variant contents to a header's merkle_root and to compute
// the root over ordered leaves.
package merkle

import "github.com/prism-labs/prismd/internal/crypto"

// Tree is a binary Merkle tree built level by level from a fixed set of
// leaves. Odd layers duplicate the last node.
type Tree struct {
	levels [][]crypto.H256 // levels[0] = leaves, levels[len-1] = root level (single node)
}

// New builds a Merkle tree over leaves. An empty leaf set produces a tree
// whose root is the zero hash.
func New(leaves []crypto.H256) *Tree {
	if len(leaves) == 0 {
		return &Tree{levels: [][]crypto.H256{{crypto.ZeroHash}}}
	}

	level := make([]crypto.H256, len(leaves))
	copy(level, leaves)
	levels := [][]crypto.H256{level}

	for len(level) > 1 {
		next := make([]crypto.H256, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := level[i]
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, combine(left, right))
		}
		levels = append(levels, next)
		level = next
	}

	return &Tree{levels: levels}
}

func combine(left, right crypto.H256) crypto.H256 {
	buf := make([]byte, 0, crypto.HashSize*2)
	buf = append(buf, left[:]...)
	buf = append(buf, right[:]...)
	return crypto.Sum256(buf)
}

// Root returns the tree's root hash.
func (t *Tree) Root() crypto.H256 {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// NumLeaves returns the number of leaves the tree was built from. An empty
// tree reports 1: its single zero-hash placeholder leaf.
func (t *Tree) NumLeaves() int {
	return len(t.levels[0])
}

// Proof returns the sibling hash path for leaf index i, from the leaf level
// up to (but not including) the root.
func (t *Tree) Proof(i int) []crypto.H256 {
	if i < 0 || i >= len(t.levels[0]) {
		return nil
	}
	proof := make([]crypto.H256, 0, len(t.levels)-1)
	idx := i
	for level := 0; level < len(t.levels)-1; level++ {
		nodes := t.levels[level]
		siblingIdx := idx ^ 1
		if siblingIdx >= len(nodes) {
			siblingIdx = idx // odd layer: duplicate of the node itself
		}
		proof = append(proof, nodes[siblingIdx])
		idx /= 2
	}
	return proof
}

// Verify reports whether leaf at position i within a tree of n leaves,
// accompanied by proof, hashes up to root.
func Verify(root crypto.H256, leaf crypto.H256, proof []crypto.H256, i, n int) bool {
	if i < 0 || i >= n {
		return false
	}
	current := leaf
	idx := i
	for _, sibling := range proof {
		if idx%2 == 0 {
			current = combine(current, sibling)
		} else {
			current = combine(sibling, current)
		}
		idx /= 2
	}
	return current == root
}
