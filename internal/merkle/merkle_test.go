package merkle

import (
	"testing"

	"github.com/prism-labs/prismd/internal/crypto"
)

func leavesOf(n int) []crypto.H256 {
	leaves := make([]crypto.H256, n)
	for i := range leaves {
		leaves[i] = crypto.Sum256([]byte{byte(i)})
	}
	return leaves
}

func TestRoundTripVerify(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 7, 8, 16} {
		leaves := leavesOf(n)
		tree := New(leaves)
		root := tree.Root()
		for i := range leaves {
			proof := tree.Proof(i)
			if !Verify(root, leaves[i], proof, i, n) {
				t.Fatalf("n=%d i=%d: verify failed", n, i)
			}
		}
	}
}

func TestVerifyRejectsWrongLeaf(t *testing.T) {
	leaves := leavesOf(4)
	tree := New(leaves)
	proof := tree.Proof(1)
	wrong := crypto.Sum256([]byte("not a leaf"))
	if Verify(tree.Root(), wrong, proof, 1, 4) {
		t.Fatal("expected verify to fail for a substituted leaf")
	}
}

func TestEmptyTreeRootIsZero(t *testing.T) {
	tree := New(nil)
	if tree.Root() != crypto.ZeroHash {
		t.Fatal("expected zero hash root for an empty tree")
	}
}
