package sortition

import (
	"math/big"
	"testing"
)

func TestClassifyIsTotalBelowDifficulty(t *testing.T) {
	difficulty := realisticDifficulty()
	m := 7

	for i := int64(0); i < 5000; i++ {
		hash := new(big.Int).Mul(big.NewInt(i), big.NewInt(1<<20))
		hash.Mod(hash, difficulty)
		res, ok := Classify(hash, difficulty, m)
		if !ok {
			t.Fatalf("hash %v < difficulty but Classify reported no hit", hash)
		}
		if res.Index < 0 || res.Index > m {
			t.Fatalf("index %d out of range [0,%d]", res.Index, m)
		}
	}
}

func TestClassifyRejectsHashAboveDifficulty(t *testing.T) {
	difficulty := big.NewInt(1000)
	hash := big.NewInt(1000) // hash == D is not a solution
	if _, ok := Classify(hash, difficulty, 4); ok {
		t.Fatal("expected hash == difficulty to be rejected")
	}
}

// Realistic difficulty targets sit close to the full 256-bit range (the
// high-order bits encode how many leading zero bits are required); a
// difficulty far below 2^64 degenerates mu to zero and is not representative
// of an actual mining target.
func realisticDifficulty() *big.Int {
	d := new(big.Int).Lsh(big.NewInt(1), 252)
	return d
}

func TestClassifyProposerRegionIsLowRange(t *testing.T) {
	difficulty := realisticDifficulty()
	m := 9
	res, ok := Classify(big.NewInt(0), difficulty, m)
	if !ok || res.Index != 0 {
		t.Fatalf("expected hash 0 to sortition to the proposer index, got %+v ok=%v", res, ok)
	}
}
