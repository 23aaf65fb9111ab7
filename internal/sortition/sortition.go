// Package sortition implements the mining sortition function that maps one
// solved header hash to exactly one of m+1 block variants: a single proof of
// work attempt covers the proposer block and all m voter blocks at once, with
// the hash itself deciding which variant the solving miner actually produced.
package sortition

import (
	"math/big"

	"github.com/prism-labs/prismd/internal/crypto"
)

// Width is the total sortition width W = 2^64 - 1.
var Width = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 64), big.NewInt(1))

// Result reports a successful sortition outcome. Index 0 means Proposer;
// index k in [1, m] means Voter for chain k.
type Result struct {
	Index int
}

// HashInt interprets h as a big-endian unsigned integer, the coordinate
// space sortition and PoW comparisons operate in.
func HashInt(h crypto.H256) *big.Int {
	return new(big.Int).SetBytes(h[:])
}

// Classify maps a solved header hash (as a big-endian unsigned integer)
// against difficulty D and voter-chain count m. ok is false when hash >= D
// (not a PoW solution at all); a hash < D always sortitions to some index.
//
// mu = floor(D/W) scales the fixed 64-bit width W down against a target D
// drawn from the full 256-bit hash space; D is expected to sit close to
// that space's top end (few leading zero bits required), the way a
// genuinely easy starting difficulty does, so that mu and proposer_width
// come out proportionate to D rather than collapsing to zero.
func Classify(hash *big.Int, difficulty *big.Int, m int) (result Result, ok bool) {
	if hash.Cmp(difficulty) >= 0 {
		return Result{}, false
	}

	mu := new(big.Int).Div(difficulty, Width) // floor(D / W)

	mPlus1 := big.NewInt(int64(m + 1))
	wp := new(big.Int).Add(Width, mPlus1)
	wp.Sub(wp, big.NewInt(1))
	wp.Div(wp, mPlus1) // ceil(W / (m+1))

	proposerWidth := new(big.Int).Mul(mu, wp)

	if hash.Cmp(proposerWidth) < 0 {
		return Result{Index: 0}, true
	}

	offset := new(big.Int).Sub(hash, proposerWidth)
	offset.Mod(offset, big.NewInt(int64(m)))
	return Result{Index: 1 + int(offset.Int64())}, true
}

// ClassifyHash is Classify over H256-typed hash and difficulty, the form
// every caller outside this package's tests actually has in hand.
func ClassifyHash(hash, difficulty crypto.H256, m int) (Result, bool) {
	return Classify(HashInt(hash), HashInt(difficulty), m)
}
