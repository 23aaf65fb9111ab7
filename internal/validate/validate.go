// Package validate implements the receive-path checks a block must pass
// before it is handed to the DAG: proof-of-work, sortition identity, and
// the sortition Merkle proof, ordered cheap-structural before
// expensive-cryptographic.
package validate

import (
	"github.com/prism-labs/prismd/internal/blocktypes"
	"github.com/prism-labs/prismd/internal/merkle"
	"github.com/prism-labs/prismd/internal/sortition"
)

// Result names which check, if any, rejected a block. The zero value is Ok.
type Result int

const (
	// Ok means the block passed every check.
	Ok Result = iota
	// FailPoW means hash(header) >= header.difficulty.
	FailPoW
	// FailSortitionIdentity means the content variant does not match the
	// index sortition(hash, difficulty, m) computes.
	FailSortitionIdentity
	// FailSortitionProof means the Merkle proof does not verify against
	// header.merkle_root.
	FailSortitionProof
)

// Block runs all three receive-path checks on blk under voter-chain count m.
// Any failure means the block must be dropped, never logged above debug —
// adversarial traffic is expected and must not be fatal.
func Block(blk *blocktypes.Block, m int) Result {
	hash, err := blk.Hash()
	if err != nil {
		return FailPoW
	}
	if sortition.HashInt(hash).Cmp(sortition.HashInt(blk.Header.Difficulty)) >= 0 {
		return FailPoW
	}

	res, ok := sortition.ClassifyHash(hash, blk.Header.Difficulty, m)
	if !ok {
		return FailPoW
	}
	if !contentMatchesIndex(&blk.Content, res.Index) {
		return FailSortitionIdentity
	}
	if blk.SortitionIndex != res.Index {
		return FailSortitionIdentity
	}

	contentHash, err := blk.Content.Hash()
	if err != nil {
		return FailSortitionProof
	}
	if !merkle.Verify(blk.Header.MerkleRoot, contentHash, blk.SortitionProof, blk.SortitionIndex, m+1) {
		return FailSortitionProof
	}

	return Ok
}

func contentMatchesIndex(c *blocktypes.Content, index int) bool {
	if index == 0 {
		return c.Kind == blocktypes.KindProposer
	}
	return c.Kind == blocktypes.KindVoter && int(c.Voter.ChainNum) == index
}
