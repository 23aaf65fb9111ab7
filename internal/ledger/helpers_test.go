package ledger

import (
	"testing"

	"github.com/prism-labs/prismd/internal/blocktypes"
	"github.com/prism-labs/prismd/internal/dag"
	"github.com/prism-labs/prismd/internal/utxo"
)

func newTestUtxoState() *utxo.State {
	return utxo.New()
}

// newTestChain builds a DAG with m voter chains and one proposer block past
// genesis, so confirmLeaderAt(2) has a candidate to evaluate.
func newTestChain(t *testing.T, m int) *dag.Blockchain {
	t.Helper()
	bc := dag.New(m)
	snap := bc.Snapshot()

	blk := &blocktypes.Block{
		Header:  blocktypes.Header{ParentHash: snap.ProposerTip, Nonce: 1},
		Content: blocktypes.NewProposerContent(snap.ProposerTip, nil, nil),
	}
	if status, err := bc.Insert(blk); err != nil || status != dag.StatusValid {
		t.Fatalf("insert proposer: status=%v err=%v", status, err)
	}
	return bc
}
