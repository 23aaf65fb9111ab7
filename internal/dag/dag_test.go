package dag

import (
	"testing"

	"github.com/prism-labs/prismd/internal/blocktypes"
	"github.com/prism-labs/prismd/internal/crypto"
)

func mustHash(t *testing.T, blk *blocktypes.Block) crypto.H256 {
	t.Helper()
	h, err := blk.Hash()
	if err != nil {
		t.Fatalf("hash block: %v", err)
	}
	return h
}

func proposerBlock(t *testing.T, parent crypto.H256, refs []crypto.H256, nonce uint32) *blocktypes.Block {
	t.Helper()
	return &blocktypes.Block{
		Header:  blocktypes.Header{ParentHash: parent, Nonce: nonce},
		Content: blocktypes.NewProposerContent(parent, refs, nil),
	}
}

func voterBlock(t *testing.T, parent crypto.H256, chain uint32, votes []crypto.H256, nonce uint32) *blocktypes.Block {
	t.Helper()
	return &blocktypes.Block{
		Header:  blocktypes.Header{ParentHash: parent, Nonce: nonce},
		Content: blocktypes.NewVoterContent(parent, chain, votes),
	}
}

func TestGenesisState(t *testing.T) {
	bc := New(3)
	if bc.ProposerDepth() != 1 {
		t.Fatalf("expected genesis proposer depth 1, got %d", bc.ProposerDepth())
	}
	snap := bc.Snapshot()
	if len(snap.VoterTips) != 3 {
		t.Fatalf("expected 3 voter tips, got %d", len(snap.VoterTips))
	}
}

func TestInsertProposerChainAdvancesLevel(t *testing.T) {
	bc := New(2)
	snap := bc.Snapshot()

	b1 := proposerBlock(t, snap.ProposerTip, nil, 1)
	status, err := bc.Insert(b1)
	if err != nil || status != StatusValid {
		t.Fatalf("insert b1: status=%v err=%v", status, err)
	}

	h1 := mustHash(t, b1)
	level, ok := bc.ProposerLevel(h1)
	if !ok || level != 2 {
		t.Fatalf("expected b1 at level 2, got level=%d ok=%v", level, ok)
	}
	if bc.ProposerDepth() != 2 {
		t.Fatalf("expected proposer depth 2, got %d", bc.ProposerDepth())
	}
}

func TestOrphanBufferedThenCascades(t *testing.T) {
	bc := New(1)
	snap := bc.Snapshot()

	b1 := proposerBlock(t, snap.ProposerTip, nil, 1)
	h1 := mustHash(t, b1)
	b2 := proposerBlock(t, h1, nil, 2) // references b1 before b1 is inserted

	status, err := bc.Insert(b2)
	if err != nil || status != StatusOrphan {
		t.Fatalf("expected b2 to be orphaned, got status=%v err=%v", status, err)
	}
	if _, ok := bc.ProposerLevel(mustHash(t, b2)); ok {
		t.Fatal("expected orphan to not yet be accepted")
	}

	status, err = bc.Insert(b1)
	if err != nil || status != StatusValid {
		t.Fatalf("insert b1: status=%v err=%v", status, err)
	}

	h2 := mustHash(t, b2)
	if _, ok := bc.ProposerLevel(h2); !ok {
		t.Fatal("expected orphan cascade to accept b2 once b1 arrived")
	}
}

func TestDuplicateInsertIsIdempotent(t *testing.T) {
	bc := New(1)
	snap := bc.Snapshot()
	b1 := proposerBlock(t, snap.ProposerTip, nil, 1)

	status1, _ := bc.Insert(b1)
	status2, _ := bc.Insert(b1)
	if status1 != StatusValid || status2 != StatusValid {
		t.Fatalf("expected both inserts valid, got %v then %v", status1, status2)
	}
	if bc.ProposerDepth() != 2 {
		t.Fatalf("expected depth to advance only once, got %d", bc.ProposerDepth())
	}
}

func TestVoterInsertUpdatesVoteCountAndChainLevel(t *testing.T) {
	bc := New(1)
	snap := bc.Snapshot()

	prop := proposerBlock(t, snap.ProposerTip, nil, 1)
	bc.Insert(prop)
	propHash := mustHash(t, prop)

	vsnap := bc.Snapshot()
	vote := voterBlock(t, vsnap.VoterTips[0], 1, []crypto.H256{propHash}, 1)
	status, err := bc.Insert(vote)
	if err != nil || status != StatusValid {
		t.Fatalf("insert vote: status=%v err=%v", status, err)
	}

	if got := bc.VotesFor(propHash); got != 1 {
		t.Fatalf("expected vote count 1, got %d", got)
	}
}

func TestUnrefProposersTracksFrontier(t *testing.T) {
	bc := New(1)
	snap := bc.Snapshot()

	b1 := proposerBlock(t, snap.ProposerTip, nil, 1)
	bc.Insert(b1)
	h1 := mustHash(t, b1)

	snap2 := bc.Snapshot()
	found := false
	for _, h := range snap2.UnrefProposers {
		if h == h1 {
			found = true
		}
	}
	if !found {
		t.Fatal("expected b1 in unref_proposers before it is referenced")
	}

	b2 := proposerBlock(t, h1, nil, 2)
	bc.Insert(b2)
	h2 := mustHash(t, b2)

	snap3 := bc.Snapshot()
	for _, h := range snap3.UnrefProposers {
		if h == h1 {
			t.Fatal("expected b1 removed from unref_proposers once referenced as parent")
		}
	}
	stillThere := false
	for _, h := range snap3.UnrefProposers {
		if h == h2 {
			stillThere = true
		}
	}
	if !stillThere {
		t.Fatal("expected b2 to remain in unref_proposers")
	}
}
