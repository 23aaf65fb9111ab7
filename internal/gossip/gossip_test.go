package gossip

import (
	"testing"

	"github.com/prism-labs/prismd/internal/crypto"
	"github.com/prism-labs/prismd/internal/dag"
	"github.com/prism-labs/prismd/internal/mempool"
	"github.com/prism-labs/prismd/internal/txtypes"
)

type recordingSender struct {
	sent      []Message
	broadcast []Message
}

func (r *recordingSender) Send(m Message)      { r.sent = append(r.sent, m) }
func (r *recordingSender) Broadcast(m Message) { r.broadcast = append(r.broadcast, m) }

func TestNewBlockHashesRequestsUnseenOnly(t *testing.T) {
	bc := dag.New(1)
	mp := mempool.New()
	d := NewDispatcher(bc, mp)

	unseen := crypto.Sum256([]byte("unseen-block"))
	peer := &recordingSender{}
	d.Handle(Message{Kind: KindNewBlockHashes, NewBlockHashes: &HashesMsg{Hashes: []crypto.H256{unseen}}}, peer)

	if len(peer.sent) != 1 || peer.sent[0].Kind != KindGetBlocks {
		t.Fatalf("expected one GetBlocks request, got %+v", peer.sent)
	}
	if len(peer.sent[0].GetBlocks.Hashes) != 1 || peer.sent[0].GetBlocks.Hashes[0] != unseen {
		t.Fatalf("expected request for the unseen hash, got %+v", peer.sent[0].GetBlocks)
	}
}

func TestNewBlockHashesDoesNotRerequestInFlight(t *testing.T) {
	bc := dag.New(1)
	mp := mempool.New()
	d := NewDispatcher(bc, mp)

	unseen := crypto.Sum256([]byte("unseen-block"))
	peer := &recordingSender{}
	msg := Message{Kind: KindNewBlockHashes, NewBlockHashes: &HashesMsg{Hashes: []crypto.H256{unseen}}}
	d.Handle(msg, peer)
	d.Handle(msg, peer)

	if len(peer.sent) != 1 {
		t.Fatalf("expected only the first advertisement to trigger a request, got %d sends", len(peer.sent))
	}
}

func TestNewTransactionHashesRequestsUnpooledOnly(t *testing.T) {
	bc := dag.New(1)
	mp := mempool.New()
	d := NewDispatcher(bc, mp)

	kp, _ := crypto.GenerateKeyPair()
	tx := txtypes.Transaction{
		Inputs:  []txtypes.UtxoInput{{PrevTxHash: crypto.Sum256([]byte("in")), OutIndex: 0}},
		Outputs: []txtypes.UtxoOutput{{Recipient: kp.Address, Value: 1}},
	}
	hash, _ := tx.Hash()
	stx := txtypes.SignedTransaction{Tx: tx, Signature: kp.Sign(hash[:]), PublicKey: kp.PublicKey}
	mp.Insert(stx)

	peer := &recordingSender{}
	d.Handle(Message{Kind: KindNewTransactionHashes, NewTransactionHashes: &HashesMsg{Hashes: []crypto.H256{hash}}}, peer)

	if len(peer.sent) != 0 {
		t.Fatalf("expected no request for an already-pooled transaction, got %+v", peer.sent)
	}
}

func TestTransactionsInsertAndBroadcast(t *testing.T) {
	bc := dag.New(1)
	mp := mempool.New()
	d := NewDispatcher(bc, mp)

	kp, _ := crypto.GenerateKeyPair()
	tx := txtypes.Transaction{
		Inputs:  []txtypes.UtxoInput{{PrevTxHash: crypto.Sum256([]byte("in")), OutIndex: 0}},
		Outputs: []txtypes.UtxoOutput{{Recipient: kp.Address, Value: 1}},
	}
	hash, _ := tx.Hash()
	stx := txtypes.SignedTransaction{Tx: tx, Signature: kp.Sign(hash[:]), PublicKey: kp.PublicKey}

	peer := &recordingSender{}
	d.Handle(Message{Kind: KindTransactions, Transactions: &TransactionsMsg{Transactions: []txtypes.SignedTransaction{stx}}}, peer)

	if !mp.Contains(hash) {
		t.Fatal("expected transaction to be pooled")
	}
	if len(peer.broadcast) != 1 || peer.broadcast[0].Kind != KindNewTransactionHashes {
		t.Fatalf("expected a NewTransactionHashes broadcast, got %+v", peer.broadcast)
	}
}
