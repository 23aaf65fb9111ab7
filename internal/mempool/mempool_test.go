package mempool

import (
	"testing"

	"github.com/prism-labs/prismd/internal/crypto"
	"github.com/prism-labs/prismd/internal/txtypes"
)

func signedTx(t *testing.T, kp *crypto.KeyPair, prevHash crypto.H256, outIdx uint8, value uint32) txtypes.SignedTransaction {
	t.Helper()
	tx := txtypes.Transaction{
		Inputs:  []txtypes.UtxoInput{{PrevTxHash: prevHash, OutIndex: outIdx}},
		Outputs: []txtypes.UtxoOutput{{Recipient: kp.Address, Value: value}},
	}
	hash, err := tx.Hash()
	if err != nil {
		t.Fatalf("hash tx: %v", err)
	}
	sig := kp.Sign(hash[:])
	return txtypes.SignedTransaction{Tx: tx, Signature: sig, PublicKey: kp.PublicKey}
}

func testKeyPair(t *testing.T) *crypto.KeyPair {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	return kp
}

func TestInsertRejectsDuplicateHash(t *testing.T) {
	mp := New()
	kp := testKeyPair(t)
	tx := signedTx(t, kp, crypto.Sum256([]byte("genesis")), 0, 10)

	if !mp.Insert(tx) {
		t.Fatal("expected first insert to succeed")
	}
	if mp.Insert(tx) {
		t.Fatal("expected duplicate insert to be rejected")
	}
}

func TestInsertRejectsConflictingInput(t *testing.T) {
	mp := New()
	kp := testKeyPair(t)
	prev := crypto.Sum256([]byte("genesis"))
	tx1 := signedTx(t, kp, prev, 0, 10)
	tx2 := signedTx(t, kp, prev, 0, 20) // same input, different output value -> different hash

	if !mp.Insert(tx1) {
		t.Fatal("expected first insert to succeed")
	}
	if mp.Insert(tx2) {
		t.Fatal("expected conflicting-input insert to be rejected")
	}
	if !mp.HasConflict(tx2.Tx.Inputs) {
		t.Fatal("expected HasConflict to report true")
	}
}

func TestTakeOldestPreservesFIFOOrder(t *testing.T) {
	mp := New()
	kp := testKeyPair(t)

	var hashes []crypto.H256
	for i := 0; i < 5; i++ {
		tx := signedTx(t, kp, crypto.Sum256([]byte{byte(i)}), 0, uint32(i))
		mp.Insert(tx)
		h, _ := tx.Hash()
		hashes = append(hashes, h)
	}

	oldest := mp.TakeOldest(3)
	if len(oldest) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(oldest))
	}
	for i, tx := range oldest {
		h, _ := tx.Hash()
		if h != hashes[i] {
			t.Fatalf("index %d: expected FIFO order to be preserved", i)
		}
	}
}

func TestRemoveDependentsCascades(t *testing.T) {
	mp := New()
	kp := testKeyPair(t)

	root := signedTx(t, kp, crypto.Sum256([]byte("genesis")), 0, 10)
	rootHash, _ := root.Hash()
	mp.Insert(root)

	child := signedTx(t, kp, rootHash, 0, 10)
	childHash, _ := child.Hash()
	mp.Insert(child)

	grandchild := signedTx(t, kp, childHash, 0, 10)
	mp.Insert(grandchild)

	mp.RemoveDependents(txtypes.UtxoInput{PrevTxHash: rootHash, OutIndex: 0})

	if mp.Contains(childHash) {
		t.Fatal("expected child to be evicted")
	}
	gHash, _ := grandchild.Hash()
	if mp.Contains(gHash) {
		t.Fatal("expected grandchild to be evicted transitively")
	}
}
