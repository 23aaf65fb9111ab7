package txtypes

import (
	"bytes"
	"testing"

	"github.com/prism-labs/prismd/internal/codec"
	"github.com/prism-labs/prismd/internal/crypto"
)

func TestSignedTransactionEncodeDecodeRoundTrip(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}

	tx := Transaction{
		Inputs:  []UtxoInput{{PrevTxHash: crypto.Sum256([]byte("a")), OutIndex: 1}},
		Outputs: []UtxoOutput{{Recipient: kp.Address, Value: 42}},
	}
	hash, err := tx.Hash()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	stx := SignedTransaction{Tx: tx, Signature: kp.Sign(hash[:]), PublicKey: kp.PublicKey}

	enc, err := stx.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeSignedTransaction(codec.NewReader(bytes.NewReader(enc)))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.VerifySignature() {
		t.Fatal("expected decoded transaction to verify")
	}
	gotHash, _ := got.Hash()
	if gotHash != hash {
		t.Fatal("expected decoded transaction hash to match original")
	}
}

func TestTransactionHashExcludesSignature(t *testing.T) {
	kp, _ := crypto.GenerateKeyPair()
	tx := Transaction{
		Inputs:  []UtxoInput{{PrevTxHash: crypto.Sum256([]byte("a")), OutIndex: 0}},
		Outputs: []UtxoOutput{{Recipient: kp.Address, Value: 1}},
	}
	hash, _ := tx.Hash()

	sig1 := kp.Sign(hash[:])
	stx1 := SignedTransaction{Tx: tx, Signature: sig1, PublicKey: kp.PublicKey}
	h1, _ := stx1.Hash()

	kp2, _ := crypto.GenerateKeyPair()
	stx2 := SignedTransaction{Tx: tx, Signature: kp2.Sign(hash[:]), PublicKey: kp2.PublicKey}
	h2, _ := stx2.Hash()

	if h1 != h2 {
		t.Fatal("expected signed transaction hash to depend only on the unsigned body")
	}
}
