package utxo

import (
	"testing"

	"github.com/prism-labs/prismd/internal/crypto"
	"github.com/prism-labs/prismd/internal/txtypes"
)

func TestValidateAndApplySpendsAndCredits(t *testing.T) {
	state := New()
	kpA, _ := crypto.GenerateKeyPair()
	kpB, _ := crypto.GenerateKeyPair()

	genesisIn := txtypes.UtxoInput{PrevTxHash: crypto.Sum256([]byte("genesis")), OutIndex: 0}
	state.Seed(genesisIn, txtypes.UtxoOutput{Recipient: kpA.Address, Value: 100})

	tx := txtypes.Transaction{
		Inputs:  []txtypes.UtxoInput{genesisIn},
		Outputs: []txtypes.UtxoOutput{{Recipient: kpB.Address, Value: 100}},
	}
	hash, _ := tx.Hash()
	signed := txtypes.SignedTransaction{Tx: tx, Signature: kpA.Sign(hash[:]), PublicKey: kpA.PublicKey}

	if !state.ValidateAndApply(&signed) {
		t.Fatal("expected valid transaction to apply")
	}
	if state.Has(genesisIn) {
		t.Fatal("expected spent input to be removed")
	}
	if state.Balance(kpB.Address) != 100 {
		t.Fatalf("expected recipient balance 100, got %d", state.Balance(kpB.Address))
	}
}

func TestValidateRejectsDoubleSpend(t *testing.T) {
	state := New()
	kpA, _ := crypto.GenerateKeyPair()
	kpB, _ := crypto.GenerateKeyPair()

	genesisIn := txtypes.UtxoInput{PrevTxHash: crypto.Sum256([]byte("genesis")), OutIndex: 0}
	state.Seed(genesisIn, txtypes.UtxoOutput{Recipient: kpA.Address, Value: 100})

	tx := txtypes.Transaction{
		Inputs:  []txtypes.UtxoInput{genesisIn},
		Outputs: []txtypes.UtxoOutput{{Recipient: kpB.Address, Value: 100}},
	}
	hash, _ := tx.Hash()
	signed := txtypes.SignedTransaction{Tx: tx, Signature: kpA.Sign(hash[:]), PublicKey: kpA.PublicKey}

	if !state.ValidateAndApply(&signed) {
		t.Fatal("expected first spend to succeed")
	}
	if state.Validate(&signed) {
		t.Fatal("expected re-validating an already-spent input to fail")
	}
}

func TestValidateRejectsBadSignature(t *testing.T) {
	state := New()
	kpA, _ := crypto.GenerateKeyPair()
	kpB, _ := crypto.GenerateKeyPair()

	genesisIn := txtypes.UtxoInput{PrevTxHash: crypto.Sum256([]byte("genesis")), OutIndex: 0}
	state.Seed(genesisIn, txtypes.UtxoOutput{Recipient: kpA.Address, Value: 100})

	tx := txtypes.Transaction{
		Inputs:  []txtypes.UtxoInput{genesisIn},
		Outputs: []txtypes.UtxoOutput{{Recipient: kpB.Address, Value: 100}},
	}
	hash, _ := tx.Hash()
	wrongKey, _ := crypto.GenerateKeyPair()
	signed := txtypes.SignedTransaction{Tx: tx, Signature: wrongKey.Sign(hash[:]), PublicKey: kpA.PublicKey}

	if state.Validate(&signed) {
		t.Fatal("expected signature from the wrong key to fail validation")
	}
}

func TestValidateRejectsSumMismatch(t *testing.T) {
	state := New()
	kpA, _ := crypto.GenerateKeyPair()
	kpB, _ := crypto.GenerateKeyPair()

	genesisIn := txtypes.UtxoInput{PrevTxHash: crypto.Sum256([]byte("genesis")), OutIndex: 0}
	state.Seed(genesisIn, txtypes.UtxoOutput{Recipient: kpA.Address, Value: 100})

	tx := txtypes.Transaction{
		Inputs:  []txtypes.UtxoInput{genesisIn},
		Outputs: []txtypes.UtxoOutput{{Recipient: kpB.Address, Value: 999}},
	}
	hash, _ := tx.Hash()
	signed := txtypes.SignedTransaction{Tx: tx, Signature: kpA.Sign(hash[:]), PublicKey: kpA.PublicKey}

	if state.Validate(&signed) {
		t.Fatal("expected input/output sum mismatch to fail validation")
	}
}
