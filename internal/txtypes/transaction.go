// Package txtypes defines the UTXO transaction model: inputs, outputs,
// unsigned and signed transactions, and their canonical encoding (a
// canonical Encode/Decode pair plus a content hash).
package txtypes

import (
	"fmt"

	"github.com/prism-labs/prismd/internal/codec"
	"github.com/prism-labs/prismd/internal/crypto"
)

// UtxoInput references one output of a prior transaction.
type UtxoInput struct {
	PrevTxHash crypto.H256
	OutIndex   uint8
}

// UtxoOutput pays value to an address.
type UtxoOutput struct {
	Recipient crypto.H160
	Value     uint32
}

// Transaction is the unsigned body: an ordered list of inputs and outputs.
type Transaction struct {
	Inputs  []UtxoInput
	Outputs []UtxoOutput
}

// Encode writes the canonical encoding of the unsigned transaction body.
func (tx *Transaction) Encode() ([]byte, error) {
	w := codec.NewWriter(64)
	w.WriteCount(len(tx.Inputs))
	for _, in := range tx.Inputs {
		w.WriteHash256(in.PrevTxHash)
		w.WriteUint8(in.OutIndex)
	}
	w.WriteCount(len(tx.Outputs))
	for _, out := range tx.Outputs {
		w.WriteHash160(out.Recipient)
		w.WriteUint32(out.Value)
	}
	return w.Bytes(), nil
}

// Hash returns the content hash of the unsigned transaction body. A
// SignedTransaction's hash is the hash of this body only — the signature
// and public key are not covered.
func (tx *Transaction) Hash() (crypto.H256, error) {
	return crypto.HashOf(tx)
}

// DecodeTransaction reads an unsigned transaction body from r.
func DecodeTransaction(r *codec.Reader) (*Transaction, error) {
	nIn, err := r.ReadCount(codec.MaxSequenceLen)
	if err != nil {
		return nil, fmt.Errorf("decode tx inputs count: %w", err)
	}
	tx := &Transaction{
		Inputs:  make([]UtxoInput, nIn),
		Outputs: nil,
	}
	for i := 0; i < nIn; i++ {
		hash, err := r.ReadHash256()
		if err != nil {
			return nil, fmt.Errorf("decode tx input %d hash: %w", i, err)
		}
		idx, err := r.ReadUint8()
		if err != nil {
			return nil, fmt.Errorf("decode tx input %d index: %w", i, err)
		}
		tx.Inputs[i] = UtxoInput{PrevTxHash: hash, OutIndex: idx}
	}
	nOut, err := r.ReadCount(codec.MaxSequenceLen)
	if err != nil {
		return nil, fmt.Errorf("decode tx outputs count: %w", err)
	}
	tx.Outputs = make([]UtxoOutput, nOut)
	for i := 0; i < nOut; i++ {
		addr, err := r.ReadHash160()
		if err != nil {
			return nil, fmt.Errorf("decode tx output %d address: %w", i, err)
		}
		value, err := r.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("decode tx output %d value: %w", i, err)
		}
		tx.Outputs[i] = UtxoOutput{Recipient: addr, Value: value}
	}
	return tx, nil
}

// SignedTransaction is a Transaction together with an Ed25519 signature
// over the transaction's hash and the public key that produced it.
type SignedTransaction struct {
	Tx        Transaction
	Signature []byte
	PublicKey []byte
}

// Hash returns the hash of the unsigned body, which is the identity of the
// signed transaction for every mempool and DAG purpose.
func (stx *SignedTransaction) Hash() (crypto.H256, error) {
	return stx.Tx.Hash()
}

// VerifySignature reports whether Signature is a valid signature by
// PublicKey over the transaction's hash.
func (stx *SignedTransaction) VerifySignature() bool {
	hash, err := stx.Tx.Hash()
	if err != nil {
		return false
	}
	return crypto.VerifySignature(stx.PublicKey, hash[:], stx.Signature)
}

// Encode writes the canonical encoding of the signed transaction.
func (stx *SignedTransaction) Encode() ([]byte, error) {
	txBytes, err := stx.Tx.Encode()
	if err != nil {
		return nil, err
	}
	w := codec.NewWriter(len(txBytes) + 128)
	w.WriteRaw(txBytes)
	w.WriteVarBytes(stx.Signature)
	w.WriteVarBytes(stx.PublicKey)
	return w.Bytes(), nil
}

// DecodeSignedTransaction reads a signed transaction from r.
func DecodeSignedTransaction(r *codec.Reader) (*SignedTransaction, error) {
	tx, err := DecodeTransaction(r)
	if err != nil {
		return nil, err
	}
	sig, err := r.ReadVarBytes(codec.MaxSequenceLen)
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}
	pub, err := r.ReadVarBytes(codec.MaxSequenceLen)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	return &SignedTransaction{Tx: *tx, Signature: sig, PublicKey: pub}, nil
}

// DecodeSignedTransactions reads a count-prefixed sequence of signed
// transactions.
func DecodeSignedTransactions(r *codec.Reader) ([]SignedTransaction, error) {
	n, err := r.ReadCount(codec.MaxSequenceLen)
	if err != nil {
		return nil, fmt.Errorf("decode tx sequence count: %w", err)
	}
	txs := make([]SignedTransaction, n)
	for i := 0; i < n; i++ {
		stx, err := DecodeSignedTransaction(r)
		if err != nil {
			return nil, fmt.Errorf("decode tx %d: %w", i, err)
		}
		txs[i] = *stx
	}
	return txs, nil
}

// Equal reports whether two UtxoInputs reference the same output.
func (in UtxoInput) Equal(other UtxoInput) bool {
	return in.PrevTxHash == other.PrevTxHash && in.OutIndex == other.OutIndex
}
