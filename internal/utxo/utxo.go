// Package utxo implements the confirmed ledger's unspent-output set:
// transaction validation and application against a single-lock, map-backed
// UTXO set.
package utxo

import (
	"sync"

	"github.com/prism-labs/prismd/internal/crypto"
	"github.com/prism-labs/prismd/internal/txtypes"
)

// State is the UTXO set: a single-lock map from spendable outputs to their
// value and recipient.
type State struct {
	mu  sync.Mutex
	set map[txtypes.UtxoInput]txtypes.UtxoOutput
}

// New returns an empty UTXO state.
func New() *State {
	return &State{set: make(map[txtypes.UtxoInput]txtypes.UtxoOutput)}
}

// Seed credits an initial output directly into the set, for genesis
// allocations. Not used on the transaction-application path.
func (s *State) Seed(in txtypes.UtxoInput, out txtypes.UtxoOutput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set[in] = out
}

// Validate reports whether tx may be applied: its signature verifies, every
// input references a currently-unspent output, inputs are not
// double-referenced within the transaction itself, and the input sum equals
// the output sum.
func (s *State) Validate(tx *txtypes.SignedTransaction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validateLocked(tx)
}

func (s *State) validateLocked(tx *txtypes.SignedTransaction) bool {
	if !tx.VerifySignature() {
		return false
	}
	if len(tx.Tx.Inputs) == 0 {
		return false
	}

	seen := make(map[txtypes.UtxoInput]struct{}, len(tx.Tx.Inputs))
	var inSum uint64
	for _, in := range tx.Tx.Inputs {
		if _, dup := seen[in]; dup {
			return false
		}
		seen[in] = struct{}{}

		out, ok := s.set[in]
		if !ok {
			return false
		}
		inSum += uint64(out.Value)
	}

	var outSum uint64
	for _, out := range tx.Tx.Outputs {
		outSum += uint64(out.Value)
	}

	return inSum == outSum
}

func (s *State) applyLocked(tx *txtypes.SignedTransaction) error {
	hash, err := tx.Hash()
	if err != nil {
		return err
	}

	for _, in := range tx.Tx.Inputs {
		delete(s.set, in)
	}
	for i, out := range tx.Tx.Outputs {
		s.set[txtypes.UtxoInput{PrevTxHash: hash, OutIndex: uint8(i)}] = out
	}
	return nil
}

// Apply spends tx's inputs and credits its outputs. Callers must have
// already validated tx (Apply does not re-check and will corrupt the set if
// applied to an invalid transaction).
func (s *State) Apply(tx *txtypes.SignedTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(tx)
}

// ValidateAndApply performs Validate then, on success, Apply, as one
// coherent operation under a single lock acquisition.
func (s *State) ValidateAndApply(tx *txtypes.SignedTransaction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.validateLocked(tx) {
		return false
	}
	return s.applyLocked(tx) == nil
}

// Has reports whether an output is currently unspent.
func (s *State) Has(in txtypes.UtxoInput) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.set[in]
	return ok
}

// Balance sums the value of every unspent output paying addr. Intended for
// debug introspection only; it is not on the consensus path.
func (s *State) Balance(addr crypto.H160) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total uint64
	for _, out := range s.set {
		if out.Recipient == addr {
			total += uint64(out.Value)
		}
	}
	return total
}
