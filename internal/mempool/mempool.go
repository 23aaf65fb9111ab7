// Package mempool implements the insertion-ordered transaction pool:
// indexed by hash and by spent input, with iterative dependent eviction,
// guarded by a single exclusive lock.
package mempool

import (
	"sort"
	"sync"

	"github.com/prism-labs/prismd/internal/crypto"
	"github.com/prism-labs/prismd/internal/txtypes"
)

type entry struct {
	tx    txtypes.SignedTransaction
	index uint32
}

// Mempool is a single-lock transaction pool ordered by arrival. Zero value
// is not usable; construct with New.
type Mempool struct {
	mu       sync.Mutex
	byHash   map[crypto.H256]entry
	byInput  map[txtypes.UtxoInput]crypto.H256
	byIndex  map[uint32]crypto.H256
	counter  uint32
}

// New returns an empty Mempool.
func New() *Mempool {
	return &Mempool{
		byHash:  make(map[crypto.H256]entry),
		byInput: make(map[txtypes.UtxoInput]crypto.H256),
		byIndex: make(map[uint32]crypto.H256),
	}
}

// Insert adds tx if its hash is unseen and none of its inputs conflict with
// an already-pooled transaction. Reports whether it was accepted.
func (mp *Mempool) Insert(tx txtypes.SignedTransaction) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	hash, err := tx.Hash()
	if err != nil {
		return false
	}
	if _, exists := mp.byHash[hash]; exists {
		return false
	}
	for _, in := range tx.Tx.Inputs {
		if _, conflict := mp.byInput[in]; conflict {
			return false
		}
	}

	idx := mp.counter
	mp.counter++
	mp.byHash[hash] = entry{tx: tx, index: idx}
	mp.byIndex[idx] = hash
	for _, in := range tx.Tx.Inputs {
		mp.byInput[in] = hash
	}
	return true
}

// Get returns the transaction stored under hash, if any.
func (mp *Mempool) Get(hash crypto.H256) (txtypes.SignedTransaction, bool) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	e, ok := mp.byHash[hash]
	return e.tx, ok
}

// Contains reports whether hash is currently pooled.
func (mp *Mempool) Contains(hash crypto.H256) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	_, ok := mp.byHash[hash]
	return ok
}

// HasConflict reports whether any of inputs is already spent by a pooled
// transaction.
func (mp *Mempool) HasConflict(inputs []txtypes.UtxoInput) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	for _, in := range inputs {
		if _, ok := mp.byInput[in]; ok {
			return true
		}
	}
	return false
}

// Remove drops hash from all three indices. No-op if absent.
func (mp *Mempool) Remove(hash crypto.H256) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.removeLocked(hash)
}

func (mp *Mempool) removeLocked(hash crypto.H256) {
	e, ok := mp.byHash[hash]
	if !ok {
		return
	}
	delete(mp.byHash, hash)
	delete(mp.byIndex, e.index)
	for _, in := range e.tx.Tx.Inputs {
		if mp.byInput[in] == hash {
			delete(mp.byInput, in)
		}
	}
}

// RemoveDependents removes any pooled transaction spending out, then
// recursively removes transactions spending that transaction's own outputs.
// Implemented iteratively with an explicit worklist to bound stack depth
// under a long dependent chain.
func (mp *Mempool) RemoveDependents(out txtypes.UtxoInput) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	worklist := []txtypes.UtxoInput{out}
	for len(worklist) > 0 {
		cur := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		hash, ok := mp.byInput[cur]
		if !ok {
			continue
		}
		e := mp.byHash[hash]
		mp.removeLocked(hash)
		for i := range e.tx.Tx.Outputs {
			worklist = append(worklist, txtypes.UtxoInput{PrevTxHash: hash, OutIndex: uint8(i)})
		}
	}
}

// TakeOldest returns up to n pooled transactions in ascending insertion
// order, without removing them.
func (mp *Mempool) TakeOldest(n int) []txtypes.SignedTransaction {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if n > len(mp.byIndex) {
		n = len(mp.byIndex)
	}
	out := make([]txtypes.SignedTransaction, 0, n)
	// byIndex is a map, so its live keys are collected and sorted on every
	// call to recover insertion order.
	indices := make([]uint32, 0, len(mp.byIndex))
	for idx := range mp.byIndex {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	for _, idx := range indices {
		if len(out) >= n {
			break
		}
		out = append(out, mp.byHash[mp.byIndex[idx]].tx)
	}
	return out
}

// Len reports the number of pooled transactions.
func (mp *Mempool) Len() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return len(mp.byHash)
}
