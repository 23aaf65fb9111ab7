// Package gossip defines the network message set and the pure, in-memory
// receive-side dispatch logic: on NewBlockHashes, request what's unseen; on
// GetBlocks/GetTransactions, reply with what exists; on Blocks/Transactions,
// validate and insert, then re-broadcast or chase the missing parent. This
// package owns no transport — it is wired to one by the caller via the
// Sender interface, keeping message payloads separate from connection
// handling.
package gossip

import (
	"sync"

	"github.com/prism-labs/prismd/internal/blocktypes"
	"github.com/prism-labs/prismd/internal/crypto"
	"github.com/prism-labs/prismd/internal/dag"
	"github.com/prism-labs/prismd/internal/mempool"
	"github.com/prism-labs/prismd/internal/txtypes"
	"github.com/prism-labs/prismd/internal/validate"
)

// Message is the tagged union of every wire message a peer may send.
// Exactly one field is populated, chosen by Kind.
type Message struct {
	Kind Kind

	Ping               *PingMsg
	Pong               *PongMsg
	NewBlockHashes     *HashesMsg
	GetBlocks          *HashesMsg
	Blocks             *BlocksMsg
	NewTransactionHashes *HashesMsg
	GetTransactions    *HashesMsg
	Transactions       *TransactionsMsg
}

// Kind discriminates the Message variants.
type Kind uint8

const (
	KindPing Kind = iota
	KindPong
	KindNewBlockHashes
	KindGetBlocks
	KindBlocks
	KindNewTransactionHashes
	KindGetTransactions
	KindTransactions
)

// PingMsg/PongMsg carry a liveness nonce.
type PingMsg struct{ Nonce uint64 }
type PongMsg struct{ Nonce uint64 }

// HashesMsg carries a sequence of hashes: used for NewBlockHashes,
// GetBlocks, NewTransactionHashes, and GetTransactions alike.
type HashesMsg struct{ Hashes []crypto.H256 }

// BlocksMsg fulfills a GetBlocks request.
type BlocksMsg struct{ Blocks []blocktypes.Block }

// TransactionsMsg fulfills a GetTransactions request.
type TransactionsMsg struct{ Transactions []txtypes.SignedTransaction }

// Sender is the outbound half of a peer connection. A Dispatcher calls it
// to reply to or re-broadcast past the single peer it received a message
// from.
type Sender interface {
	Send(Message)
	Broadcast(Message)
}

// Dispatcher implements the message-receive behavior against a Blockchain
// and Mempool. It holds no transport state of its own; one Dispatcher
// instance is shared by every connection's read loop.
type Dispatcher struct {
	bc *dag.Blockchain
	mp *mempool.Mempool
	m  int

	mu        sync.Mutex
	requested requestTracker
}

// NewDispatcher returns a Dispatcher wired to bc and mp.
func NewDispatcher(bc *dag.Blockchain, mp *mempool.Mempool) *Dispatcher {
	return &Dispatcher{bc: bc, mp: mp, m: bc.NumChains(), requested: newRequestTracker()}
}

// Handle processes one received message from peer, issuing replies or
// re-broadcasts through peer.
func (d *Dispatcher) Handle(msg Message, peer Sender) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch msg.Kind {
	case KindPing:
		peer.Send(Message{Kind: KindPong, Pong: &PongMsg{Nonce: msg.Ping.Nonce}})

	case KindPong:
		// liveness only; no action required.

	case KindNewBlockHashes:
		var want []crypto.H256
		for _, h := range msg.NewBlockHashes.Hashes {
			if d.bc.HasSeen(h) || d.requested.blocks.seen(h) {
				continue
			}
			d.requested.blocks.mark(h)
			want = append(want, h)
		}
		if len(want) > 0 {
			peer.Send(Message{Kind: KindGetBlocks, GetBlocks: &HashesMsg{Hashes: want}})
		}

	case KindGetBlocks:
		var blocks []blocktypes.Block
		for _, h := range msg.GetBlocks.Hashes {
			if b, ok := d.bc.GetBlock(h); ok {
				blocks = append(blocks, *b)
			}
		}
		if len(blocks) > 0 {
			peer.Send(Message{Kind: KindBlocks, Blocks: &BlocksMsg{Blocks: blocks}})
		}

	case KindBlocks:
		for i := range msg.Blocks.Blocks {
			blk := &msg.Blocks.Blocks[i]
			if validate.Block(blk, d.m) != validate.Ok {
				continue
			}
			status, err := d.bc.Insert(blk)
			if err != nil {
				continue
			}
			hash, err := blk.Hash()
			if err != nil {
				continue
			}
			d.requested.blocks.clear(hash)
			switch status {
			case dag.StatusValid:
				peer.Broadcast(Message{Kind: KindNewBlockHashes, NewBlockHashes: &HashesMsg{Hashes: []crypto.H256{hash}}})
			case dag.StatusOrphan:
				missing := blk.Content.ParentHash()
				if !d.requested.blocks.seen(missing) {
					d.requested.blocks.mark(missing)
					peer.Send(Message{Kind: KindGetBlocks, GetBlocks: &HashesMsg{Hashes: []crypto.H256{missing}}})
				}
			}
		}

	case KindNewTransactionHashes:
		var want []crypto.H256
		for _, h := range msg.NewTransactionHashes.Hashes {
			if d.mp.Contains(h) || d.requested.txs.seen(h) {
				continue
			}
			d.requested.txs.mark(h)
			want = append(want, h)
		}
		if len(want) > 0 {
			peer.Send(Message{Kind: KindGetTransactions, GetTransactions: &HashesMsg{Hashes: want}})
		}

	case KindGetTransactions:
		var txs []txtypes.SignedTransaction
		for _, h := range msg.GetTransactions.Hashes {
			if tx, ok := d.mp.Get(h); ok {
				txs = append(txs, tx)
			}
		}
		if len(txs) > 0 {
			peer.Send(Message{Kind: KindTransactions, Transactions: &TransactionsMsg{Transactions: txs}})
		}

	case KindTransactions:
		for _, tx := range msg.Transactions.Transactions {
			hash, err := tx.Hash()
			if err != nil {
				continue
			}
			d.requested.txs.clear(hash)
			if !tx.VerifySignature() {
				continue
			}
			if d.mp.Insert(tx) {
				peer.Broadcast(Message{Kind: KindNewTransactionHashes, NewTransactionHashes: &HashesMsg{Hashes: []crypto.H256{hash}}})
			}
		}
	}
}

// requestTracker remembers in-flight requests so the dispatcher never asks
// twice for the same hash before it arrives or times out elsewhere.
type requestTracker struct {
	blocks hashSet
	txs    hashSet
}

func newRequestTracker() requestTracker {
	return requestTracker{blocks: newHashSet(), txs: newHashSet()}
}

type hashSet struct{ m map[crypto.H256]struct{} }

func newHashSet() hashSet { return hashSet{m: make(map[crypto.H256]struct{})} }

func (s hashSet) seen(h crypto.H256) bool { _, ok := s.m[h]; return ok }
func (s hashSet) mark(h crypto.H256)      { s.m[h] = struct{}{} }
func (s hashSet) clear(h crypto.H256)     { delete(s.m, h) }
