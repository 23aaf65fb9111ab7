// Package mining implements superblock construction and atomic sortition:
// one proof-of-work attempt per header, covering all m+1 possible block
// variants at once.
package mining

import (
	"math/big"
	"time"

	"github.com/prism-labs/prismd/internal/blocktypes"
	"github.com/prism-labs/prismd/internal/crypto"
	"github.com/prism-labs/prismd/internal/dag"
	"github.com/prism-labs/prismd/internal/logger"
	"github.com/prism-labs/prismd/internal/mempool"
	"github.com/prism-labs/prismd/internal/merkle"
	"github.com/prism-labs/prismd/internal/sortition"
)

var log = logger.Get("MINR")

// Announcer is the outbound half of the miner: it is told about every block
// the miner itself produces and inserts, so it can be gossiped.
type Announcer interface {
	AnnounceBlock(hash crypto.H256)
}

// control is the message set sent down a Context's channel.
type control struct {
	start    bool
	lambda   time.Duration
	exit     bool
}

// Context is the handle a node operator holds to drive a running miner:
// Start(λ) begins (or retunes) mining at the given per-attempt sleep
// interval; Exit stops it permanently. Both are non-blocking sends on a
// buffered channel, drained by the miner's loop on its own schedule.
type Context struct {
	ctrl chan control
	done chan struct{}
}

// Start begins mining, or updates the cooperative sleep interval of an
// already-running miner.
func (c *Context) Start(lambda time.Duration) {
	select {
	case c.ctrl <- control{start: true, lambda: lambda}:
	default:
	}
}

// Exit signals the miner to stop after its current attempt completes.
func (c *Context) Exit() {
	select {
	case c.ctrl <- control{exit: true}:
	default:
	}
}

// Wait blocks until the miner loop has returned following Exit.
func (c *Context) Wait() { <-c.done }

// Miner owns the mining loop: it reads DAG/mempool snapshots, assembles a
// superblock, searches for a PoW solution, and on success sortitions,
// inserts, and announces exactly one block.
type Miner struct {
	bc         *dag.Blockchain
	mp         *mempool.Mempool
	kp         *crypto.KeyPair
	announcer  Announcer
	m          int
	difficulty crypto.H256
	minerID    int32
	txBatch    int
}

// New returns a Miner for a DAG with m voter chains, mining under a fixed
// difficulty target, drawing up to txBatch transactions per attempt from mp.
// kp is kept on the Miner but mined blocks are not signed; a block names its
// miner only through the header's MinerID.
func New(bc *dag.Blockchain, mp *mempool.Mempool, kp *crypto.KeyPair, announcer Announcer, difficulty crypto.H256, minerID int32, txBatch int) *Miner {
	return &Miner{
		bc:         bc,
		mp:         mp,
		kp:         kp,
		announcer:  announcer,
		m:          bc.NumChains(),
		difficulty: difficulty,
		minerID:    minerID,
		txBatch:    txBatch,
	}
}

// Run starts the miner's control loop in the current goroutine's caller's
// background via a new goroutine, and returns a Context to drive it. now
// supplies a monotonic microsecond clock for the header timestamp;
// production callers pass a wrapper over time.Now, tests pass a fake.
func (m *Miner) Run(now func() int64) *Context {
	ctx := &Context{ctrl: make(chan control, 4), done: make(chan struct{})}
	go m.loop(ctx, now)
	return ctx
}

func (m *Miner) loop(ctx *Context, now func() int64) {
	defer close(ctx.done)

	running := false
	lambda := 100 * time.Millisecond
	var nonce uint32

	for {
		select {
		case c := <-ctx.ctrl:
			if c.exit {
				return
			}
			if c.start {
				running = true
				lambda = c.lambda
			}
		default:
		}

		if !running {
			c := <-ctx.ctrl
			if c.exit {
				return
			}
			if c.start {
				running = true
				lambda = c.lambda
			}
			continue
		}

		if m.attempt(now, &nonce) {
			nonce = 0
		}

		time.Sleep(lambda)
	}
}

// attempt runs one superblock assembly and one PoW check. It reports
// whether it found and emitted a block.
func (m *Miner) attempt(now func() int64, nonce *uint32) bool {
	snap := m.bc.Snapshot()

	contents := make([]blocktypes.Content, m.m+1)

	txs := m.mp.TakeOldest(m.txBatch)
	contents[0] = blocktypes.NewProposerContent(snap.ProposerTip, snap.UnrefProposers, txs)

	for c := 0; c < m.m; c++ {
		contents[c+1] = blocktypes.NewVoterContent(snap.VoterTips[c], uint32(c+1), snap.PendingVotes[c])
	}

	leaves := make([]crypto.H256, len(contents))
	for i := range contents {
		h, err := contents[i].Hash()
		if err != nil {
			log.Errorw("hash superblock content", "index", i, "err", err)
			return false
		}
		leaves[i] = h
	}
	tree := merkle.New(leaves)

	header := blocktypes.Header{
		ParentHash: snap.ProposerTip,
		Nonce:      *nonce,
		Difficulty: m.difficulty,
		Timestamp:  now(),
		MerkleRoot: tree.Root(),
		MinerID:    m.minerID,
	}
	*nonce++

	hash, err := header.Hash()
	if err != nil {
		log.Errorw("hash header", "err", err)
		return false
	}

	if sortition.HashInt(hash).Cmp(sortition.HashInt(m.difficulty)) >= 0 {
		return false // no PoW solution this attempt
	}

	res, ok := sortition.ClassifyHash(hash, m.difficulty, m.m)
	if !ok {
		return false
	}

	proof := tree.Proof(res.Index)
	blk := &blocktypes.Block{
		Header:         header,
		Content:        contents[res.Index],
		SortitionProof: proof,
		SortitionIndex: res.Index,
	}

	status, err := m.bc.Insert(blk)
	if err != nil {
		log.Errorw("insert own block", "err", err)
		return false
	}
	if status != dag.StatusValid {
		log.Warnw("own block not accepted", "status", status)
		return false
	}

	log.Infow("mined block", "hash", hash.String(), "index", res.Index)
	if m.announcer != nil {
		m.announcer.AnnounceBlock(hash)
	}
	return true
}

// DifficultyFromTarget builds an H256 difficulty target from a big.Int as a
// big-endian value left-padded with zero bytes; a target wider than 256 bits
// keeps only its low 32 bytes.
func DifficultyFromTarget(target *big.Int) crypto.H256 {
	var h crypto.H256
	b := target.Bytes()
	if len(b) > crypto.HashSize {
		b = b[len(b)-crypto.HashSize:]
	}
	copy(h[crypto.HashSize-len(b):], b)
	return h
}
