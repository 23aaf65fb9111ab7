// Package dag implements the proposer-tree/voter-trees DAG state machine:
// insertion with orphan buffering and cascade, tip/level tracking, and the
// snapshot views the miner and ledger manager read under one lock
// acquisition.
package dag

import (
	"fmt"
	"sync"

	"github.com/prism-labs/prismd/internal/blocktypes"
	"github.com/prism-labs/prismd/internal/crypto"
)

// Status is the outcome of an Insert call.
type Status int

const (
	// StatusValid means the block (or an identical prior insert of it) is
	// now part of the accepted DAG state.
	StatusValid Status = iota
	// StatusOrphan means a referenced dependency is missing; the block is
	// buffered and will be retried once that dependency arrives.
	StatusOrphan
	// StatusRejected means the block is structurally invalid and was not
	// buffered or accepted.
	StatusRejected
)

// Blockchain is the DAG state: one proposer tree plus m voter trees, all
// guarded by one exclusive lock.
type Blockchain struct {
	mu sync.Mutex

	m int

	blocksSeen   map[crypto.H256]*blocktypes.Block
	orphanBuffer map[crypto.H256][]*blocktypes.Block

	proposerLevel      map[crypto.H256]uint64
	proposerTip        crypto.H256
	proposerDepth      uint64
	level2proposer     map[uint64]crypto.H256
	level2allproposers map[uint64][]crypto.H256
	unrefProposers     map[crypto.H256]struct{}
	proposer2votecount map[crypto.H256]uint32

	voterLevel  []map[crypto.H256]uint64 // index 0..m-1 for chains 1..m
	voterTips   []crypto.H256
	voterDepths []uint64
	chain2level map[uint32]uint64

	genesisProposer crypto.H256
	genesisVoters   []crypto.H256
}

// New constructs a Blockchain with m voter chains and fresh genesis blocks
// for the proposer tree and every voter chain, each at level 1.
func New(m int) *Blockchain {
	bc := &Blockchain{
		m:                  m,
		blocksSeen:         make(map[crypto.H256]*blocktypes.Block),
		orphanBuffer:       make(map[crypto.H256][]*blocktypes.Block),
		proposerLevel:      make(map[crypto.H256]uint64),
		level2proposer:     make(map[uint64]crypto.H256),
		level2allproposers: make(map[uint64][]crypto.H256),
		unrefProposers:     make(map[crypto.H256]struct{}),
		proposer2votecount: make(map[crypto.H256]uint32),
		voterLevel:         make([]map[crypto.H256]uint64, m),
		voterTips:          make([]crypto.H256, m),
		voterDepths:        make([]uint64, m),
		chain2level:        make(map[uint32]uint64),
		genesisVoters:      make([]crypto.H256, m),
	}

	genesisProposer := &blocktypes.Block{
		Header:  blocktypes.Header{MinerID: -1},
		Content: blocktypes.NewProposerContent(crypto.ZeroHash, nil, nil),
	}
	gpHash, err := genesisProposer.Hash()
	if err != nil {
		panic(fmt.Sprintf("dag: hash genesis proposer: %v", err))
	}
	bc.blocksSeen[gpHash] = genesisProposer
	bc.proposerLevel[gpHash] = 1
	bc.level2proposer[1] = gpHash
	bc.level2allproposers[1] = []crypto.H256{gpHash}
	bc.proposerTip = gpHash
	bc.proposerDepth = 1
	bc.proposer2votecount[gpHash] = 0
	bc.unrefProposers[gpHash] = struct{}{}
	bc.genesisProposer = gpHash

	for c := 0; c < m; c++ {
		bc.voterLevel[c] = make(map[crypto.H256]uint64)
		genesisVoter := &blocktypes.Block{
			Header:  blocktypes.Header{MinerID: int32(c + 1)},
			Content: blocktypes.NewVoterContent(crypto.ZeroHash, uint32(c+1), nil),
		}
		gvHash, err := genesisVoter.Hash()
		if err != nil {
			panic(fmt.Sprintf("dag: hash genesis voter %d: %v", c+1, err))
		}
		bc.blocksSeen[gvHash] = genesisVoter
		bc.voterLevel[c][gvHash] = 1
		bc.voterTips[c] = gvHash
		bc.voterDepths[c] = 1
		bc.chain2level[uint32(c+1)] = 0
		bc.genesisVoters[c] = gvHash
	}

	return bc
}

// NumChains returns m, the number of voter chains.
func (bc *Blockchain) NumChains() int { return bc.m }

// Insert runs the full insertion algorithm, including the orphan cascade.
// It never panics: structural errors are returned, missing
// dependencies produce StatusOrphan, and a block already accepted is a
// no-op returning StatusValid.
func (bc *Blockchain) Insert(blk *blocktypes.Block) (Status, error) {
	hash, err := blk.Hash()
	if err != nil {
		return StatusRejected, fmt.Errorf("hash block: %w", err)
	}

	bc.mu.Lock()
	defer bc.mu.Unlock()

	status, err := bc.insertCoreLocked(hash, blk)
	if status == StatusValid {
		bc.cascadeLocked(hash)
	}
	return status, err
}

func (bc *Blockchain) isAcceptedLocked(hash crypto.H256) bool {
	if _, ok := bc.proposerLevel[hash]; ok {
		return true
	}
	for c := 0; c < bc.m; c++ {
		if _, ok := bc.voterLevel[c][hash]; ok {
			return true
		}
	}
	return false
}

func (bc *Blockchain) insertCoreLocked(hash crypto.H256, blk *blocktypes.Block) (Status, error) {
	bc.blocksSeen[hash] = blk // step 1: idempotent

	if bc.isAcceptedLocked(hash) {
		return StatusValid, nil // duplicate insert: step 1 was the only effect
	}

	switch blk.Content.Kind {
	case blocktypes.KindProposer:
		return bc.insertProposerLocked(hash, blk)
	case blocktypes.KindVoter:
		return bc.insertVoterLocked(hash, blk)
	default:
		return StatusRejected, fmt.Errorf("unknown content kind %d", blk.Content.Kind)
	}
}

func (bc *Blockchain) insertProposerLocked(hash crypto.H256, blk *blocktypes.Block) (Status, error) {
	c := blk.Content.Proposer
	if _, ok := bc.proposerLevel[c.ParentHash]; !ok {
		bc.orphanBuffer[c.ParentHash] = append(bc.orphanBuffer[c.ParentHash], blk)
		return StatusOrphan, nil
	}
	for _, ref := range c.ProposerRefs {
		if _, ok := bc.proposerLevel[ref]; !ok {
			bc.orphanBuffer[ref] = append(bc.orphanBuffer[ref], blk)
			return StatusOrphan, nil
		}
	}

	delete(bc.unrefProposers, c.ParentHash)
	for _, ref := range c.ProposerRefs {
		delete(bc.unrefProposers, ref)
	}
	bc.unrefProposers[hash] = struct{}{}

	level := bc.proposerLevel[c.ParentHash] + 1
	bc.proposerLevel[hash] = level
	if _, ok := bc.level2proposer[level]; !ok {
		bc.level2proposer[level] = hash
	}
	bc.level2allproposers[level] = append(bc.level2allproposers[level], hash)
	if level > bc.proposerDepth {
		bc.proposerDepth = level
		bc.proposerTip = hash
	}
	bc.proposer2votecount[hash] = 0

	return StatusValid, nil
}

func (bc *Blockchain) insertVoterLocked(hash crypto.H256, blk *blocktypes.Block) (Status, error) {
	v := blk.Content.Voter
	chainIdx := int(v.ChainNum) - 1
	if chainIdx < 0 || chainIdx >= bc.m {
		return StatusRejected, ruleError(ErrBadChainNum, "voter chain_num %d out of range [1,%d]", v.ChainNum, bc.m)
	}

	if _, ok := bc.voterLevel[chainIdx][v.ParentHash]; !ok {
		bc.orphanBuffer[v.ParentHash] = append(bc.orphanBuffer[v.ParentHash], blk)
		return StatusOrphan, nil
	}
	for _, vote := range v.Votes {
		if _, ok := bc.proposerLevel[vote]; !ok {
			bc.orphanBuffer[vote] = append(bc.orphanBuffer[vote], blk)
			return StatusOrphan, nil
		}
	}

	var maxVotedLevel uint64
	for _, vote := range v.Votes {
		bc.proposer2votecount[vote]++
		if l := bc.proposerLevel[vote]; l > maxVotedLevel {
			maxVotedLevel = l
		}
	}
	if maxVotedLevel > bc.chain2level[v.ChainNum] {
		bc.chain2level[v.ChainNum] = maxVotedLevel
	}

	level := bc.voterLevel[chainIdx][v.ParentHash] + 1
	bc.voterLevel[chainIdx][hash] = level
	if level > bc.voterDepths[chainIdx] {
		bc.voterDepths[chainIdx] = level
		bc.voterTips[chainIdx] = hash
	}

	return StatusValid, nil
}

// cascadeLocked retries every orphan waiting on hash, iteratively, so that a
// long chain of previously-buffered blocks cannot grow the call stack.
func (bc *Blockchain) cascadeLocked(hash crypto.H256) {
	worklist := []crypto.H256{hash}
	for len(worklist) > 0 {
		h := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		waiters, ok := bc.orphanBuffer[h]
		if !ok {
			continue
		}
		delete(bc.orphanBuffer, h)

		for _, w := range waiters {
			wHash, err := w.Hash()
			if err != nil {
				continue
			}
			status, _ := bc.insertCoreLocked(wHash, w)
			if status == StatusValid {
				worklist = append(worklist, wHash)
			}
		}
	}
}

// Snapshot is the coherent view of DAG state the miner reads under one lock
// acquisition before assembling a superblock.
type Snapshot struct {
	ProposerTip    crypto.H256
	UnrefProposers []crypto.H256
	VoterTips      []crypto.H256   // index 0..m-1
	PendingVotes   [][]crypto.H256 // index 0..m-1: level2proposer[L] for L in (chain2level[c], proposerDepth]
	ProposerDepth  uint64
}

// Snapshot returns the miner's input view in one lock acquisition.
func (bc *Blockchain) Snapshot() Snapshot {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	unref := make([]crypto.H256, 0, len(bc.unrefProposers))
	for h := range bc.unrefProposers {
		unref = append(unref, h)
	}

	voterTips := make([]crypto.H256, bc.m)
	copy(voterTips, bc.voterTips)

	pending := make([][]crypto.H256, bc.m)
	for c := 0; c < bc.m; c++ {
		from := bc.chain2level[uint32(c+1)]
		var votes []crypto.H256
		for l := from + 1; l <= bc.proposerDepth; l++ {
			if h, ok := bc.level2proposer[l]; ok {
				votes = append(votes, h)
			}
		}
		pending[c] = votes
	}

	return Snapshot{
		ProposerTip:    bc.proposerTip,
		UnrefProposers: unref,
		VoterTips:      voterTips,
		PendingVotes:   pending,
		ProposerDepth:  bc.proposerDepth,
	}
}

// HasSeen reports whether hash has ever been seen, accepted or orphaned —
// the gossip layer's dedup check before issuing GetBlocks.
func (bc *Blockchain) HasSeen(hash crypto.H256) bool {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	_, ok := bc.blocksSeen[hash]
	return ok
}

// GetBlock returns a previously seen block by hash.
func (bc *Blockchain) GetBlock(hash crypto.H256) (*blocktypes.Block, bool) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	b, ok := bc.blocksSeen[hash]
	return b, ok
}

// ProposerLevel returns the level of an accepted proposer block.
func (bc *Blockchain) ProposerLevel(hash crypto.H256) (uint64, bool) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	l, ok := bc.proposerLevel[hash]
	return l, ok
}

// ProposerDepth returns the current maximum proposer level.
func (bc *Blockchain) ProposerDepth() uint64 {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.proposerDepth
}

// Level2AllProposers returns every proposer block hash at level L.
func (bc *Blockchain) Level2AllProposers(level uint64) []crypto.H256 {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	src := bc.level2allproposers[level]
	out := make([]crypto.H256, len(src))
	copy(out, src)
	return out
}

// VotesFor returns the raw vote tally recorded against a proposer block.
func (bc *Blockchain) VotesFor(hash crypto.H256) uint32 {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.proposer2votecount[hash]
}

// VoterTipLevel returns the tip level of voter chain c (1-indexed).
func (bc *Blockchain) VoterTipLevel(c uint32) uint64 {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.voterDepths[c-1]
}

// ProposerContentRefs returns the parent hash and proposer_refs of an
// accepted proposer block, used by the ledger manager's linearisation pass.
func (bc *Blockchain) ProposerContentRefs(hash crypto.H256) (parent crypto.H256, refs []crypto.H256, ok bool) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	blk, exists := bc.blocksSeen[hash]
	if !exists || blk.Content.Kind != blocktypes.KindProposer {
		return crypto.H256{}, nil, false
	}
	return blk.Content.Proposer.ParentHash, blk.Content.Proposer.ProposerRefs, true
}

// VotersOf returns the set of voter blocks (chain, hash) across all chains
// that cast a vote for the given proposer hash, together with each voting
// block's depth: (tip level of that voter chain) - (level of the voting
// block) + 1.
func (bc *Blockchain) VotersOf(proposerHash crypto.H256) []Vote {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	var votes []Vote
	for hash, blk := range bc.blocksSeen {
		if blk.Content.Kind != blocktypes.KindVoter {
			continue
		}
		v := blk.Content.Voter
		chainIdx := int(v.ChainNum) - 1
		if chainIdx < 0 || chainIdx >= bc.m {
			continue
		}
		level, ok := bc.voterLevel[chainIdx][hash]
		if !ok {
			continue
		}
		for _, voted := range v.Votes {
			if voted == proposerHash {
				depth := bc.voterDepths[chainIdx] - level + 1
				votes = append(votes, Vote{ChainNum: v.ChainNum, BlockHash: hash, Depth: depth})
				break
			}
		}
	}
	return votes
}

// Vote is one voter block's vote for a proposer block, with its computed
// vote depth.
type Vote struct {
	ChainNum  uint32
	BlockHash crypto.H256
	Depth     uint64
}
