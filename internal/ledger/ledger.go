// Package ledger implements the ledger manager: per-level leader
// confirmation via a statistical voting-race rule, transaction linearisation
// across confirmed leaders, and commitment to UTXO state. It runs a
// confirm-then-linearise-then-commit loop behind the same control-channel
// wrapper as internal/mining.
package ledger

import (
	"math"
	"time"

	"github.com/prism-labs/prismd/internal/blocktypes"
	"github.com/prism-labs/prismd/internal/crypto"
	"github.com/prism-labs/prismd/internal/dag"
	"github.com/prism-labs/prismd/internal/logger"
	"github.com/prism-labs/prismd/internal/txtypes"
	"github.com/prism-labs/prismd/internal/utxo"
)

var log = logger.Get("LDGR")

type control struct {
	start  bool
	period time.Duration
	exit   bool
}

// Context drives a running ledger manager, mirroring mining.Context.
type Context struct {
	ctrl chan control
	done chan struct{}
}

// Start begins (or retunes) the periodic confirmation loop.
func (c *Context) Start(period time.Duration) {
	select {
	case c.ctrl <- control{start: true, period: period}:
	default:
	}
}

// Exit stops the loop after its current iteration.
func (c *Context) Exit() {
	select {
	case c.ctrl <- control{exit: true}:
	default:
	}
}

// Wait blocks until the loop has returned following Exit.
func (c *Context) Wait() { <-c.done }

// Manager runs the leader-confirmation / linearisation / commit loop.
type Manager struct {
	bc    *dag.Blockchain
	state *utxo.State

	beta float64
	q    float64
	m    int

	lastLevelProcessed     uint64
	proposerBlocksProcessed map[crypto.H256]struct{}
	txConfirmed             map[crypto.H256]struct{}
}

// New returns a Manager confirming leaders with adversarial fraction beta
// and confidence quantile q, over a DAG with m voter chains.
func New(bc *dag.Blockchain, state *utxo.State, beta, q float64) *Manager {
	return &Manager{
		bc:                      bc,
		state:                   state,
		beta:                    beta,
		q:                       q,
		m:                       bc.NumChains(),
		proposerBlocksProcessed: make(map[crypto.H256]struct{}),
		txConfirmed:             make(map[crypto.H256]struct{}),
	}
}

// Run starts the periodic loop in a new goroutine and returns a Context.
func (mgr *Manager) Run() *Context {
	ctx := &Context{ctrl: make(chan control, 4), done: make(chan struct{})}
	go mgr.loop(ctx)
	return ctx
}

func (mgr *Manager) loop(ctx *Context) {
	defer close(ctx.done)

	running := false
	period := time.Second

	for {
		select {
		case c := <-ctx.ctrl:
			if c.exit {
				return
			}
			if c.start {
				running = true
				period = c.period
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
				period = c.period
			}
			continue
		}

		mgr.RunOnce()
		time.Sleep(period)
	}
}

// RunOnce executes one confirmation/linearisation/commit iteration.
// Exported so tests and a manual debug trigger can drive it deterministically
// without the background goroutine.
func (mgr *Manager) RunOnce() {
	leaders := mgr.confirmLeaders()
	if len(leaders) == 0 {
		return
	}

	txs := mgr.linearise(leaders)
	mgr.commit(txs)
}

// confirmLeaders runs step 1: attempts to confirm a leader at each level
// from lastLevelProcessed+1 up to the current proposer depth, stopping at
// the first failure.
func (mgr *Manager) confirmLeaders() []crypto.H256 {
	depth := mgr.bc.ProposerDepth()
	var leaders []crypto.H256
	for level := mgr.lastLevelProcessed + 1; level <= depth; level++ {
		leader, ok := mgr.confirmLeaderAt(level)
		if !ok {
			break
		}
		leaders = append(leaders, leader)
		mgr.lastLevelProcessed = level
	}
	return leaders
}

type blockStats struct {
	hash crypto.H256
	lcb  float64
}

// confirmLeaderAt implements the statistical confirmation rule for a single
// level.
func (mgr *Manager) confirmLeaderAt(level uint64) (crypto.H256, bool) {
	proposers := mgr.bc.Level2AllProposers(level)
	if len(proposers) == 0 {
		return crypto.H256{}, false
	}

	votesByBlock := make(map[crypto.H256][]dag.Vote, len(proposers))
	var vTotal, bTotal uint64
	for _, p := range proposers {
		votes := mgr.bc.VotersOf(p)
		votesByBlock[p] = votes
		bTotal += uint64(len(votes))
		for _, v := range votes {
			vTotal += v.Depth
		}
	}
	if float64(vTotal) <= (3.0/5.0)*float64(mgr.m) {
		return crypto.H256{}, false
	}

	lambdaAdv := (float64(bTotal) / float64(vTotal)) * (mgr.beta / (1 - mgr.beta))

	stats := make([]blockStats, 0, len(proposers))
	var sumLCB float64
	for _, p := range proposers {
		var muB, sigma2B float64
		for _, v := range votesByBlock[p] {
			prob := removalProbability(int(v.Depth), lambdaAdv, mgr.beta)
			meanBern := 1 - prob
			muB += meanBern
			sigma2B += meanBern * (1 - meanBern)
		}
		lcb := muB - mgr.q*math.Sqrt(sigma2B)
		if lcb < 0 {
			lcb = 0
		}
		stats = append(stats, blockStats{hash: p, lcb: lcb})
		sumLCB += lcb
	}

	residual := float64(mgr.m) - sumLCB
	if residual < 0 {
		residual = 0
	}

	var leader blockStats
	found := false
	for _, s := range stats {
		if !found || s.lcb > leader.lcb || (s.lcb == leader.lcb && s.hash.Less(leader.hash)) {
			leader = s
			found = true
		}
	}

	if leader.lcb <= residual {
		return crypto.H256{}, false
	}
	for _, s := range stats {
		if s.hash == leader.hash {
			continue
		}
		if s.lcb+residual >= leader.lcb {
			return crypto.H256{}, false
		}
	}

	return leader.hash, true
}

// linearise implements step 2: for each confirmed leader in level order,
// flatten its unprocessed proposer references (plus its parent) and its own
// transactions into one ordered, duplicate-free sequence.
func (mgr *Manager) linearise(leaders []crypto.H256) []txtypes.SignedTransaction {
	var out []txtypes.SignedTransaction

	for _, leader := range leaders {
		parent, refs, ok := mgr.bc.ProposerContentRefs(leader)
		if !ok {
			continue
		}

		chain := append(append([]crypto.H256{}, refs...), parent)
		for _, ref := range chain {
			if _, done := mgr.proposerBlocksProcessed[ref]; done {
				continue
			}
			mgr.proposerBlocksProcessed[ref] = struct{}{}
			if blk, ok := mgr.bc.GetBlock(ref); ok && blk.Content.Kind == blocktypes.KindProposer {
				out = append(out, blk.Content.Proposer.Transactions...)
			}
		}

		if _, done := mgr.proposerBlocksProcessed[leader]; !done {
			mgr.proposerBlocksProcessed[leader] = struct{}{}
			if blk, ok := mgr.bc.GetBlock(leader); ok && blk.Content.Kind == blocktypes.KindProposer {
				out = append(out, blk.Content.Proposer.Transactions...)
			}
		}
	}

	return out
}

// commit implements step 3: validate-and-apply each transaction in order,
// skipping ones already confirmed in a prior run.
func (mgr *Manager) commit(txs []txtypes.SignedTransaction) {
	for i := range txs {
		hash, err := txs[i].Hash()
		if err != nil {
			continue
		}
		if _, done := mgr.txConfirmed[hash]; done {
			continue
		}
		if mgr.state.ValidateAndApply(&txs[i]) {
			mgr.txConfirmed[hash] = struct{}{}
		} else {
			log.Debugw("skipped invalid transaction in leader batch", "hash", hash.String())
		}
	}
}
