// Command prismd runs a Prism-style proposer/voter-DAG node: mining and
// ledger confirmation wired to shared DAG, mempool, and UTXO state, with no
// gossip dispatcher or network transport attached. It starts every service, waits for a shutdown signal,
// then stops them in turn.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prism-labs/prismd/internal/config"
	"github.com/prism-labs/prismd/internal/crypto"
	"github.com/prism-labs/prismd/internal/dag"
	"github.com/prism-labs/prismd/internal/debugserver"
	"github.com/prism-labs/prismd/internal/ledger"
	"github.com/prism-labs/prismd/internal/logger"
	"github.com/prism-labs/prismd/internal/mempool"
	"github.com/prism-labs/prismd/internal/mining"
	"github.com/prism-labs/prismd/internal/utxo"
)

var log = logger.Get("NODE")

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "prismd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.LogDir != "" {
		if err := logger.InitFileRotation(cfg.LogDir, "prismd.log", 10); err != nil {
			return fmt.Errorf("init log rotation: %w", err)
		}
	}
	defer logger.Sync()

	keyPair, err := loadOrCreateKeyPair(cfg.KeyFile)
	if err != nil {
		return fmt.Errorf("load keypair: %w", err)
	}

	difficulty, err := parseDifficulty(cfg.Difficulty)
	if err != nil {
		return fmt.Errorf("parse difficulty: %w", err)
	}

	bc := dag.New(cfg.VoterChains)
	mp := mempool.New()
	state := utxo.New()

	// A real deployment wires gossip.NewDispatcher(bc, mp) to a transport
	// (TCP listener, peer dialer) here; this entrypoint runs the core
	// consensus services standalone.

	miner := mining.New(bc, mp, keyPair, nullAnnouncer{}, difficulty, 0, 64)
	minerCtx := miner.Run(nowMicros)
	minerCtx.Start(time.Duration(cfg.MineInterval) * time.Millisecond)

	mgr := ledger.New(bc, state, cfg.Beta, cfg.Quantile)
	ledgerCtx := mgr.Run()
	ledgerCtx.Start(time.Duration(cfg.LedgerInterval) * time.Millisecond)

	var dbg *debugserver.Server
	if cfg.DebugHTTPAddr != "" || cfg.DebugGRPCAddr != "" {
		dbg = debugserver.New(bc, mp, state)
		if cfg.DebugHTTPAddr != "" {
			if err := dbg.ServeHTTP(cfg.DebugHTTPAddr); err != nil {
				return fmt.Errorf("start debug http server: %w", err)
			}
		}
		if cfg.DebugGRPCAddr != "" {
			if err := dbg.ServeGRPC(cfg.DebugGRPCAddr); err != nil {
				return fmt.Errorf("start debug grpc server: %w", err)
			}
		}
	}

	log.Infow("prismd started", "voter_chains", cfg.VoterChains, "miner_address", keyPair.Address.String())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Infow("prismd shutting down")
	minerCtx.Exit()
	ledgerCtx.Exit()
	minerCtx.Wait()
	ledgerCtx.Wait()
	if dbg != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		dbg.Close(ctx)
	}
	return nil
}

// nullAnnouncer discards mined-block announcements when no network layer is
// wired in; a real deployment passes an Announcer backed by gossip
// broadcast instead.
type nullAnnouncer struct{}

func (nullAnnouncer) AnnounceBlock(hash crypto.H256) {
	log.Debugw("mined block (no network layer attached)", "hash", hash.String())
}

func nowMicros() int64 {
	return time.Now().UnixMicro()
}

func parseDifficulty(hexStr string) (crypto.H256, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return crypto.H256{}, err
	}
	if len(raw) != crypto.HashSize {
		return crypto.H256{}, fmt.Errorf("difficulty must be %d bytes, got %d", crypto.HashSize, len(raw))
	}
	var h crypto.H256
	copy(h[:], raw)
	return h, nil
}

func loadOrCreateKeyPair(path string) (*crypto.KeyPair, error) {
	if data, err := os.ReadFile(path); err == nil {
		if len(data) != 32 {
			return nil, fmt.Errorf("key file %s: expected 32-byte seed, got %d bytes", path, len(data))
		}
		return crypto.KeyPairFromSeed(data)
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, kp.PrivateKey.Seed(), 0o600); err != nil {
		return nil, fmt.Errorf("write key file: %w", err)
	}
	return kp, nil
}
