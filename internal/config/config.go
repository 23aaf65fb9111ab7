// Package config parses node startup parameters with
// github.com/jessevdk/go-flags: consensus parameters (m, β, q, λ), the
// mining difficulty and key material path, and the node's network and
// debug endpoints.
package config

import (
	"fmt"

	flags "github.com/jessevdk/go-flags"
)

// Config holds every operator-provided node parameter.
type Config struct {
	VoterChains   int     `long:"voter-chains" short:"m" description:"number of parallel voter chains" default:"10"`
	Beta          float64 `long:"beta" description:"assumed adversarial mining fraction" default:"0.1"`
	Quantile      float64 `long:"quantile" description:"confidence quantile for leader confirmation" default:"0.0001"`
	MineInterval  int     `long:"mine-interval-ms" description:"cooperative sleep between mining attempts, in milliseconds" default:"100"`
	LedgerInterval int    `long:"ledger-interval-ms" description:"ledger manager poll interval, in milliseconds" default:"1000"`
	Difficulty    string  `long:"difficulty" description:"256-bit PoW target, as a hex string" default:"00000fffffffffffffffffffffffffffffffffffffffffffffffffffffffff"`
	KeyFile       string  `long:"key-file" description:"path to an Ed25519 keypair file; generated on first run if absent" default:"prismd.key"`
	ListenAddr    string  `long:"listen" description:"gossip listen address; parsed but unused, prismd attaches no network transport" default:":9191"`
	ConnectPeers  []string `long:"connect" description:"peer address (repeatable); parsed but unused, prismd dials no peers"`
	DebugHTTPAddr string  `long:"debug-http" description:"read-only introspection HTTP listen address; empty disables it" default:""`
	DebugGRPCAddr string  `long:"debug-grpc" description:"read-only introspection gRPC listen address; empty disables it" default:""`
	SnapshotDir   string  `long:"snapshot-dir" description:"local leveldb UTXO snapshot directory; parsed but unused, prismd writes no snapshots" default:""`
	LogDir        string  `long:"log-dir" description:"log file directory; empty logs to stderr only" default:""`
}

// Load parses args (typically os.Args[1:]) into a Config, applying
// defaults for anything unset.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	if cfg.VoterChains < 1 {
		return nil, fmt.Errorf("voter-chains must be >= 1, got %d", cfg.VoterChains)
	}
	if cfg.Beta <= 0 || cfg.Beta >= 1 {
		return nil, fmt.Errorf("beta must be in (0,1), got %f", cfg.Beta)
	}
	return cfg, nil
}
