// Package txgen generates deterministic synthetic transactions for local
// testing and simulation: a fixed, deterministically-keyed account set spent
// round-robin. Not part of the consensus path.
package txgen

import (
	"fmt"

	"github.com/prism-labs/prismd/internal/crypto"
	"github.com/prism-labs/prismd/internal/txtypes"
)

// Account is one of a fixed, deterministically-keyed set of simulated
// wallets the generator spends from and pays to.
type Account struct {
	KeyPair *crypto.KeyPair
}

// Generator produces a deterministic stream of valid-looking transactions
// spending round-robin across a fixed account set whose keys depend only on
// the account index, so repeated runs of a simulation are reproducible.
type Generator struct {
	accounts []Account
	spend    []txtypes.UtxoInput // next spendable output per account, round-robin
	next     int
}

// NewGenerator derives numAccounts deterministic keypairs, each fixed by its
// account index, and wires each to spend the genesis output genesisOutputFor(account index)
// supplies, mirroring tx_generator.rs's fixed genesis allocation.
func NewGenerator(numAccounts int, genesisOutputFor func(i int) txtypes.UtxoInput) (*Generator, error) {
	accounts := make([]Account, numAccounts)
	spend := make([]txtypes.UtxoInput, numAccounts)
	for i := 0; i < numAccounts; i++ {
		kp, err := deterministicKeyPair(i)
		if err != nil {
			return nil, fmt.Errorf("derive account %d: %w", i, err)
		}
		accounts[i] = Account{KeyPair: kp}
		spend[i] = genesisOutputFor(i)
	}
	return &Generator{accounts: accounts, spend: spend}, nil
}

// Next produces one signed transaction spending the current account's
// tracked output and paying the full value to the next account in the
// round-robin, advancing both the spender pointer and its tracked output.
func (g *Generator) Next(value uint32) (txtypes.SignedTransaction, error) {
	n := len(g.accounts)
	from := g.next
	to := (g.next + 1) % n
	g.next = to

	tx := txtypes.Transaction{
		Inputs:  []txtypes.UtxoInput{g.spend[from]},
		Outputs: []txtypes.UtxoOutput{{Recipient: g.accounts[to].KeyPair.Address, Value: value}},
	}
	hash, err := tx.Hash()
	if err != nil {
		return txtypes.SignedTransaction{}, err
	}
	sig := g.accounts[from].KeyPair.Sign(hash[:])

	g.spend[from] = txtypes.UtxoInput{PrevTxHash: hash, OutIndex: 0}

	return txtypes.SignedTransaction{
		Tx:        tx,
		Signature: sig,
		PublicKey: g.accounts[from].KeyPair.PublicKey,
	}, nil
}

// deterministicKeyPair derives a reproducible Ed25519 keypair for account
// index i. Simulation-only: never use this for a key that must be secret.
func deterministicKeyPair(i int) (*crypto.KeyPair, error) {
	seed := make([]byte, 32)
	for j := range seed {
		seed[j] = byte((i*31 + j*17) % 256)
	}
	return crypto.KeyPairFromSeed(seed)
}
