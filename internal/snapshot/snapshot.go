// Package snapshot persists an optional, best-effort copy of the UTXO set
// to a local LevelDB database, purely as a debugging aid during local
// testing. It is never read back into live consensus state; this node keeps
// no persistent consensus storage.
package snapshot

import (
	"encoding/binary"

	"github.com/prism-labs/prismd/internal/crypto"
	"github.com/prism-labs/prismd/internal/txtypes"
	"github.com/syndtr/goleveldb/leveldb"
)

// Store wraps a LevelDB handle used only for the debug UTXO snapshot.
type Store struct {
	db *leveldb.DB
}

// Open opens (creating if absent) a LevelDB database at dir.
func Open(dir string) (*Store, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func key(in txtypes.UtxoInput) []byte {
	b := make([]byte, crypto.HashSize+1)
	copy(b, in.PrevTxHash[:])
	b[crypto.HashSize] = in.OutIndex
	return b
}

// Put writes one UTXO entry.
func (s *Store) Put(in txtypes.UtxoInput, out txtypes.UtxoOutput) error {
	val := make([]byte, crypto.AddressSize+4)
	copy(val, out.Recipient[:])
	binary.BigEndian.PutUint32(val[crypto.AddressSize:], out.Value)
	return s.db.Put(key(in), val, nil)
}

// Delete removes one UTXO entry, e.g. once its output is spent.
func (s *Store) Delete(in txtypes.UtxoInput) error {
	return s.db.Delete(key(in), nil)
}

// LoadAll iterates every stored UTXO entry, invoking fn for each, for
// inspecting a snapshot. Nothing in the node uses it to rebuild utxo.State.
func (s *Store) LoadAll(fn func(txtypes.UtxoInput, txtypes.UtxoOutput)) error {
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()

	for iter.Next() {
		k := iter.Key()
		if len(k) != crypto.HashSize+1 {
			continue
		}
		var in txtypes.UtxoInput
		copy(in.PrevTxHash[:], k[:crypto.HashSize])
		in.OutIndex = k[crypto.HashSize]

		v := iter.Value()
		if len(v) != crypto.AddressSize+4 {
			continue
		}
		var out txtypes.UtxoOutput
		copy(out.Recipient[:], v[:crypto.AddressSize])
		out.Value = binary.BigEndian.Uint32(v[crypto.AddressSize:])

		fn(in, out)
	}
	return iter.Error()
}
