// Package crypto provides the content-addressing and signing primitives
// used throughout the DAG: 32-byte SHA-256 block/transaction hashes,
// 20-byte addresses, and Ed25519 signing.
package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashSize is the number of bytes in an H256.
const HashSize = 32

// AddressSize is the number of bytes in an H160 address.
const AddressSize = 20

// H256 is a 32-byte content hash.
type H256 [HashSize]byte

// ZeroHash is the all-zero H256, used as a sentinel parent for genesis blocks.
var ZeroHash = H256{}

// String returns the hex encoding of the hash.
func (h H256) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the all-zero hash.
func (h H256) IsZero() bool {
	return h == ZeroHash
}

// Less reports whether h sorts lexicographically before other. Used to
// break ties deterministically (e.g. the ledger's leader tie-break).
func (h H256) Less(other H256) bool {
	for i := 0; i < HashSize; i++ {
		if h[i] != other[i] {
			return h[i] < other[i]
		}
	}
	return false
}

// Cmp is a three-way comparator: -1, 0, or 1.
func (h H256) Cmp(other H256) int {
	for i := 0; i < HashSize; i++ {
		if h[i] != other[i] {
			if h[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// BigEndianUint64 interprets the first 8 bytes of the hash as a big-endian
// uint64. Sortition does not use it; it works on the full 256-bit value
// (sortition.HashInt).
func (h H256) BigEndianUint64() uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(h[i])
	}
	return v
}

// H160 is a 20-byte address.
type H160 [AddressSize]byte

// String returns the hex encoding of the address.
func (a H160) String() string {
	return hex.EncodeToString(a[:])
}

// Hashable is implemented by any type that has a canonical encoding and
// therefore a well-defined content hash.
type Hashable interface {
	Encode() ([]byte, error)
}

// HashOf returns the SHA-256 content hash of h's canonical encoding.
func HashOf(h Hashable) (H256, error) {
	b, err := h.Encode()
	if err != nil {
		return H256{}, fmt.Errorf("encode for hashing: %w", err)
	}
	return Sum256(b), nil
}

// Sum256 is the raw SHA-256 digest of b, typed as an H256.
func Sum256(b []byte) H256 {
	return H256(sha256.Sum256(b))
}

// AddressFromPubKeyBytes derives an H160 address from the SHA-256 digest of
// an Ed25519 public key's canonical encoding, truncated to the low 20 bytes.
func AddressFromPubKeyBytes(pubKey []byte) H160 {
	digest := sha256.Sum256(pubKey)
	var addr H160
	copy(addr[:], digest[HashSize-AddressSize:])
	return addr
}
