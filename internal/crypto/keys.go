package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// KeyPair bundles an Ed25519 signing key with its derived address.
type KeyPair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
	Address    H160
}

// GenerateKeyPair produces a fresh Ed25519 keypair and its derived address.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	return &KeyPair{
		PublicKey:  pub,
		PrivateKey: priv,
		Address:    AddressFromPubKeyBytes(pub),
	}, nil
}

// KeyPairFromSeed derives a deterministic keypair from a 32-byte seed. Used
// by simulation and test tooling that needs reproducible keys; production
// key generation must use GenerateKeyPair.
func KeyPairFromSeed(seed []byte) (*KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &KeyPair{
		PublicKey:  pub,
		PrivateKey: priv,
		Address:    AddressFromPubKeyBytes(pub),
	}, nil
}

// Sign produces an Ed25519 signature over msg.
func (kp *KeyPair) Sign(msg []byte) []byte {
	return ed25519.Sign(kp.PrivateKey, msg)
}

// VerifySignature reports whether sig is a valid Ed25519 signature over msg
// under pubKey. A malformed public key is treated as a verification failure,
// never a panic or error return — callers are on the hot path of validating
// untrusted network input.
func VerifySignature(pubKey, msg, sig []byte) bool {
	if len(pubKey) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pubKey), msg, sig)
}
