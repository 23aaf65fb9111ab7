package crypto

import "testing"

func TestSignVerifyRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	msg := []byte("hello prism")
	sig := kp.Sign(msg)
	if !VerifySignature(kp.PublicKey, msg, sig) {
		t.Fatal("expected valid signature to verify")
	}
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	kp, _ := GenerateKeyPair()
	sig := kp.Sign([]byte("original"))
	if VerifySignature(kp.PublicKey, []byte("tampered"), sig) {
		t.Fatal("expected tampered message to fail verification")
	}
}

func TestVerifyRejectsMalformedPublicKey(t *testing.T) {
	if VerifySignature([]byte{1, 2, 3}, []byte("msg"), []byte("sig")) {
		t.Fatal("expected malformed public key to fail, not panic")
	}
}

func TestAddressFromPubKeyIsDeterministic(t *testing.T) {
	kp, _ := GenerateKeyPair()
	a1 := AddressFromPubKeyBytes(kp.PublicKey)
	a2 := AddressFromPubKeyBytes(kp.PublicKey)
	if a1 != a2 {
		t.Fatal("expected address derivation to be deterministic")
	}
	if a1 != kp.Address {
		t.Fatal("expected GenerateKeyPair's derived address to match AddressFromPubKeyBytes")
	}
}

func TestH256LessIsLexicographic(t *testing.T) {
	a := H256{0x01}
	b := H256{0x02}
	if !a.Less(b) {
		t.Fatal("expected 0x01... < 0x02...")
	}
	if b.Less(a) {
		t.Fatal("expected 0x02... to not be less than 0x01...")
	}
}
