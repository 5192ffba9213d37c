package openpgp

import (
	"bytes"
	"testing"

	"golang.org/x/crypto/ed25519"
)

func TestDeriveSeedDeterministic(t *testing.T) {
	a := DeriveSeed([]byte("correct horse battery staple"), []byte("alice@example.com"), 1)
	b := DeriveSeed([]byte("correct horse battery staple"), []byte("alice@example.com"), 1)
	if !bytes.Equal(a, b) {
		t.Fatal("same passphrase and uid produced different seeds")
	}
	c := DeriveSeed([]byte("correct horse battery staple"), []byte("bob@example.com"), 1)
	if bytes.Equal(a, c) {
		t.Fatal("different uid produced the same seed")
	}
	if len(a) != 64 {
		t.Fatalf("seed length = %d, want 64", len(a))
	}
}

func TestGenerateSigningKeyDeterministic(t *testing.T) {
	seed := DeriveSeed([]byte("hunter2"), []byte("carol@example.com"), 1)
	g1 := GenerateSigningKey(seed, 1700000000)
	g2 := GenerateSigningKey(seed, 1700000000)
	if g1.Secret.KeyID != g2.Secret.KeyID {
		t.Fatal("same seed and creation time produced different key IDs")
	}

	g3 := GenerateSigningKey(seed, 1700000001)
	if g1.Secret.KeyID == g3.Secret.KeyID {
		t.Fatal("different creation time produced the same key ID (fingerprint ignores it)")
	}
}

func TestGenerateSigningKeyPacketFraming(t *testing.T) {
	seed := DeriveSeed([]byte("hunter2"), []byte("dave@example.com"), 1)
	g := GenerateSigningKey(seed, 1700000000)

	var buf bytes.Buffer
	if err := g.WritePublicKeyPacket(&buf); err != nil {
		t.Fatal(err)
	}
	parsed, rest, err := parsePacket(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 0 {
		t.Fatal("trailing bytes after public key packet")
	}
	if parsed.Tag != TagPublicKey {
		t.Fatalf("tag = %d, want %d", parsed.Tag, TagPublicKey)
	}
	if parsed.Body[0] != 4 {
		t.Fatalf("key version = %d, want 4", parsed.Body[0])
	}
	if PubKeyAlgo(parsed.Body[5]) != PubKeyEdDSA {
		t.Fatalf("pubkey algo = %d, want EdDSA", parsed.Body[5])
	}
}

func TestUnencryptedSecretKeyPacketRoundTrip(t *testing.T) {
	seed := DeriveSeed([]byte("hunter2"), []byte("erin@example.com"), 1)
	g := GenerateSigningKey(seed, 1700000000)

	var buf bytes.Buffer
	if err := g.WriteSecretKeyPacket(&buf, nil); err != nil {
		t.Fatal(err)
	}
	parsed, _, err := parsePacket(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Tag != TagSecretKey {
		t.Fatalf("tag = %d, want %d", parsed.Tag, TagSecretKey)
	}
	// s2k usage octet 0 means the secret material is unencrypted.
	pubBody := g.publicKeyBody()
	if parsed.Body[len(pubBody)] != 0 {
		t.Fatalf("s2k usage octet = %d, want 0", parsed.Body[len(pubBody)])
	}
}

func TestEncryptedSecretKeyPacketUsesIteratedS2K(t *testing.T) {
	seed := DeriveSeed([]byte("hunter2"), []byte("frank@example.com"), 1)
	g := GenerateSigningKey(seed, 1700000000)

	var buf bytes.Buffer
	if err := g.WriteSecretKeyPacket(&buf, []byte("protect-me")); err != nil {
		t.Fatal(err)
	}
	parsed, _, err := parsePacket(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	pubBody := g.publicKeyBody()
	tail := parsed.Body[len(pubBody):]
	if tail[0] != 254 {
		t.Fatalf("s2k usage octet = %d, want 254", tail[0])
	}
	if tail[1] != 9 {
		t.Fatalf("symmetric algo = %d, want 9 (AES-256)", tail[1])
	}
	if tail[2] != 3 {
		t.Fatalf("s2k type = %d, want 3 (iterated and salted)", tail[2])
	}
}

func TestSelfSignVerifiesWithEd25519(t *testing.T) {
	seed := DeriveSeed([]byte("hunter2"), []byte("grace@example.com"), 1)
	g := GenerateSigningKey(seed, 1700000000)

	const uid = "grace@example.com"
	const when = int64(1700000000)
	sig, err := g.SelfSign(uid, when, &Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(sig.Data) != 2 {
		t.Fatalf("EdDSA signature should carry 2 MPIs, got %d", len(sig.Data))
	}

	// Recompute the exact digest SelfSign fed its signer, then verify the
	// packet's raw (r, s) values against it directly with ed25519.
	pubBody := g.publicKeyBody()
	uidBytes := []byte(uid)
	md := NewDigestContext()
	if err := md.Enable(HashSHA256); err != nil {
		t.Fatal(err)
	}
	md.Write([]byte{0x99, byte(len(pubBody) >> 8), byte(len(pubBody))})
	md.Write(pubBody)
	md.Write([]byte{0xb4,
		byte(len(uidBytes) >> 24), byte(len(uidBytes) >> 16),
		byte(len(uidBytes) >> 8), byte(len(uidBytes))})
	md.Write(uidBytes)

	hashedLen := len(sig.HashedSubpackets) - 2
	md.Write([]byte{sig.Version})
	md.Write([]byte{sig.SigClass})
	md.Write([]byte{byte(sig.PubKeyAlgo), byte(sig.DigestAlgo)})
	md.Write(sig.HashedSubpackets)
	n := uint32(hashedLen) + 6
	md.Write([]byte{sig.Version, 0xff, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})

	digest, err := md.Finalize(HashSHA256)
	if err != nil {
		t.Fatal(err)
	}

	r, _ := mpiDecode(sig.Data[0], 32)
	s, _ := mpiDecode(sig.Data[1], 32)
	raw := append(append([]byte{}, r...), s...)

	pub := g.edKey.Public().(ed25519.PublicKey)
	if !ed25519.Verify(pub, digest, raw) {
		t.Fatal("self-certification signature does not verify against the recomputed trailer digest")
	}
}
