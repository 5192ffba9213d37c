package openpgp

import (
	"os"
	"path/filepath"
	"testing"
)

func testKey(t *testing.T, uid string, created int64) *SecretKey {
	t.Helper()
	seed := DeriveSeed([]byte("test passphrase"), []byte(uid), 1)
	return GenerateSigningKey(seed, created).Secret
}

func TestSignFileEmbeddedPacketOrder(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "message.txt")
	if err := os.WriteFile(input, []byte("hello, signed world"), 0644); err != nil {
		t.Fatal(err)
	}
	outPath := filepath.Join(dir, "out.gpg")

	k1 := testKey(t, "alice@example.com", 1700000000)
	k2 := testKey(t, "bob@example.com", 1700000000)

	req := &SignRequest{
		Filenames: []string{input},
		Keys:      []*SecretKey{k1, k2},
		Options:   &Options{Outfile: outPath},
	}
	if err := SignFile(req); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}

	// Expect: one-pass headers in reverse key order (bob, then alice),
	// with last=true on the last-emitted (innermost, data-adjacent) one,
	// then literal data, then Signature(alice), Signature(bob).
	p1, rest, err := parsePacket(data)
	if err != nil {
		t.Fatal(err)
	}
	if p1.Tag != TagOnePassSig {
		t.Fatalf("packet 1 tag = %d, want OnePassSig", p1.Tag)
	}
	if p1.Body[12] != 0 {
		t.Fatal("first emitted one-pass-sig packet should have last=false")
	}

	p2, rest, err := parsePacket(rest)
	if err != nil {
		t.Fatal(err)
	}
	if p2.Tag != TagOnePassSig {
		t.Fatalf("packet 2 tag = %d, want OnePassSig", p2.Tag)
	}
	if p2.Body[12] != 1 {
		t.Fatal("second (last-emitted) one-pass-sig packet should have last=true")
	}

	p3, rest, err := parsePacket(rest)
	if err != nil {
		t.Fatal(err)
	}
	if p3.Tag != TagLiteralData {
		t.Fatalf("packet 3 tag = %d, want LiteralData", p3.Tag)
	}

	p4, rest, err := parsePacket(rest)
	if err != nil {
		t.Fatal(err)
	}
	if p4.Tag != TagSignature {
		t.Fatalf("packet 4 tag = %d, want Signature", p4.Tag)
	}

	p5, rest, err := parsePacket(rest)
	if err != nil {
		t.Fatal(err)
	}
	if p5.Tag != TagSignature {
		t.Fatalf("packet 5 tag = %d, want Signature", p5.Tag)
	}
	if len(rest) != 0 {
		t.Fatalf("%d unexpected trailing bytes", len(rest))
	}
}

func TestBuildOnePassSigsLastFlagOnInnermostPacket(t *testing.T) {
	k1 := testKey(t, "alice@example.com", 1700000000) // K1
	k2 := testKey(t, "bob@example.com", 1700000000)   // K2

	ops := buildOnePassSigs([]*SecretKey{k1, k2}, 0x00, &Options{})
	if len(ops) != 2 {
		t.Fatalf("got %d one-pass packets, want 2", len(ops))
	}
	// spec.md's worked example: signing with [K1, K2] emits
	// OnePassSig{K2, last=false} first, then OnePassSig{K1, last=true}.
	if ops[0].KeyID != k2.KeyID || ops[0].Last {
		t.Fatalf("first emitted one-pass packet = {keyid=%x, last=%v}, want {keyid=%x, last=false}",
			ops[0].KeyID, ops[0].Last, k2.KeyID)
	}
	if ops[1].KeyID != k1.KeyID || !ops[1].Last {
		t.Fatalf("second emitted one-pass packet = {keyid=%x, last=%v}, want {keyid=%x, last=true}",
			ops[1].KeyID, ops[1].Last, k1.KeyID)
	}
}

func TestSignFileEmbeddedFilenamePreservesDirectory(t *testing.T) {
	dir := t.TempDir()
	subdir := filepath.Join(dir, "reports")
	if err := os.Mkdir(subdir, 0755); err != nil {
		t.Fatal(err)
	}
	input := filepath.Join(subdir, "q3.txt")
	if err := os.WriteFile(input, []byte("quarterly numbers"), 0644); err != nil {
		t.Fatal(err)
	}
	outPath := filepath.Join(dir, "out.gpg")

	req := &SignRequest{
		Filenames: []string{input},
		Keys:      []*SecretKey{testKey(t, "alice@example.com", 1700000000)},
		Options:   &Options{Outfile: outPath},
	}
	if err := SignFile(req); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}

	// Skip the one-pass header to reach the Plaintext packet.
	_, rest, err := parsePacket(data)
	if err != nil {
		t.Fatal(err)
	}
	literal, _, err := parsePacket(rest)
	if err != nil {
		t.Fatal(err)
	}
	if literal.Tag != TagLiteralData {
		t.Fatalf("tag = %d, want LiteralData", literal.Tag)
	}
	nameLen := int(literal.Body[1])
	name := string(literal.Body[2 : 2+nameLen])
	if name != input {
		t.Fatalf("embedded filename = %q, want verbatim %q (directory component must not be stripped)", name, input)
	}
}

func TestSignFileRequiresAtLeastOneKey(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "message.txt")
	if err := os.WriteFile(input, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}
	req := &SignRequest{
		Filenames: []string{input},
		Keys:      nil,
		Options:   &Options{Outfile: filepath.Join(dir, "out.gpg")},
	}
	if err := SignFile(req); err == nil {
		t.Fatal("expected an error with no signing keys")
	}
}

func TestSignFileMultiFileRequiresDetached(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	os.WriteFile(a, []byte("a"), 0644)
	os.WriteFile(b, []byte("b"), 0644)

	req := &SignRequest{
		Filenames: []string{a, b},
		Keys:      []*SecretKey{testKey(t, "alice@example.com", 1700000000)},
		Detached:  false,
		Options:   &Options{Outfile: filepath.Join(dir, "out.gpg")},
	}
	if err := SignFile(req); err == nil {
		t.Fatal("expected an error signing multiple files without --detach")
	}
}

func TestSignFileCancelRemovesPartialOutput(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.gpg")
	// SignFile validates Keys before opening output, so exercise Cancel
	// directly against IOBuf instead: this is the same atomicity
	// mechanism every driver relies on.
	out, err := Create(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := out.Writestr("partial"); err != nil {
		t.Fatal(err)
	}
	if err := out.Cancel(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(outPath); !os.IsNotExist(err) {
		t.Fatal("Cancel did not remove the partial output file")
	}
}
