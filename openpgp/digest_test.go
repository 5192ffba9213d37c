package openpgp

import (
	"bytes"
	"testing"
)

func TestDigestContextFanOut(t *testing.T) {
	md := NewDigestContext()
	if err := md.Enable(HashSHA256); err != nil {
		t.Fatal(err)
	}
	if err := md.Enable(HashSHA1); err != nil {
		t.Fatal(err)
	}
	md.Write([]byte("hello world"))

	sha256sum, err := md.Finalize(HashSHA256)
	if err != nil {
		t.Fatal(err)
	}
	sha1sum, err := md.Finalize(HashSHA1)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(sha256sum, sha1sum) {
		t.Fatal("distinct algorithms produced identical digests")
	}
	if len(sha256sum) != 32 || len(sha1sum) != 20 {
		t.Fatalf("unexpected digest lengths: %d, %d", len(sha256sum), len(sha1sum))
	}
}

func TestDigestContextCloneIsolation(t *testing.T) {
	md := NewDigestContext()
	if err := md.Enable(HashSHA256); err != nil {
		t.Fatal(err)
	}
	md.Write([]byte("shared prefix"))

	a := md.Clone()
	b := md.Clone()
	a.Write([]byte("-suffix-a"))
	b.Write([]byte("-suffix-b"))

	sumA, err := a.Finalize(HashSHA256)
	if err != nil {
		t.Fatal(err)
	}
	sumB, err := b.Finalize(HashSHA256)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(sumA, sumB) {
		t.Fatal("clones diverged in content but produced identical digests")
	}

	// The original context must still be usable and unaffected by either clone.
	orig := md.Clone()
	orig.Write([]byte("-suffix-a"))
	sumOrig, err := orig.Finalize(HashSHA256)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(sumA, sumOrig) {
		t.Fatal("writes to a clone leaked back into the original context")
	}
}

func TestDigestContextEnableAfterWriteFails(t *testing.T) {
	md := NewDigestContext()
	if err := md.Enable(HashSHA256); err != nil {
		t.Fatal(err)
	}
	md.Write([]byte("x"))
	if err := md.Enable(HashSHA1); err == nil {
		t.Fatal("expected an error enabling an algorithm after writes began")
	}
}

func TestDigestContextFinalizeRemovesBranch(t *testing.T) {
	md := NewDigestContext()
	if err := md.Enable(HashSHA256); err != nil {
		t.Fatal(err)
	}
	md.Write([]byte("x"))
	if _, err := md.Finalize(HashSHA256); err != nil {
		t.Fatal(err)
	}
	if _, err := md.Finalize(HashSHA256); err == nil {
		t.Fatal("expected finalizing an already-finalized branch to fail")
	}
}
