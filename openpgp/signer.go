package openpgp

import (
	"crypto/dsa"
	"crypto/rand"
	"crypto/rsa"

	"golang.org/x/crypto/ed25519"
)

// SecretKeyMaterial holds the algorithm-specific secret MPI vector
// (spec.md §3 SecretKey.skey[]) in the form the stdlib primitives
// expect. Exactly one field is populated, matching PubKeyAlgo.
type SecretKeyMaterial struct {
	RSA   *rsa.PrivateKey
	DSA   *dsa.PrivateKey
	EdDSA ed25519.PrivateKey
}

// signDigest is the pubkey_sign / encode_md_value collaborator
// spec.md §6 lists as external to the core: it performs the actual
// public-key signing operation (and, for RSA/DSA, the PKCS#1 / FIPS
// 186 digest encoding that operation requires). These are the raw
// cryptographic primitives spec.md §1 excludes from scope, so the
// adapter reaches directly for the stdlib implementations rather than
// a pack dependency (see DESIGN.md).
func signDigest(algo PubKeyAlgo, digestAlgo HashAlgo, digest []byte, sk SecretKeyMaterial) ([][]byte, error) {
	switch algo {
	case PubKeyRSA, PubKeyRSASignOnly:
		if sk.RSA == nil {
			return nil, newError(ErrBug, "pubkey_sign", errMissingKeyMaterial)
		}
		ch := digestAlgo.cryptoHash()
		sig, err := rsa.SignPKCS1v15(rand.Reader, sk.RSA, ch, digest)
		if err != nil {
			return nil, newError(ErrCryptoFailure, "pubkey_sign", err)
		}
		return [][]byte{mpiBytes(sig)}, nil

	case PubKeyDSA:
		if sk.DSA == nil {
			return nil, newError(ErrBug, "pubkey_sign", errMissingKeyMaterial)
		}
		// encode_md_value for DSA: truncate the digest to the bit
		// length of Q (FIPS 186-3 §4.6).
		qBytes := (sk.DSA.Q.BitLen() + 7) / 8
		h := digest
		if len(h) > qBytes {
			h = h[:qBytes]
		}
		r, s, err := dsa.Sign(rand.Reader, sk.DSA, h)
		if err != nil {
			return nil, newError(ErrCryptoFailure, "pubkey_sign", err)
		}
		return [][]byte{mpiBigInt(r), mpiBigInt(s)}, nil

	case PubKeyEdDSA:
		if sk.EdDSA == nil {
			return nil, newError(ErrBug, "pubkey_sign", errMissingKeyMaterial)
		}
		sig := ed25519.Sign(sk.EdDSA, digest)
		return [][]byte{mpiBytes(sig[:32]), mpiBytes(sig[32:])}, nil

	default:
		return nil, newError(ErrBug, "pubkey_sign", errUnsupportedPubKeyAlgo(algo))
	}
}
