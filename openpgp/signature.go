package openpgp

// SecretKey is the signing identity spec.md §3 describes: a derived
// Key ID, a wire version, and algorithm-specific secret material.
// Key ID derivation and on-disk lookup belong to the external
// build_sk_list collaborator (spec.md §6); SecretKey only carries the
// already-resolved result.
type SecretKey struct {
	KeyID      uint64
	Version    byte // 3 or 4
	PubKeyAlgo PubKeyAlgo
	Material   SecretKeyMaterial

	// PreferredHash is the key's own preferred-hash-algorithm
	// subpacket, the middle tier SPEC_FULL.md's digest-selection
	// fallback chain inserts between a user override and the
	// per-pubkey-algorithm default.
	PreferredHash HashAlgo
}

// isOldStyle reports whether sk, alone, could use RFC 1991 framing:
// a version-3 RSA key.
func (sk *SecretKey) isOldStyle() bool {
	return sk.Version == 3 && (sk.PubKeyAlgo == PubKeyRSA || sk.PubKeyAlgo == PubKeyRSASignOnly)
}

// oldStyleForKeys implements spec.md §4.D's framing tie-break: the
// whole output uses old-style packets and v3 signatures only when
// every key in the list is RSA v3, or the caller forces it.
func oldStyleForKeys(keys []*SecretKey, opts *Options) bool {
	if opts != nil && opts.RFC1991 {
		return true
	}
	if len(keys) == 0 {
		return false
	}
	for _, k := range keys {
		if !k.isOldStyle() {
			return false
		}
	}
	return true
}

// hashFor implements the digest-algorithm tie-break of spec.md §4.D
// ("Digest algorithm per key"), with original_source's preferred-hash
// tier folded in ahead of the per-algorithm default (SPEC_FULL.md
// SUPPLEMENTED FEATURES §2): a user override always wins; then the
// key's own preferred hash; then DSA => SHA-1, RSA => MD5, else the
// package default of SHA-256.
func hashFor(sk *SecretKey, opts *Options) HashAlgo {
	if opts != nil && opts.DefDigestAlgo != 0 {
		return opts.DefDigestAlgo
	}
	if sk.PreferredHash != 0 {
		return sk.PreferredHash
	}
	switch sk.PubKeyAlgo {
	case PubKeyDSA:
		return HashSHA1
	case PubKeyRSA, PubKeyRSASignOnly:
		return HashMD5
	default:
		return HashSHA256
	}
}

func appendSubpacket(buf []byte, typ byte, data []byte) []byte {
	buf = append(buf, byte(len(data)+1))
	buf = append(buf, typ)
	buf = append(buf, data...)
	return buf
}

// buildHashedSubpackets assembles the Signature Creation Time and
// Issuer subpackets every v4 signature this package emits carries,
// the same pair signkey.go's sign() builds.
func buildHashedSubpackets(when int64, keyID uint64) []byte {
	var out []byte
	out = appendSubpacket(out, 2, marshal32be(uint32(when)))
	out = appendSubpacket(out, 16, marshal64be(keyID))
	return out
}

// buildSignature performs the Signature Hash Construction of spec.md
// §4.D against a dedicated clone of the message digest (the caller
// owns cloning — see signdriver.go) and returns the finished
// Signature packet.
func buildSignature(md *DigestContext, sk *SecretKey, sigClass byte, when int64, oldStyle bool, opts *Options) (*Signature, error) {
	digestAlgo := hashFor(sk, opts)
	if err := md.Enable(digestAlgo); err != nil {
		return nil, err
	}

	version := byte(4)
	if oldStyle || sk.Version == 3 {
		version = 3
	}

	hashed := buildHashedSubpackets(when, sk.KeyID)
	return finishSignature(md, sk, version, sigClass, when, digestAlgo, hashed)
}

// finishSignature implements the trailer-hashing and signing tail
// shared by every signature this package builds (document signatures
// here, certifications in keygen.go): feed the version-dependent
// trailer to md, finalize the digest, and invoke the pubkey_sign
// collaborator. hashedSubpackets is ignored for v3.
func finishSignature(md *DigestContext, sk *SecretKey, version, sigClass byte, when int64, digestAlgo HashAlgo, hashedSubpackets []byte) (*Signature, error) {
	sig := &Signature{
		Version:    version,
		SigClass:   sigClass,
		Timestamp:  uint32(when),
		KeyID:      sk.KeyID,
		PubKeyAlgo: sk.PubKeyAlgo,
		DigestAlgo: digestAlgo,
	}

	var hashedLen uint16
	if version >= 4 {
		hashedLen = uint16(len(hashedSubpackets))
		sig.HashedSubpackets = append([]byte{byte(hashedLen >> 8), byte(hashedLen)}, hashedSubpackets...)
		sig.UnhashedSubpackets = []byte{0, 0}
	}

	// Feed the signature trailer to the digest per spec.md §4.D
	// steps 1-4, on the clone the caller handed us.
	if version >= 4 {
		md.Write([]byte{version})
	}
	md.Write([]byte{sigClass})
	if version < 4 {
		md.Write(marshal32be(sig.Timestamp))
	} else {
		md.Write([]byte{byte(sig.PubKeyAlgo), byte(sig.DigestAlgo)})
		md.Write(sig.HashedSubpackets)
		n := uint32(hashedLen) + 6
		md.Write([]byte{version, 0xff, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
	}

	digest, err := md.Finalize(digestAlgo)
	if err != nil {
		return nil, err
	}
	sig.DigestStart[0], sig.DigestStart[1] = digest[0], digest[1]

	data, err := signDigest(sk.PubKeyAlgo, digestAlgo, digest, sk.Material)
	if err != nil {
		return nil, err
	}
	sig.Data = data
	return sig, nil
}

// buildOnePassSigs implements spec.md §4.E step 8 and the
// multi-key-equivalence property of §8: one OnePassSig per key, in
// reverse signing-key order, with last=true on the last-emitted (i.e.
// innermost, data-adjacent) packet.
func buildOnePassSigs(keys []*SecretKey, sigClass byte, opts *Options) []*OnePassSig {
	out := make([]*OnePassSig, len(keys))
	for i := range keys {
		rev := keys[len(keys)-1-i]
		out[i] = &OnePassSig{
			SigClass:   sigClass,
			DigestAlgo: hashFor(rev, opts),
			PubKeyAlgo: rev.PubKeyAlgo,
			KeyID:      rev.KeyID,
			Last:       i == len(keys)-1,
		}
	}
	return out
}
