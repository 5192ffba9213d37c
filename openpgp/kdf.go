package openpgp

import "golang.org/x/crypto/argon2"

// kdfTime and kdfMemory are the Argon2id base cost parameters; a
// caller's scale factor multiplies both, so cost grows with scale
// squared.
const (
	kdfTime   = 8
	kdfMemory = 1024 * 1024 // 1 GiB
)

// DeriveSeed derives a 64-byte seed from a passphrase via Argon2id,
// salted with uid (the key's own identity string, so two keys from
// the same passphrase but different identities never collide). This
// is the check_secret_key-equivalent key-loading collaborator's KDF:
// deterministic key material derived from something the user
// remembers rather than stored on disk.
func DeriveSeed(passphrase, uid []byte, scale int) []byte {
	if scale < 1 {
		scale = 1
	}
	t := uint32(kdfTime * scale)
	m := uint32(kdfMemory * scale)
	return argon2.IDKey(passphrase, uid, t, m, 1, 64)
}
