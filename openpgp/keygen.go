package openpgp

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"io"
	"os"

	"golang.org/x/crypto/ed25519"
)

// oidEd25519Legacy is GnuPG's registered OpenPGP curve OID for Ed25519
// signing keys (1.3.6.1.4.1.11591.15.1).
var oidEd25519Legacy = []byte{0x2b, 0x06, 0x01, 0x04, 0x01, 0xda, 0x47, 0x0f, 0x01}

// GeneratedKey is a freshly minted v4 EdDSA signing identity: the
// deterministic, passphrase-derived counterpart to the SecretKey
// values the sign/clearsign drivers otherwise expect a caller to have
// already loaded from a keyring.
type GeneratedKey struct {
	Secret  *SecretKey
	edKey   ed25519.PrivateKey
	created int64
}

// GenerateSigningKey builds a v4 EdDSA SecretKey from a 32-byte seed —
// the low half of DeriveSeed's 64-byte output, leaving the high half
// free for an encryption subkey a caller derives separately.
func GenerateSigningKey(seed []byte, created int64) *GeneratedKey {
	g := &GeneratedKey{edKey: ed25519.NewKeyFromSeed(seed[:32]), created: created}
	fp := fingerprintV4(g.publicKeyBody())
	g.Secret = &SecretKey{
		KeyID:         beUint64(fp[12:20]),
		Version:       4,
		PubKeyAlgo:    PubKeyEdDSA,
		Material:      SecretKeyMaterial{EdDSA: g.edKey},
		PreferredHash: HashSHA256,
	}
	return g
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// fingerprintV4 is the RFC 4880 §12.2 v4 fingerprint: SHA-1 over a
// fabricated "0x99, 2-octet length" header followed by the public-key
// packet body. The Key ID is its low 8 bytes.
func fingerprintV4(pubBody []byte) []byte {
	h := sha1.New()
	h.Write([]byte{0x99, byte(len(pubBody) >> 8), byte(len(pubBody))})
	h.Write(pubBody)
	return h.Sum(nil)
}

// publicKeyBody builds the Public-Key packet body (RFC 4880 §5.5.2):
// version, creation time, algorithm, curve OID, and the native EdDSA
// point MPI-encoded with its leading 0x40 native-point octet.
func (g *GeneratedKey) publicKeyBody() []byte {
	pub := g.edKey.Public().(ed25519.PublicKey)
	b := []byte{4}
	b = append(b, marshal32be(uint32(g.created))...)
	b = append(b, byte(PubKeyEdDSA), byte(len(oidEd25519Legacy)))
	b = append(b, oidEd25519Legacy...)
	b = append(b, mpiBytes(append([]byte{0x40}, pub...))...)
	return b
}

// WritePublicKeyPacket emits the Public-Key packet (tag 6).
func (g *GeneratedKey) WritePublicKeyPacket(w io.Writer) error {
	return buildPacket(w, &RawPacket{PacketTag: TagPublicKey, RawBody: g.publicKeyBody()}, true)
}

// WriteSecretKeyPacket emits the Secret-Key packet (tag 5). A nil
// passphrase leaves the secret material unencrypted; a non-nil one
// protects it with the iterated-and-salted S2K + CFB scheme every
// OpenPGP implementation recognizes.
func (g *GeneratedKey) WriteSecretKeyPacket(w io.Writer, passphrase []byte) error {
	var tail []byte
	var err error
	if passphrase == nil {
		tail = unencryptedSecretTail(g.edKey.Seed())
	} else {
		tail, err = encryptedSecretTail(g.edKey.Seed(), passphrase)
		if err != nil {
			return err
		}
	}
	body := append(g.publicKeyBody(), tail...)
	return buildPacket(w, &RawPacket{PacketTag: TagSecretKey, RawBody: body}, true)
}

func unencryptedSecretTail(secret []byte) []byte {
	tail := []byte{0} // s2k usage octet: none, secret material in the clear
	skMPI := mpiBytes(secret)
	tail = append(tail, skMPI...)
	sum := checksum(skMPI)
	return append(tail, byte(sum>>8), byte(sum))
}

// encryptedSecretTail implements the same string-to-key scheme as
// check_secret_key's counterpart on the loading side: iterated and
// salted SHA-256 S2K feeding an AES-256 CFB stream, with a SHA-1 MAC
// in place of the plain MPI checksum (s2k usage octet 254).
func encryptedSecretTail(secret, passphrase []byte) ([]byte, error) {
	var saltIV [24]byte
	if _, err := rand.Read(saltIV[:]); err != nil {
		return nil, newError(ErrCryptoFailure, "keygen", err)
	}
	salt, iv := saltIV[:8], saltIV[8:]

	const maxStrength = 0xff
	key := s2kKey(passphrase, salt, s2kIterCount(maxStrength))

	skMPI := mpiBytes(secret)
	mac := sha1.New()
	mac.Write(skMPI)
	payload := mac.Sum(append([]byte{}, skMPI...))

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, newError(ErrCryptoFailure, "keygen", err)
	}
	cipher.NewCFBEncrypter(block, iv).XORKeyStream(payload, payload)

	tail := []byte{254, byte(9), 3, 8} // s2k-usage, AES-256, iterated+salted, SHA-256
	tail = append(tail, salt...)
	tail = append(tail, maxStrength)
	tail = append(tail, iv...)
	return append(tail, payload...), nil
}

func s2kIterCount(c byte) int {
	return (16 + int(c&15)) << (uint(c>>4) + 6)
}

// s2kKey is GnuPG and PGP's actual iterated-and-salted S2K, which
// differs subtly (and deliberately) from a literal reading of RFC
// 4880 §3.7.1.3 — see https://dev.gnupg.org/T4676.
func s2kKey(passphrase, salt []byte, count int) []byte {
	h := sha256.New()
	full := make([]byte, 8+len(passphrase))
	copy(full, salt)
	copy(full[8:], passphrase)
	iterations := count / len(full)
	for i := 0; i < iterations; i++ {
		h.Write(full)
	}
	h.Write(full[:count-iterations*len(full)])
	return h.Sum(nil)
}

// WriteUserIDPacket emits a User ID packet (tag 13); its body is the
// identity string itself, verbatim.
func WriteUserIDPacket(w io.Writer, uid string) error {
	return buildPacket(w, &RawPacket{PacketTag: TagUserID, RawBody: []byte(uid)}, true)
}

// SelfSign builds the positive-certification Signature packet (sig
// class 0x13) binding uid to this key, the way the reference
// implementation's SelfSign produced a self-signed identity: hashed
// material is the public-key packet body and the User ID packet body,
// each prefixed with their own fabricated old-style header octets,
// per RFC 4880 §5.2.4.
func (g *GeneratedKey) SelfSign(uid string, when int64, opts *Options) (*Signature, error) {
	const sigClassPositiveCert = 0x13
	pubBody := g.publicKeyBody()
	uidBytes := []byte(uid)

	digestAlgo := hashFor(g.Secret, opts)
	md := NewDigestContext()
	if err := md.Enable(digestAlgo); err != nil {
		return nil, err
	}
	md.Write([]byte{0x99, byte(len(pubBody) >> 8), byte(len(pubBody))})
	md.Write(pubBody)
	md.Write([]byte{0xb4,
		byte(len(uidBytes) >> 24), byte(len(uidBytes) >> 16),
		byte(len(uidBytes) >> 8), byte(len(uidBytes))})
	md.Write(uidBytes)

	hashed := buildHashedSubpackets(when, g.Secret.KeyID)
	hashed = appendSubpacket(hashed, 27, []byte{0x03}) // Key Flags: sign + certify

	return finishSignature(md, g.Secret, 4, sigClassPositiveCert, when, digestAlgo, hashed)
}

// KeyGenRequest bundles the key-generation driver's inputs: the
// passphrase the signing identity is deterministically derived from,
// plus the same Options every other driver takes.
type KeyGenRequest struct {
	Passphrase []byte
	UserID     string
	Created    int64
	Secret     bool // emit the secret key rather than just the public key
	Protect    bool // encrypt the secret key packet with Passphrase
	Options    *Options
}

// GenerateKeyFile derives a deterministic signing identity from
// req.Passphrase and writes its packets (optionally armored): a
// Secret-Key or Public-Key packet, a User ID packet, and the
// self-certification binding them.
func GenerateKeyFile(req *KeyGenRequest) (err error) {
	opts := req.Options
	if opts == nil {
		opts = &Options{}
	}

	seed := DeriveSeed(req.Passphrase, []byte(req.UserID), 1)
	g := GenerateSigningKey(seed, req.Created)

	out, oerr := openKeyGenOutput(opts)
	if oerr != nil {
		return oerr
	}
	defer func() {
		if err != nil {
			out.Cancel()
			return
		}
		err = out.Close()
	}()

	if opts.effectiveArmor() {
		what := ArmorPublicKey
		if req.Secret {
			what = ArmorPrivateKey
		}
		if err = out.PushWriter(newArmorFilter(what)); err != nil {
			return err
		}
	}

	if req.Secret {
		var passphrase []byte
		if req.Protect {
			passphrase = req.Passphrase
		}
		if err = g.WriteSecretKeyPacket(out, passphrase); err != nil {
			return newError(ErrPacketBuild, "keygen", err)
		}
	} else {
		if err = g.WritePublicKeyPacket(out); err != nil {
			return newError(ErrPacketBuild, "keygen", err)
		}
	}

	if err = WriteUserIDPacket(out, req.UserID); err != nil {
		return newError(ErrPacketBuild, "keygen", err)
	}

	sig, serr := g.SelfSign(req.UserID, req.Created, opts)
	if serr != nil {
		err = serr
		return err
	}
	if err = buildPacket(out, sig, true); err != nil {
		return err
	}
	return nil
}

func openKeyGenOutput(opts *Options) (*IOBuf, error) {
	if opts.Outfile != "" {
		return Create(opts.Outfile)
	}
	return CreateWriter(os.Stdout), nil
}
