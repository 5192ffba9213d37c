package openpgp

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"io"
)

// Recipient is a public key able to receive a session key, the
// minimal shape build_pk_list (spec.md §6) needs to hand back.
type Recipient struct {
	KeyID uint64
	RSA   *rsa.PublicKey
}

// encryptFilterWriter implements the classic (non-MDC) OpenPGP
// Symmetrically Encrypted Data packet: a CFB-resync stream cipher
// keyed by a random session key, which is itself RSA-wrapped once per
// recipient into a leading Public-Key Encrypted Session Key packet.
// Session-key generation and RSA wrapping are raw cryptographic
// primitives spec.md §1 places out of scope for this core; this
// filter only assembles the packets around them.
//
// Like compress_filter, the plaintext is buffered and the final
// packet length is written as a determinate new-format length once
// Close is known to have the whole body, rather than threading true
// partial-length framing through every intermediate Write (see
// DESIGN.md).
type encryptFilterWriter struct {
	inner      io.Writer
	recipients []Recipient
	plain      bytes.Buffer
}

func newEncryptFilter(recipients []Recipient) func(io.Writer) (io.Writer, error) {
	return func(inner io.Writer) (io.Writer, error) {
		if len(recipients) == 0 {
			return nil, newError(ErrBug, "encrypt_filter", errNoRecipients)
		}
		return &encryptFilterWriter{inner: inner, recipients: recipients}, nil
	}
}

func (e *encryptFilterWriter) Write(p []byte) (int, error) {
	return e.plain.Write(p)
}

func (e *encryptFilterWriter) Close() error {
	sessionKey := make([]byte, 32) // AES-256
	if _, err := rand.Read(sessionKey); err != nil {
		return newError(ErrCryptoFailure, "encrypt_filter", err)
	}

	for _, r := range e.recipients {
		if r.RSA == nil {
			return newError(ErrCryptoFailure, "encrypt_filter", errUnsupportedRecipient)
		}
		if err := writeSessionKeyPacket(e.inner, r, sessionKey); err != nil {
			return err
		}
	}

	block, err := aes.NewCipher(sessionKey)
	if err != nil {
		return newError(ErrCryptoFailure, "encrypt_filter", err)
	}
	bs := block.BlockSize()
	prefix := make([]byte, bs+2)
	if _, err := rand.Read(prefix[:bs]); err != nil {
		return newError(ErrCryptoFailure, "encrypt_filter", err)
	}
	prefix[bs] = prefix[bs-2]
	prefix[bs+1] = prefix[bs-1]

	zeroIV := make([]byte, bs)
	cipher.NewCFBEncrypter(block, zeroIV).XORKeyStream(prefix, prefix)
	resyncIV := append([]byte(nil), prefix[2:]...)
	stream := cipher.NewCFBEncrypter(block, resyncIV)

	plaintext := append(prefix, e.plain.Bytes()...)
	ciphertext := make([]byte, len(plaintext))
	stream.XORKeyStream(ciphertext, plaintext)

	if err := writeHeader(e.inner, TagSymEncrypted, len(ciphertext), true); err != nil {
		return err
	}
	_, err = e.inner.Write(ciphertext)
	return err
}

func writeSessionKeyPacket(w io.Writer, r Recipient, sessionKey []byte) error {
	// Session-key packet body: 1-octet algo (9 = AES-256), session
	// key, 2-octet checksum, all PKCS#1v1.5-wrapped for RSA.
	sum := checksumBytes(sessionKey)
	plain := append([]byte{9}, sessionKey...)
	plain = append(plain, byte(sum>>8), byte(sum))
	enc, err := rsa.EncryptPKCS1v15(rand.Reader, r.RSA, plain)
	if err != nil {
		return newError(ErrCryptoFailure, "encrypt_filter", err)
	}
	body := append([]byte{3}, marshal64be(r.KeyID)...)
	body = append(body, byte(PubKeyRSA))
	body = append(body, mpiBytes(enc)...)
	if err := writeHeader(w, TagPKESK, len(body), true); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

func checksumBytes(b []byte) uint16 {
	var sum uint16
	for _, c := range b {
		sum += uint16(c)
	}
	return sum
}
