package openpgp

import (
	"io"

	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

// ArmorWhat selects the BEGIN/END PGP label armor_filter wraps its
// body in.
type ArmorWhat int

const (
	ArmorMessage ArmorWhat = iota
	ArmorSignature
	ArmorPublicKey
	ArmorPrivateKey
)

func (a ArmorWhat) blockType() string {
	switch a {
	case ArmorSignature:
		return "PGP SIGNATURE"
	case ArmorPublicKey:
		return "PGP PUBLIC KEY BLOCK"
	case ArmorPrivateKey:
		return "PGP PRIVATE KEY BLOCK"
	default:
		return "PGP MESSAGE"
	}
}

// newArmorFilter returns an IOBuf PushWriter factory that wraps the
// body in Radix-64 ASCII armor with a CRC-24 trailer. The Radix-64
// encoding, line wrapping, and checksum are delegated to
// ProtonMail/go-crypto/openpgp/armor (a maintained fork of the
// golang.org/x/crypto/openpgp armor package) rather than hand-rolled,
// per spec.md §1's treatment of the packet-parser/codec boundary as
// an external collaborator concern.
func newArmorFilter(what ArmorWhat) func(io.Writer) (io.Writer, error) {
	return func(inner io.Writer) (io.Writer, error) {
		w, err := armor.Encode(inner, what.blockType(), nil)
		if err != nil {
			return nil, newError(ErrWriteFile, "armor_filter", err)
		}
		return w, nil
	}
}
