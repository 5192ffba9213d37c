// Package keyring adapts the enum_keyblocks / read_keyblock /
// walk_kbnode collaborator trio spec.md §6 lists as external to the
// signing/export core onto a real OpenPGP packet parser
// (github.com/ProtonMail/go-crypto/openpgp/packet) instead of a
// hand-rolled one, since reading an existing keyring is explicitly the
// direction spec.md places out of the core's scope.
package keyring

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

// Primary-key packet tags (RFC 4880 §4.3), used to find key-block
// boundaries while walking a ring.
const (
	tagSecretKey    = 5
	tagPublicKey    = 6
	tagSecretSubkey = 7
	tagUserID       = 13
	tagPublicSubkey = 14
)

// ErrNotFound is returned by Ring.FindByName when no key block's
// User ID matches the given selector.
var ErrNotFound = errors.New("keyring: no key block matches selector")

// KeyBlock is one walk_kbnode result: the ordered run of packets
// making up a single certificate (primary key, User IDs, subkeys,
// signatures, trust packets), held opaque so the export driver can
// re-emit them byte-for-byte without this package needing to
// understand their contents.
type KeyBlock struct {
	Packets []*packet.OpaquePacket
}

// WriteTo re-emits every packet in the block verbatim, in storage
// order, matching spec.md §4.G's "re-emit each packet verbatim ...
// ordering is preserved as stored".
func (b *KeyBlock) WriteTo(w io.Writer) error {
	for _, p := range b.Packets {
		if err := p.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// UserIDs returns the literal UTF-8 text of every User ID packet in
// the block (a User ID packet's body *is* that text, RFC 4880 §5.11),
// used by FindByName for selector matching.
func (b *KeyBlock) UserIDs() []string {
	var ids []string
	for _, p := range b.Packets {
		if p.Tag == tagUserID {
			ids = append(ids, string(p.Contents))
		}
	}
	return ids
}

// Ring is read_keyblock/enum_keyblocks over one on-disk keyring file,
// armored or binary, read strictly forward (no random access, mirroring
// the reference implementation's sequential iterator).
type Ring struct {
	or      *packet.OpaqueReader
	closer  io.Closer
	pending *packet.OpaquePacket
}

// Open opens path for sequential key-block iteration. Ring detects
// ASCII armor itself (find_keyblock_byname callers may point at either
// representation).
func Open(path string) (*Ring, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := newRing(f, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func newRing(r io.Reader, closer io.Closer) (*Ring, error) {
	br := bufio.NewReader(r)
	peek, _ := br.Peek(27)
	if bytes.HasPrefix(peek, []byte("-----BEGIN PGP")) {
		block, err := armor.Decode(br)
		if err != nil {
			return nil, err
		}
		return &Ring{or: packet.NewOpaqueReader(block.Body), closer: closer}, nil
	}
	return &Ring{or: packet.NewOpaqueReader(br), closer: closer}, nil
}

// Close releases the underlying file.
func (k *Ring) Close() error {
	if k.closer != nil {
		return k.closer.Close()
	}
	return nil
}

func (k *Ring) nextOpaque() (*packet.OpaquePacket, error) {
	if k.pending != nil {
		p := k.pending
		k.pending = nil
		return p, nil
	}
	return k.or.Next()
}

func isPrimaryKeyTag(tag uint8) bool {
	return tag == tagSecretKey || tag == tagPublicKey
}

// Next returns the next key block in storage order, or io.EOF once the
// ring is exhausted (spec.md §4.G "iterate the keyring in storage
// order, reading each key-block until EOF").
func (k *Ring) Next() (*KeyBlock, error) {
	first, err := k.nextOpaque()
	if err != nil {
		return nil, err
	}
	block := &KeyBlock{Packets: []*packet.OpaquePacket{first}}
	for {
		p, err := k.nextOpaque()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if isPrimaryKeyTag(p.Tag) {
			k.pending = p
			break
		}
		block.Packets = append(block.Packets, p)
	}
	return block, nil
}

// FindByName scans forward from the ring's current position for the
// next key block with a matching User ID substring
// (find_keyblock_byname / find_secret_keyblock_byname, spec.md §6),
// returning ErrNotFound once the ring is exhausted without a match.
// Key-ID selectors are the caller's (build_sk_list's) concern, not
// this adapter's.
func (k *Ring) FindByName(selector string) (*KeyBlock, error) {
	for {
		block, err := k.Next()
		if err == io.EOF {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		for _, uid := range block.UserIDs() {
			if bytes.Contains([]byte(uid), []byte(selector)) {
				return block, nil
			}
		}
	}
}
