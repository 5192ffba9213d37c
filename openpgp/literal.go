package openpgp

import "io"

// literalPrefix builds the fixed header fields of a Plaintext packet
// body (spec.md §3): mode octet, name-length octet, name, and a
// 4-octet timestamp. The streamed body follows immediately after.
func literalPrefix(mode byte, timestamp uint32, name []byte) []byte {
	b := []byte{mode, byte(len(name))}
	b = append(b, name...)
	b = append(b, marshal32be(timestamp)...)
	return b
}

// writeLiteralFixed emits a Plaintext packet whose total length is
// known up front. The header uses old-format framing unless the packet
// is 64 KiB or larger; it does not follow the signing keys' framing.
func writeLiteralFixed(w io.Writer, mode byte, timestamp uint32, name []byte, body io.Reader, bodyLen uint32) error {
	prefix := literalPrefix(mode, timestamp, name)
	total := len(prefix) + int(bodyLen)
	if err := writeHeader(w, TagLiteralData, total, total >= 1<<16); err != nil {
		return err
	}
	if _, err := w.Write(prefix); err != nil {
		return err
	}
	_, err := io.Copy(w, body)
	if err != nil {
		return newError(ErrWriteFile, "literal", err)
	}
	return nil
}

// writeLiteralPartial emits a Plaintext packet whose length is not
// known at header-write time (spec.md §3: len=0, partial-length
// framing) — the case text mode always hits, since the text filter
// can change the byte count. The body is read to completion and
// chunked with RFC 4880 §4.2.2.4 partial lengths; see DESIGN.md for
// why this buffers rather than streaming true backpressure.
func writeLiteralPartial(w io.Writer, mode byte, timestamp uint32, name []byte, body io.Reader) error {
	prefix := literalPrefix(mode, timestamp, name)
	data, err := io.ReadAll(body)
	if err != nil {
		return newError(ErrReadFile, "literal", err)
	}
	full := append(prefix, data...)
	if _, err := w.Write([]byte{0xc0 | byte(TagLiteralData)}); err != nil {
		return newError(ErrWriteFile, "literal", err)
	}
	return writePartialChunks(w, full)
}

// writePartialChunks emits full as a sequence of power-of-two partial
// body chunks terminated by one ordinary-length final chunk, per RFC
// 4880 §4.2.2.4.
func writePartialChunks(w io.Writer, full []byte) error {
	for len(full) >= 512 {
		octet, chunk := partialPowerChunk(len(full) - 1)
		if _, err := w.Write([]byte{octet}); err != nil {
			return newError(ErrWriteFile, "literal", err)
		}
		if _, err := w.Write(full[:chunk]); err != nil {
			return newError(ErrWriteFile, "literal", err)
		}
		full = full[chunk:]
	}
	if _, err := w.Write(newLengthOctets(len(full))); err != nil {
		return newError(ErrWriteFile, "literal", err)
	}
	if _, err := w.Write(full); err != nil {
		return newError(ErrWriteFile, "literal", err)
	}
	return nil
}
