package openpgp

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
)

// CompressAlgo selects the compression scheme for compress_filter.
type CompressAlgo uint8

const (
	CompressZIP  CompressAlgo = 1 // old-style: raw DEFLATE, no zlib wrapper
	CompressZLIB CompressAlgo = 2 // RFC 1950 zlib-wrapped DEFLATE
)

// compressFilterWriter buffers its compressed output so the
// Compressed Data packet (tag 8) can be emitted with a determinate
// length once the stream is known to be finished. The reference
// implementation streams this with partial-length framing; buffering
// here trades the strict single-pass memory bound for a much simpler
// filter chain, which is an acceptable simplification for this
// package's scope (see DESIGN.md).
type compressFilterWriter struct {
	inner     io.Writer
	algo      CompressAlgo
	buf       bytes.Buffer
	zw        io.WriteCloser
	newFormat bool
}

// newCompressFilter returns an IOBuf PushWriter factory for algo.
func newCompressFilter(algo CompressAlgo, newFormat bool) func(io.Writer) (io.Writer, error) {
	return func(inner io.Writer) (io.Writer, error) {
		c := &compressFilterWriter{inner: inner, algo: algo, newFormat: newFormat}
		switch algo {
		case CompressZLIB:
			c.zw = zlib.NewWriter(&c.buf)
		default: // CompressZIP and anything else falls back to raw deflate
			fw, err := flate.NewWriter(&c.buf, flate.DefaultCompression)
			if err != nil {
				return nil, newError(ErrBug, "compress_filter", err)
			}
			c.zw = fw
		}
		return c, nil
	}
}

func (c *compressFilterWriter) Write(p []byte) (int, error) {
	return c.zw.Write(p)
}

func (c *compressFilterWriter) Close() error {
	if err := c.zw.Close(); err != nil {
		return newError(ErrWriteFile, "compress_filter", err)
	}
	body := append([]byte{byte(c.algo)}, c.buf.Bytes()...)
	if err := writeHeader(c.inner, TagCompressedData, len(body), c.newFormat || len(body) >= 1<<16); err != nil {
		return err
	}
	_, err := c.inner.Write(body)
	return err
}
