package openpgp

import (
	"io"
	"os"
)

// IOBuf is a push-down chain of filters terminated by a raw file (or
// any io.Reader/io.Writer the caller supplies). It is deliberately
// one-directional: a single IOBuf is either a read side (built by
// Open) or a write side (built by Create), matching how the sign and
// export drivers use it — one inp, one out, never both from the same
// value.
//
// Pushing a filter wraps the current outermost reader/writer with the
// new one, so Get/Put always touch the most recently pushed filter
// first; that filter then pulls from (or pushes to) whatever was
// outermost before it. This mirrors the reference implementation's
// push_filter, reimplemented as ordinary reader/writer composition
// instead of pointer-stitched C contexts (see DESIGN.md).
type IOBuf struct {
	path string
	file *os.File

	r io.Reader
	w io.Writer

	closers   []io.Closer // outermost last; Close() runs them outermost-first
	cancelled bool
}

// Open returns a read-side IOBuf over path.
func Open(path string) (*IOBuf, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newError(ErrOpenFile, path, err)
	}
	return &IOBuf{path: path, file: f, r: f}, nil
}

// OpenReader wraps an already-open reader (e.g. stdin) as a read-side
// IOBuf with no associated path.
func OpenReader(r io.Reader) *IOBuf {
	return &IOBuf{r: r}
}

// Create returns a write-side IOBuf over path, truncating or creating
// it as needed.
func Create(path string) (*IOBuf, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, newError(ErrCreateFile, path, err)
	}
	return &IOBuf{path: path, file: f, w: f}, nil
}

// CreateWriter wraps an already-open writer (e.g. stdout) as a
// write-side IOBuf with no associated path, so Cancel cannot unlink
// it.
func CreateWriter(w io.Writer) *IOBuf {
	return &IOBuf{w: w}
}

// PushReader wraps the current outermost reader with make(inner),
// becoming the new outermost reader.
func (b *IOBuf) PushReader(make func(inner io.Reader) io.Reader) {
	b.r = make(b.r)
}

// PushWriter wraps the current outermost writer with make(inner),
// becoming the new outermost writer. If the returned writer also
// implements io.Closer, it is closed (outermost first) by Close.
func (b *IOBuf) PushWriter(make func(inner io.Writer) (io.Writer, error)) error {
	nw, err := make(b.w)
	if err != nil {
		return err
	}
	b.w = nw
	if c, ok := nw.(io.Closer); ok {
		b.closers = append(b.closers, c)
	}
	return nil
}

// Get reads one byte, returning io.EOF when the stream is exhausted.
func (b *IOBuf) Get() (byte, error) {
	var p [1]byte
	n, err := b.r.Read(p[:])
	if n == 1 {
		return p[0], nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return 0, err
}

// Put writes one byte to the outermost filter.
func (b *IOBuf) Put(c byte) error {
	_, err := b.w.Write([]byte{c})
	return err
}

// Write writes p to the outermost filter.
func (b *IOBuf) Write(p []byte) (int, error) {
	return b.w.Write(p)
}

// Writestr writes a string to the outermost filter.
func (b *IOBuf) Writestr(s string) error {
	_, err := io.WriteString(b.w, s)
	return err
}

// Reader exposes the outermost reader directly for bulk copies.
func (b *IOBuf) Reader() io.Reader { return b.r }

// GetFileLength returns the size of the underlying file, or 0 if the
// IOBuf is not backed by a seekable file.
func (b *IOBuf) GetFileLength() uint32 {
	if b.file == nil {
		return 0
	}
	fi, err := b.file.Stat()
	if err != nil {
		return 0
	}
	return uint32(fi.Size())
}

// Close flushes every pushed filter (outermost first, so trailers are
// written inward in the correct order) and closes the underlying
// file, if any.
func (b *IOBuf) Close() error {
	var firstErr error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if b.file != nil {
		if err := b.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Cancel releases the IOBuf like Close but additionally unlinks any
// partial output file, so a failed run never leaves an artifact
// behind.
func (b *IOBuf) Cancel() error {
	b.cancelled = true
	err := b.Close()
	if b.path != "" {
		os.Remove(b.path)
	}
	return err
}
