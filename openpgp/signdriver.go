package openpgp

import (
	"io"
	"os"
	"time"
)

// SignRequest bundles the sign driver's inputs (spec.md §4.E
// "Inputs"). Filenames is empty for stdin, single-element for one
// file, and multi-element only when Detached is set.
type SignRequest struct {
	Filenames  []string
	Keys       []*SecretKey
	Encrypt    bool
	Recipients []Recipient
	Detached   bool
	Options    *Options
}

// SignFile runs the sign driver end to end (spec.md §4.E): resolve
// framing, open input/output, assemble the filter stacks, emit
// one-pass headers and literal data (embedded mode) or just digest
// the input (detached mode), then append one Signature packet per
// key in list order. Any failure cancels the output so no partial
// artifact is left behind; success closes it.
func SignFile(req *SignRequest) (err error) {
	opts := req.Options
	if opts == nil {
		opts = &Options{}
	}
	if len(req.Filenames) > 1 && !req.Detached {
		return newError(ErrBug, "sign", errMultiFileNeedsDetached)
	}
	if req.Encrypt && len(req.Recipients) == 0 {
		return newError(ErrUserNotFound, "sign", errNoRecipients)
	}
	if len(req.Keys) == 0 {
		return newError(ErrUserNotFound, "sign", errNoSigningKeys)
	}

	oldStyle := oldStyleForKeys(req.Keys, opts)
	sigClass := byte(0x00)
	if opts.effectiveTextMode() {
		sigClass = 0x01
	}
	when := time.Now().Unix()

	opts.logf("using %s framing", frameDesc(oldStyle))

	out, oerr := openSignOutput(req, opts)
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

	if err = pushOutputFilters(out, req, opts, oldStyle); err != nil {
		return err
	}

	md := NewDigestContext()
	for _, k := range req.Keys {
		if err = md.Enable(hashFor(k, opts)); err != nil {
			return err
		}
	}

	if req.Detached {
		err = signDetached(req, md, opts)
	} else {
		err = signEmbedded(out, req, md, opts, sigClass, oldStyle, when)
	}
	if err != nil {
		return err
	}

	for _, k := range req.Keys {
		clone := md.Clone()
		sig, serr := buildSignature(clone, k, sigClass, when, oldStyle, opts)
		if serr != nil {
			err = serr
			return err
		}
		if err = buildPacket(out, sig, !oldStyle); err != nil {
			return err
		}
	}
	return nil
}

func frameDesc(oldStyle bool) string {
	if oldStyle {
		return "old-style/v3"
	}
	return "new-style/v4"
}

// openSignOutput resolves the output path the way the open_outfile
// collaborator (spec.md §6) is documented to: an explicit Outfile is
// used verbatim, otherwise a name is derived from the first input
// filename using the <basename>.gpg/.asc/.sig convention. This
// simplified stand-in has no interactive overwrite prompt: an existing
// file is truncated.
func openSignOutput(req *SignRequest, opts *Options) (*IOBuf, error) {
	if opts.Outfile != "" {
		return Create(opts.Outfile)
	}
	if len(req.Filenames) == 0 {
		return CreateWriter(os.Stdout), nil
	}
	basename := req.Filenames[0]
	var suffix string
	switch {
	case req.Detached && opts.effectiveArmor():
		suffix = ".asc"
	case req.Detached:
		suffix = ".sig"
	case opts.effectiveArmor():
		suffix = ".asc"
	default:
		suffix = ".gpg"
	}
	return Create(basename + suffix)
}

// pushOutputFilters builds the output stack in the order spec.md
// §4.E step 6 mandates: armor (outer) -> encrypt -> compress. Pushing
// compress first and armor last makes armor the outermost filter, as
// IOBuf.PushWriter always wraps the current outermost writer.
func pushOutputFilters(out *IOBuf, req *SignRequest, opts *Options, oldStyle bool) error {
	if opts.effectiveCompress() {
		algo := CompressZLIB
		if oldStyle {
			algo = CompressZIP
		}
		if err := out.PushWriter(newCompressFilter(algo, !oldStyle)); err != nil {
			return newError(ErrWriteFile, "compress_filter", err)
		}
	}
	if req.Encrypt {
		if err := out.PushWriter(newEncryptFilter(req.Recipients)); err != nil {
			return err
		}
	}
	if opts.effectiveArmor() {
		what := ArmorMessage
		if req.Detached {
			what = ArmorSignature
		}
		if err := out.PushWriter(newArmorFilter(what)); err != nil {
			return err
		}
	}
	return nil
}

// signDetached drains the input (or inputs) through the digest tap
// without writing anything to out, per spec.md §4.E step 9.
// Multi-file detached signing hashes files in reverse of the supplied
// order (spec.md §5 Ordering guarantees).
func signDetached(req *SignRequest, md *DigestContext, opts *Options) error {
	textMode := opts.effectiveTextMode()
	if len(req.Filenames) == 0 {
		return hashReader(os.Stdin, md, textMode)
	}
	for i := len(req.Filenames) - 1; i >= 0; i-- {
		name := req.Filenames[i]
		f, err := os.Open(name)
		if err != nil {
			return newError(ErrOpenFile, name, err)
		}
		err = hashReader(f, md, textMode)
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func hashReader(r io.Reader, md *DigestContext, textMode bool) error {
	var rd io.Reader = r
	if textMode {
		rd = newTextFilterReader(rd)
	}
	rd = newMDFilterReader(rd, md)
	if _, err := io.Copy(io.Discard, rd); err != nil {
		return newError(ErrReadFile, "sign", err)
	}
	return nil
}

// signEmbedded implements spec.md §4.E steps 8-9 for the non-detached
// path: one-pass headers (new-style only), then a Plaintext packet
// whose body is simultaneously canonicalized (text mode), hashed, and
// streamed out.
func signEmbedded(out *IOBuf, req *SignRequest, md *DigestContext, opts *Options, sigClass byte, oldStyle bool, when int64) error {
	if !oldStyle {
		for _, ops := range buildOnePassSigs(req.Keys, sigClass, opts) {
			if err := buildPacket(out, ops, true); err != nil {
				return err
			}
		}
	}

	textMode := opts.effectiveTextMode()
	var in io.Reader
	var f *os.File
	name := []byte{}
	if len(req.Filenames) == 1 {
		var err error
		f, err = os.Open(req.Filenames[0])
		if err != nil {
			return newError(ErrOpenFile, req.Filenames[0], err)
		}
		in = f
		name = []byte(req.Filenames[0])
	} else {
		in = os.Stdin
	}
	defer func() {
		if f != nil {
			f.Close()
		}
	}()

	if textMode {
		in = newTextFilterReader(in)
	}
	in = newMDFilterReader(in, md)

	mode := byte('b')
	if textMode {
		mode = 't'
	}

	// Text mode always uses partial length: the canonicalization
	// filter can change the byte count, so the length is not known
	// at header-write time (spec.md §3 Plaintext len=0).
	if textMode {
		return writeLiteralPartial(out, mode, uint32(when), name, in)
	}
	var length uint32
	if f != nil {
		if fi, serr := f.Stat(); serr == nil {
			length = uint32(fi.Size())
		}
	}
	if length == 0 {
		return writeLiteralPartial(out, mode, uint32(when), name, in)
	}
	return writeLiteralFixed(out, mode, uint32(when), name, in, length)
}
