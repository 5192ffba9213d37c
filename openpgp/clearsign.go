package openpgp

import (
	"io"
	"os"
	"time"
)

// ClearsignRequest bundles the clearsign driver's inputs (spec.md
// §4.F). Unlike SignFile, clearsigning only ever has one input: the
// text document the signature wraps.
type ClearsignRequest struct {
	Filename string // empty = stdin
	Keys     []*SecretKey
	Options  *Options
}

// ClearsignFile runs the clearsign driver end to end (spec.md §4.F): a
// specialization of the sign driver that never armors the body, only
// dash-escapes it, and keeps the trailing Signature packets alone in
// armor.
func ClearsignFile(req *ClearsignRequest) (err error) {
	opts := req.Options
	if opts == nil {
		opts = &Options{}
	}
	if len(req.Keys) == 0 {
		return newError(ErrUserNotFound, "clearsign", errNoSigningKeys)
	}

	oldStyle := oldStyleForKeys(req.Keys, opts)
	when := time.Now().Unix()
	const sigClass = byte(0x01)

	out, oerr := openClearsignOutput(req, opts)
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

	if err = out.Writestr("-----BEGIN PGP SIGNED MESSAGE-----\n"); err != nil {
		return newError(ErrWriteFile, "clearsign", err)
	}
	if line := hashAlgoLine(req.Keys, opts, oldStyle); line != "" {
		err = out.Writestr(line + "\n\n")
	} else {
		err = out.Writestr("\n")
	}
	if err != nil {
		return newError(ErrWriteFile, "clearsign", err)
	}

	md := NewDigestContext()
	for _, k := range req.Keys {
		if err = md.Enable(hashFor(k, opts)); err != nil {
			return err
		}
	}

	var in io.Reader
	var f *os.File
	if req.Filename != "" {
		f, err = os.Open(req.Filename)
		if err != nil {
			return newError(ErrOpenFile, req.Filename, err)
		}
		in = f
	} else {
		in = os.Stdin
	}
	defer func() {
		if f != nil {
			f.Close()
		}
	}()

	in = newTextFilterReader(in)
	data, rerr := io.ReadAll(in)
	if rerr != nil {
		return newError(ErrReadFile, "clearsign", rerr)
	}

	start := skipLeadingBlankLines(data)
	if err = dashEscapeScan(out, md, data[start:]); err != nil {
		return err
	}
	if err = out.Writestr("\n"); err != nil {
		return newError(ErrWriteFile, "clearsign", err)
	}

	if err = out.PushWriter(newArmorFilter(ArmorSignature)); err != nil {
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

// openClearsignOutput mirrors openSignOutput's path-derivation policy
// (spec.md §6 open_outfile), but clearsigned output is always text, so
// there is no binary suffix variant.
func openClearsignOutput(req *ClearsignRequest, opts *Options) (*IOBuf, error) {
	if opts.Outfile != "" {
		return Create(opts.Outfile)
	}
	if req.Filename == "" {
		return CreateWriter(os.Stdout), nil
	}
	return Create(req.Filename + ".asc")
}

// hashAlgoLine builds the "Hash: <algo>[,<algo>...]" header clearsign
// readers use to select a digest algorithm before the armor block
// arrives, deduplicating across the signing key list while preserving
// its order. Per spec.md §4.F step 2, old-style framing or an
// all-MD5 key list instead gets a bare empty header line (returned
// here as "").
func hashAlgoLine(keys []*SecretKey, opts *Options, oldStyle bool) string {
	if oldStyle {
		return ""
	}
	seen := make(map[HashAlgo]bool)
	var algos []HashAlgo
	for _, k := range keys {
		a := hashFor(k, opts)
		if !seen[a] {
			seen[a] = true
			algos = append(algos, a)
		}
	}
	if len(algos) == 1 && algos[0] == HashMD5 {
		return ""
	}
	line := "Hash: "
	for i, a := range algos {
		if i > 0 {
			line += ","
		}
		line += a.String()
	}
	return line
}

// skipLeadingBlankLines returns the index of the first byte of data
// that is not part of a run of leading empty lines (spec.md §4.F step
// 4): lines consisting only of a line terminator, where the
// terminator may be "\n", "\r\n", or a bare "\r". Those lines are
// neither written to the dash-escaped output nor hashed.
func skipLeadingBlankLines(data []byte) int {
	i := 0
	for i < len(data) {
		j := i
		for j < len(data) && data[j] != '\n' && data[j] != '\r' {
			j++
		}
		if j != i {
			break // non-empty line: stop skipping
		}
		if j == len(data) {
			i = j
			break
		}
		if data[j] == '\r' {
			j++
			if j < len(data) && data[j] == '\n' {
				j++
			}
		} else {
			j++
		}
		i = j
	}
	return i
}

// dashEscapeScan implements spec.md §4.F step 4's dash-escape pass
// over already-leading-blank-trimmed, text-filtered input: a line
// starting with '-' gets a "- " prefix written to out but not fed to
// md, tracked with the line-start/saw-CR state the spec calls for so
// a bare CR (old Mac line ending) also starts a fresh line without
// double-counting a following "\r\n" pair.
func dashEscapeScan(out io.Writer, md *DigestContext, data []byte) error {
	atLineStart := true
	sawCR := false
	for _, c := range data {
		if atLineStart && c == '-' {
			if _, err := out.Write([]byte("- ")); err != nil {
				return newError(ErrWriteFile, "clearsign", err)
			}
		}
		if _, err := out.Write([]byte{c}); err != nil {
			return newError(ErrWriteFile, "clearsign", err)
		}
		md.Write([]byte{c})

		switch {
		case c == '\r':
			// A bare CR already ends a line (old Mac convention); if
			// a '\n' follows it only confirms the same line start,
			// so no double dash-escape check ever fires.
			atLineStart = true
			sawCR = true
		case c == '\n':
			atLineStart = true
			sawCR = false
		default:
			atLineStart = false
			sawCR = false
		}
	}
	return nil
}
