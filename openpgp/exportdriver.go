package openpgp

import (
	"errors"
	"io"
	"os"

	"nullprogram.com/x/pgpsign/openpgp/keyring"
)

// ExportRequest bundles the export driver's inputs (spec.md §4.G). An
// empty Selectors list means "export everything in the ring".
type ExportRequest struct {
	KeyringPath string
	Secret      bool
	Selectors   []string
	Options     *Options
}

// ExportKeys runs the export driver end to end (spec.md §4.G):
// iterate or look up key blocks in an on-disk ring and re-emit their
// packets verbatim. A selector that matches nothing is logged and
// skipped rather than failing the run; exporting zero key blocks logs
// a warning and cancels the output so no empty file is left behind,
// but is not itself an error (spec.md §7).
func ExportKeys(req *ExportRequest) (err error) {
	opts := req.Options
	if opts == nil {
		opts = &Options{}
	}

	out, oerr := openExportOutput(req, opts)
	if oerr != nil {
		return oerr
	}
	exported := 0
	defer func() {
		if err != nil || exported == 0 {
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
	if opts.effectiveCompress() && opts.CompressKeys {
		algo := CompressZLIB
		if err = out.PushWriter(newCompressFilter(algo, true)); err != nil {
			return newError(ErrWriteFile, "compress_filter", err)
		}
	}

	ring, rerr := keyring.Open(req.KeyringPath)
	if rerr != nil {
		return newError(ErrOpenFile, req.KeyringPath, rerr)
	}
	defer ring.Close()

	if len(req.Selectors) == 0 {
		for {
			block, nerr := ring.Next()
			if nerr == io.EOF {
				break
			}
			if nerr != nil {
				err = newError(ErrReadFile, "export", nerr)
				return err
			}
			if werr := writeKeyBlock(out, block); werr != nil {
				err = werr
				return err
			}
			exported++
		}
	} else {
		for _, sel := range req.Selectors {
			block, ferr := ring.FindByName(sel)
			if errors.Is(ferr, keyring.ErrNotFound) {
				if opts.Log != nil {
					opts.Log("export: no key matches %q, skipping", sel)
				}
				continue
			}
			if ferr != nil {
				err = newError(ErrReadFile, "export", ferr)
				return err
			}
			if werr := writeKeyBlock(out, block); werr != nil {
				err = werr
				return err
			}
			exported++
		}
	}

	if exported == 0 && opts.Log != nil {
		opts.Log("export: nothing exported")
	}
	return nil
}

// writeKeyBlock re-emits block verbatim. Because every packet travels
// as opaque (tag, body) bytes rather than a parsed structure, a
// "stubbed" secret subkey (smartcard-backed material the original
// do_export_stream would otherwise have to special-case, SPEC_FULL.md
// SUPPLEMENTED FEATURES §3) round-trips for free: this path never
// reads far enough into the secret-key body to notice, let alone
// reject, the GNU-dummy S2K marker such a subkey carries.
func writeKeyBlock(out *IOBuf, block *keyring.KeyBlock) error {
	if err := block.WriteTo(out); err != nil {
		return newError(ErrWriteFile, "export", err)
	}
	return nil
}

// openExportOutput writes to an explicit outfile when given; export
// has no single input document to derive a default name from, so
// otherwise it streams to stdout, matching the reference's default of
// writing an exported key block to standard output.
func openExportOutput(req *ExportRequest, opts *Options) (*IOBuf, error) {
	if opts.Outfile != "" {
		return Create(opts.Outfile)
	}
	return CreateWriter(os.Stdout), nil
}
