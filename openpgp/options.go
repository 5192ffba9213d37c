package openpgp

// Options is the read-only configuration threaded through every
// driver call. It replaces the mutable global "opt" of the reference
// implementation: one value, built once by the caller, never mutated
// by a driver.
type Options struct {
	Armor         bool
	TextMode      bool
	Compress      bool
	CompressKeys  bool
	RFC1991       bool
	DefDigestAlgo HashAlgo // 0 = no override, let hashFor() decide
	Verbose       bool
	Outfile       string

	// Log receives one line per --verbose message, and the export
	// driver's warnings whether or not Verbose is set. Nil disables it.
	Log func(format string, args ...interface{})
}

func (o *Options) logf(format string, args ...interface{}) {
	if o != nil && o.Verbose && o.Log != nil {
		o.Log(format, args...)
	}
}

// effectiveTextMode applies the documented (and admittedly surprising,
// see SPEC_FULL.md) rule that an explicit outfile silently disables
// text mode.
func (o *Options) effectiveTextMode() bool {
	if o.Outfile != "" {
		return false
	}
	return o.TextMode
}

// effectiveArmor applies the rule that armor is never added when the
// caller gave an explicit output path.
func (o *Options) effectiveArmor() bool {
	if o.Outfile != "" {
		return false
	}
	return o.Armor
}

// effectiveCompress applies the rule that compression is suppressed
// whenever an explicit output path is given.
func (o *Options) effectiveCompress() bool {
	if o.Outfile != "" {
		return false
	}
	return o.Compress
}
