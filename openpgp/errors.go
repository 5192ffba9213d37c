package openpgp

import (
	"errors"
	"fmt"
)

var errAfterWrite = errors.New("enable called after write began")
var errNoRecipients = errors.New("encrypt filter requires at least one recipient")
var errUnsupportedRecipient = errors.New("only RSA recipients are supported")
var errMissingKeyMaterial = errors.New("secret key material missing for algorithm")
var errMultiFileNeedsDetached = errors.New("multiple filenames are only valid for detached signatures")
var errNoSigningKeys = errors.New("no secret keys resolved")

func errUnsupportedPubKeyAlgo(algo PubKeyAlgo) error {
	return fmt.Errorf("unsupported public-key algorithm %s", algo)
}

func errUnsupportedHash(algo HashAlgo) error {
	return fmt.Errorf("unsupported hash algorithm %s", algo)
}

func errNotEnabled(algo HashAlgo) error {
	return fmt.Errorf("hash algorithm %s not enabled", algo)
}

// ErrorKind classifies a failure the way the sign and export drivers
// need to react to it: UserNotFound is tolerated during export, every
// other kind aborts the current driver and cancels its output.
type ErrorKind int

const (
	ErrOpenFile ErrorKind = iota
	ErrCreateFile
	ErrWriteFile
	ErrReadFile
	ErrUserNotFound
	ErrBadPassphrase
	ErrCryptoFailure
	ErrPacketBuild
	ErrBug
)

func (k ErrorKind) String() string {
	switch k {
	case ErrOpenFile:
		return "open file"
	case ErrCreateFile:
		return "create file"
	case ErrWriteFile:
		return "write file"
	case ErrReadFile:
		return "read file"
	case ErrUserNotFound:
		return "user not found"
	case ErrBadPassphrase:
		return "bad passphrase"
	case ErrCryptoFailure:
		return "crypto failure"
	case ErrPacketBuild:
		return "packet build"
	case ErrBug:
		return "bug"
	default:
		return "unknown error"
	}
}

// Error wraps an underlying failure with the kind and context the
// drivers use to decide whether to cancel or to log-and-continue.
type Error struct {
	Kind    ErrorKind
	Context string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Context, e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Context, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, context string, err error) *Error {
	return &Error{Kind: kind, Context: context, Err: err}
}

// KindOf returns the ErrorKind carried by err, or ErrBug if err does
// not wrap an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrBug
}
