package openpgp

// KeyResolver is the build_sk_list / build_pk_list / check_secret_key
// collaborator trio spec.md §6 requires: on-disk keyring storage and
// lookup, and passphrase prompting, are explicitly out of this core's
// scope. A caller supplies an implementation backed by whatever
// keyring it uses; the drivers only ever see the resolved lists.
type KeyResolver interface {
	// ResolveSecretKeys populates an ordered, order-preserving list
	// of secret keys for selectors. An empty selector list means
	// "the default key" — resolving that default is this
	// collaborator's job, not the driver's. Any selector miss fails
	// the whole call (ErrUserNotFound), matching spec.md §4.E step 1
	// ("If any selector fails to resolve, fail fast").
	ResolveSecretKeys(selectors []string) ([]*SecretKey, error)

	// ResolveRecipients is the same contract for encryption
	// recipients (spec.md §4.E step 2).
	ResolveRecipients(selectors []string) ([]Recipient, error)

	// CheckSecretKey may prompt for (and validate) a passphrase.
	// Returning an *Error with Kind == ErrBadPassphrase is the
	// documented failure mode (spec.md §7).
	CheckSecretKey(sk *SecretKey) error
}

// staticResolver is the trivial KeyResolver for callers (and tests)
// that already hold resolved keys in memory.
type staticResolver struct {
	secret     []*SecretKey
	recipients []Recipient
}

// NewStaticResolver returns a KeyResolver that ignores selectors and
// always returns the given keys, useful when the caller has already
// done selection (e.g. loaded exactly one key file).
func NewStaticResolver(secret []*SecretKey, recipients []Recipient) KeyResolver {
	return &staticResolver{secret: secret, recipients: recipients}
}

func (s *staticResolver) ResolveSecretKeys(selectors []string) ([]*SecretKey, error) {
	return s.secret, nil
}

func (s *staticResolver) ResolveRecipients(selectors []string) ([]Recipient, error) {
	return s.recipients, nil
}

func (s *staticResolver) CheckSecretKey(sk *SecretKey) error { return nil }
