package openpgp

import "testing"

func TestStaticResolverIgnoresSelectors(t *testing.T) {
	sk := testKey(t, "alice@example.com", 1700000000)
	resolver := NewStaticResolver([]*SecretKey{sk}, nil)

	got, err := resolver.ResolveSecretKeys([]string{"whatever", "selectors"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != sk {
		t.Fatal("static resolver did not return the key it was built with")
	}

	if err := resolver.CheckSecretKey(sk); err != nil {
		t.Fatal("static resolver's CheckSecretKey should never fail")
	}

	recipients, err := resolver.ResolveRecipients([]string{"anyone"})
	if err != nil {
		t.Fatal(err)
	}
	if len(recipients) != 0 {
		t.Fatal("static resolver built with no recipients returned some")
	}
}
