package keys_test

import (
	"testing"

	"github.com/parcelio/parcel/internal/keys"
)

func TestGenerate(t *testing.T) {
	pair, err := keys.Generate()
	if err != nil {
		t.Fatal(err)
	}
	if pair.PublicKey == "" || pair.PrivateKey == "" {
		t.Fatal("expected both keys to be non-empty")
	}
	if pair.PublicKey == pair.PrivateKey {
		t.Error("public and private keys must differ")
	}

	other, err := keys.Generate()
	if err != nil {
		t.Fatal(err)
	}
	if pair.PublicKey == other.PublicKey {
		t.Error("two calls to Generate produced the same public key")
	}
}
