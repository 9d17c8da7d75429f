package token_test

import (
	"testing"

	"github.com/parcelio/parcel/internal/token"
)

func TestGenerate(t *testing.T) {
	tok, err := token.Generate()
	if err != nil {
		t.Fatal(err)
	}
	if len(tok) != token.Length {
		t.Errorf("len(token) = %d, want %d", len(tok), token.Length)
	}

	other, err := token.Generate()
	if err != nil {
		t.Fatal(err)
	}
	if tok == other {
		t.Error("two calls to Generate produced the same token")
	}
}
