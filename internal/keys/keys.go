// Package keys generates Curve25519 keypairs for the standalone
// generate-keys command. Per spec §9 Open Question (c), this keypair is not
// wired into the authentication handshake anywhere else in this module; it
// mirrors the reference implementation's unused zmq.curve_keypair() sketch.
package keys

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/box"
)

// Pair is a Curve25519 public/private keypair, base64url-encoded for
// display and storage.
type Pair struct {
	PublicKey  string
	PrivateKey string
}

// Generate returns a fresh keypair.
func Generate() (Pair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return Pair{}, errors.Wrap(err, "generate keypair")
	}

	return Pair{
		PublicKey:  base64.RawURLEncoding.EncodeToString(pub[:]),
		PrivateKey: base64.RawURLEncoding.EncodeToString(priv[:]),
	}, nil
}
