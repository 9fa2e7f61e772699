// Package registry signs and verifies the chunkserver-to-master
// registration handshake (CSTOMA_REGISTER / MATOCS_REGISTER_STATUS in
// pkg/wire), so a master can tell a genuine chunkserver's registration from
// a spoofed one announcing part locations it doesn't hold.
//
// Grounded on the teacher repo's crypto/signatures.go for the sign/verify
// call shape, using the standard library's crypto/ed25519 directly rather
// than Sia's SiaPublicKey wrapper, since node identity here is a bare
// chunkserver key, not a blockchain-era unlock condition.
package registry

import (
	"crypto/ed25519"
	"crypto/rand"

	"github.com/NebulousLabs/errors"
)

// PublicKey and SecretKey alias crypto/ed25519's key types.
type PublicKey = ed25519.PublicKey
type SecretKey = ed25519.PrivateKey

// ErrInvalidSignature is returned by VerifyRegistration on a bad signature.
var ErrInvalidSignature = errors.New("registry: invalid registration signature")

// GenerateKeyPair creates a new chunkserver identity key pair.
func GenerateKeyPair() (PublicKey, SecretKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, errors.AddContext(err, "registry: could not generate key pair")
	}
	return pub, priv, nil
}

// registrationMessage is what gets signed: the chunkserver's address and
// the set of part types it claims to hold, concatenated so a replay against
// a different address or part set fails verification.
func registrationMessage(address string, partTypes []byte) []byte {
	msg := make([]byte, 0, len(address)+len(partTypes)+1)
	msg = append(msg, []byte(address)...)
	msg = append(msg, 0)
	msg = append(msg, partTypes...)
	return msg
}

// SignRegistration signs a chunkserver's registration claim.
func SignRegistration(sk SecretKey, address string, partTypes []byte) []byte {
	return ed25519.Sign(sk, registrationMessage(address, partTypes))
}

// VerifyRegistration checks a chunkserver's registration signature against
// its claimed public key.
func VerifyRegistration(pk PublicKey, address string, partTypes []byte, sig []byte) error {
	if !ed25519.Verify(pk, registrationMessage(address, partTypes), sig) {
		return ErrInvalidSignature
	}
	return nil
}
