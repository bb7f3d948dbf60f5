// Package local provides an in-process signing gateway for development and
// tests.
package local

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"

	"skillchain/internal/signer"
)

const personalSignPrefix = "\x19Skillchain Signed Message:\n"

// Signer signs credential payloads with an in-process ed25519 key.
//
// The identity is derived the way wallet addresses are: keccak-256 over the
// public key, last 20 bytes, 0x-prefixed hex. Signatures follow the
// personal_sign convention of signing a length-prefixed message.
type Signer struct {
	identity   string
	networkID  string
	publicKey  ed25519.PublicKey
	privateKey ed25519.PrivateKey
}

// New generates a fresh signing key.
func New(networkID string) (*Signer, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return FromKey(networkID, privateKey, publicKey), nil
}

// FromKey constructs a signer around an existing key pair. Tests use it for
// deterministic signatures.
func FromKey(networkID string, privateKey ed25519.PrivateKey, publicKey ed25519.PublicKey) *Signer {
	return &Signer{
		identity:   deriveIdentity(publicKey),
		networkID:  networkID,
		publicKey:  publicKey,
		privateKey: privateKey,
	}
}

// Connect reports the signer's identity. A local signer is always reachable.
func (s *Signer) Connect(_ context.Context) (signer.WalletInfo, error) {
	return signer.WalletInfo{
		Identity:  s.identity,
		NetworkID: s.networkID,
	}, nil
}

// Sign signs the payload for the given identity.
func (s *Signer) Sign(_ context.Context, payload []byte, identity string) (string, error) {
	if identity != s.identity {
		return "", fmt.Errorf("unknown signing identity %q", identity)
	}
	message := prefixedMessage(payload)
	sig := ed25519.Sign(s.privateKey, message)
	return "0x" + hex.EncodeToString(sig), nil
}

// Verify checks a signature produced by Sign. Not part of the Gateway
// contract; exposed for tests.
func (s *Signer) Verify(payload []byte, signature string) bool {
	if len(signature) < 2 || signature[:2] != "0x" {
		return false
	}
	sig, err := hex.DecodeString(signature[2:])
	if err != nil {
		return false
	}
	return ed25519.Verify(s.publicKey, prefixedMessage(payload), sig)
}

// Identity returns the 0x-prefixed address derived from the public key.
func (s *Signer) Identity() string {
	return s.identity
}

func prefixedMessage(payload []byte) []byte {
	prefix := fmt.Sprintf("%s%d", personalSignPrefix, len(payload))
	return append([]byte(prefix), payload...)
}

func deriveIdentity(publicKey ed25519.PublicKey) string {
	digest := sha3.NewLegacyKeccak256()
	digest.Write(publicKey)
	sum := digest.Sum(nil)
	return "0x" + hex.EncodeToString(sum[len(sum)-20:])
}
