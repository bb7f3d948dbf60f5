// Package signer defines the contract for producing credential signatures.
//
// Issuance treats the signer as an external gateway: connecting yields the
// issuer identity, and signing may fail because the gateway is unreachable or
// because its operator declined the request. Both outcomes are surfaced as
// coded domain errors so callers can distinguish them.
package signer

//go:generate mockgen -source=signer.go -destination=mocks/gateway_mock.go -package=mocks Gateway

import (
	"context"
)

// WalletInfo describes a connected signing identity.
type WalletInfo struct {
	// Identity is the signer's address in 0x-prefixed hex form.
	Identity string
	// NetworkID identifies the network the signer is attached to.
	NetworkID string
}

// Gateway produces signatures over canonical credential payloads.
type Gateway interface {
	// Connect establishes a session with the signing gateway and returns the
	// active identity. Returns a CodeSignerUnavailable error when no gateway
	// is reachable.
	Connect(ctx context.Context) (WalletInfo, error)

	// Sign signs the payload with the given identity and returns the
	// signature string. Returns a CodeSignerRejected error when the operator
	// declines, and a CodeSignerUnavailable error when the gateway cannot be
	// reached.
	Sign(ctx context.Context, payload []byte, identity string) (string, error)
}
