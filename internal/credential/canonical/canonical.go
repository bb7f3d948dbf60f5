// Package canonical produces the deterministic serialization of a credential
// record. The canonical payload is both the message presented to the signer
// and the input to content-address derivation, so instability here would make
// signatures unverifiable and addresses non-reproducible.
package canonical

import (
	"encoding/json"
	"fmt"

	"skillchain/internal/credential/models"
)

// Canonicalize serializes a credential record into its canonical form.
// Identical field values always yield an identical string: the record is a
// fixed struct, so encoding/json emits fields in declaration order regardless
// of how the record was constructed. No side effects.
func Canonicalize(record models.CredentialRecord) (string, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("canonicalize credential: %w", err)
	}
	return string(payload), nil
}
