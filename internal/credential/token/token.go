// Package token encodes credential records into URL-safe, self-contained
// share tokens so verification can happen without any store access (e.g.
// scanning a QR code offline), and decodes them back.
package token

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"skillchain/internal/credential/models"
	dErrors "skillchain/pkg/domain-errors"
)

// Encode serializes a record to JSON and base64-encodes it with the URL-safe
// alphabet, padding stripped, suitable for a query parameter or QR payload.
func Encode(record models.CredentialRecord) (string, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "encode credential token")
	}
	return base64.RawURLEncoding.EncodeToString(payload), nil
}

// Decode reverses Encode. It accepts tokens in either the URL-safe or the
// standard base64 alphabet, with or without padding. Any failure — invalid
// base64, truncated input, or non-JSON content — normalizes to a single
// malformed-token error so callers never see a raw parse crash.
func Decode(tok string) (models.CredentialRecord, error) {
	if strings.TrimSpace(tok) == "" {
		return models.CredentialRecord{}, dErrors.New(dErrors.CodeMalformedToken, "token is empty")
	}

	// Restore the standard alphabet and padding, then decode.
	normalized := strings.NewReplacer("-", "+", "_", "/").Replace(tok)
	if pad := len(normalized) % 4; pad != 0 {
		normalized += strings.Repeat("=", 4-pad)
	}

	payload, err := base64.StdEncoding.DecodeString(normalized)
	if err != nil {
		return models.CredentialRecord{}, dErrors.Wrap(err, dErrors.CodeMalformedToken, "token is not valid base64")
	}

	var record models.CredentialRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return models.CredentialRecord{}, dErrors.Wrap(err, dErrors.CodeMalformedToken, "token payload is not a credential")
	}
	return record, nil
}
