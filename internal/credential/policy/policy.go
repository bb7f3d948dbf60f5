// Package policy determines whether a credential record is currently valid.
// The evaluation is pure and time-relative: it must run fresh on every
// verification call, never cached, because expiry depends on "now".
package policy

import (
	"time"

	"skillchain/internal/credential/models"
)

// Result is the validity outcome for a single record.
type Result struct {
	Status   models.Status
	Verified bool
	Reason   string
}

// Evaluate applies the validity rules in precedence order: revocation first,
// then expiry, then valid. A record without an expiry date never expires.
// Unparseable expiry dates are treated as absent rather than failing the
// whole verification; issuance validation prevents them from being stored.
func Evaluate(record models.CredentialRecord, now time.Time) Result {
	if record.Revoked {
		return Result{
			Status: models.StatusRevoked,
			Reason: "Credential has been revoked",
		}
	}

	if expiry, ok := record.ExpiryDate.Time(); ok && expiry.Before(now) {
		return Result{
			Status: models.StatusExpired,
			Reason: "Credential has expired",
		}
	}

	return Result{
		Status:   models.StatusValid,
		Verified: true,
	}
}
