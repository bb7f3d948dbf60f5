package handler

import (
	"time"

	"skillchain/internal/credential/models"
)

// IssueResponse is the HTTP response for POST /credentials.
type IssueResponse struct {
	Credential     models.CredentialRecord `json:"credential"`
	ContentAddress string                  `json:"contentAddress"`
	Signature      string                  `json:"signature"`
	StoredAt       time.Time               `json:"storedAt"`
	ShareToken     string                  `json:"shareToken"`
	ShareURL       string                  `json:"shareUrl"`
	VerifyURL      string                  `json:"verifyUrl"`
	QRCodeURL      string                  `json:"qrCodeUrl"`
}

// ListResponse is the HTTP response for GET /credentials.
type ListResponse struct {
	Credentials []ListEntry `json:"credentials"`
}

// ListEntry is one issued credential in a listing.
type ListEntry struct {
	Credential     models.CredentialRecord `json:"credential"`
	ContentAddress string                  `json:"contentAddress"`
	Signature      string                  `json:"signature"`
	StoredAt       time.Time               `json:"storedAt"`
	RevokedAt      *time.Time              `json:"revokedAt,omitempty"`
}

// FromSigned converts a stored credential to a listing entry.
func FromSigned(signed models.SignedCredential) ListEntry {
	return ListEntry{
		Credential:     signed.Record,
		ContentAddress: signed.ContentAddress,
		Signature:      signed.Signature,
		StoredAt:       signed.StoredAt,
		RevokedAt:      signed.RevokedAt,
	}
}
