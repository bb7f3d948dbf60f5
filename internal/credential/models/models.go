package models

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	dErrors "skillchain/pkg/domain-errors"
)

const credentialIDPrefix = "SC-"

// credentialIDPattern matches ids of the form SC-<unix-ms>-<random>.
var credentialIDPattern = regexp.MustCompile(`^SC-\d+-\d{1,4}$`)

// CredentialID is the issuer-assigned identifier for issued credentials.
type CredentialID string

// NewCredentialID generates a credential ID from the issuance instant plus a
// random discriminator, matching the external id format printed on artifacts.
func NewCredentialID(now time.Time) CredentialID {
	return CredentialID(fmt.Sprintf("%s%d-%d", credentialIDPrefix, now.UnixMilli(), rand.Intn(10000)))
}

// ParseCredentialID validates and parses a credential ID string.
func ParseCredentialID(value string) (CredentialID, error) {
	if strings.TrimSpace(value) == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "credential id is required")
	}
	if !credentialIDPattern.MatchString(value) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "credential id must have the form SC-<timestamp>-<n>")
	}
	return CredentialID(value), nil
}

// String returns the credential ID as a string.
func (id CredentialID) String() string {
	return string(id)
}

// Date is a calendar date in ISO "2006-01-02" form. The zero value ""
// means "not set"; for expiry dates that reads as "never expires".
// Kept as a string so the canonical serialization and share tokens carry
// exactly what the issuer entered.
type Date string

// ParseDate validates a calendar date string.
func ParseDate(value string) (Date, error) {
	if value == "" {
		return "", nil
	}
	if _, err := time.Parse(time.DateOnly, value); err != nil {
		return "", dErrors.New(dErrors.CodeValidation, "date must use YYYY-MM-DD")
	}
	return Date(value), nil
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d == ""
}

// Time returns the date as a UTC midnight instant.
// Returns ok=false for unset or unparseable dates.
func (d Date) Time() (time.Time, bool) {
	if d.IsZero() {
		return time.Time{}, false
	}
	t, err := time.Parse(time.DateOnly, string(d))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// String returns the date string.
func (d Date) String() string {
	return string(d)
}

// CredentialRecord is the issued artifact. All fields except ExpiryDate are
// required and immutable after creation; Revoked is the only external flag
// that may change, and only via soft-invalidation.
//
// Field declaration order is load-bearing: the canonical serialization and
// the share-token payload marshal fields in this order.
type CredentialRecord struct {
	ID         CredentialID `json:"id"`
	Title      string       `json:"title"`
	Issuer     string       `json:"issuer"`
	Recipient  string       `json:"recipientAddress"`
	IssuedDate Date         `json:"issuedDate"`
	ExpiryDate Date         `json:"expiryDate,omitempty"`
	Field      string       `json:"field"`
	// Timestamp is the issuance instant in unix milliseconds. It only feeds
	// content-address uniqueness; no business logic reads it.
	Timestamp int64 `json:"timestamp"`
	Revoked   bool  `json:"revoked,omitempty"`
}

// SignedCredential is the issuance result as persisted by the store. Once
// persisted the store owns it; in-memory copies held by issuing clients are
// transient views, not authoritative.
type SignedCredential struct {
	Record         CredentialRecord `json:"credential"`
	ContentAddress string           `json:"contentAddress"`
	Signature      string           `json:"signature"`
	StoredAt       time.Time        `json:"storedAt"`
	RevokedAt      *time.Time       `json:"revokedAt,omitempty"`
}

// IssueRequest captures the data required to issue a credential.
type IssueRequest struct {
	Title      string
	Issuer     string
	Recipient  string
	IssuedDate Date
	ExpiryDate Date
	Field      string
}

// VerifyInput selects one of the two verification paths: a self-contained
// share token, or a store lookup key (credential id or content address).
type VerifyInput struct {
	Token string
	Key   string
}

// VerificationVerdict is the outcome of a verification attempt. Created
// fresh per call; never persisted.
type VerificationVerdict struct {
	Verified       bool              `json:"verified"`
	Status         Status            `json:"status"`
	Reason         string            `json:"reason,omitempty"`
	Credential     *CredentialRecord `json:"credential,omitempty"`
	ContentAddress string            `json:"contentAddress,omitempty"`
	Signature      string            `json:"signature,omitempty"`
}

// Status labels a verification verdict.
type Status string

const (
	StatusValid    Status = "Valid"
	StatusExpired  Status = "Expired"
	StatusRevoked  Status = "Revoked"
	StatusNotFound Status = "Not Found"
	// StatusInvalid marks malformed verification input (undecodable token).
	StatusInvalid Status = "Invalid"
)
