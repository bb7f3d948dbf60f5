package handler

import (
	"strings"

	"skillchain/internal/credential/models"
	dErrors "skillchain/pkg/domain-errors"
)

// IssueRequest is the HTTP request body for POST /credentials.
type IssueRequest struct {
	Title            string `json:"title"`
	RecipientAddress string `json:"recipientAddress"`
	IssuedDate       string `json:"issuedDate"`
	ExpiryDate       string `json:"expiryDate,omitempty"`
	Field            string `json:"field"`

	// Parsed values (populated by Validate)
	parsedIssuedDate models.Date
	parsedExpiryDate models.Date
}

// Normalize trims whitespace from all fields.
// Implements the Normalizable interface for httputil.DecodeAndPrepare.
func (r *IssueRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.RecipientAddress = strings.TrimSpace(r.RecipientAddress)
	r.IssuedDate = strings.TrimSpace(r.IssuedDate)
	r.ExpiryDate = strings.TrimSpace(r.ExpiryDate)
	r.Field = strings.TrimSpace(r.Field)
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *IssueRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	if r.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if len(r.Title) > 200 {
		return dErrors.New(dErrors.CodeValidation, "title must be at most 200 characters")
	}
	if r.RecipientAddress == "" {
		return dErrors.New(dErrors.CodeValidation, "recipientAddress is required")
	}
	if r.Field == "" {
		return dErrors.New(dErrors.CodeValidation, "field is required")
	}
	if r.IssuedDate == "" {
		return dErrors.New(dErrors.CodeValidation, "issuedDate is required")
	}

	issued, err := models.ParseDate(r.IssuedDate)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "issuedDate must use YYYY-MM-DD")
	}
	r.parsedIssuedDate = issued

	if r.ExpiryDate != "" {
		expiry, err := models.ParseDate(r.ExpiryDate)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "expiryDate must use YYYY-MM-DD")
		}
		r.parsedExpiryDate = expiry
	}
	return nil
}

// ToDomain builds the domain issue request for the authenticated issuer.
func (r *IssueRequest) ToDomain(issuer string) models.IssueRequest {
	return models.IssueRequest{
		Title:      r.Title,
		Issuer:     issuer,
		Recipient:  r.RecipientAddress,
		IssuedDate: r.parsedIssuedDate,
		ExpiryDate: r.parsedExpiryDate,
		Field:      r.Field,
	}
}
