package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillchain/internal/credential/handler"
	"skillchain/internal/credential/models"
	"skillchain/internal/sharelink"
	dErrors "skillchain/pkg/domain-errors"
	"skillchain/internal/platform/logger"
	"skillchain/pkg/requestcontext"
)

type stubIssuer struct {
	issued    models.SignedCredential
	issueErr  error
	issueReq  models.IssueRequest
	revokeErr error
	revokedID models.CredentialID
	requester string
	listed    []models.SignedCredential
	listErr   error
}

func (s *stubIssuer) Issue(_ context.Context, req models.IssueRequest) (models.SignedCredential, error) {
	s.issueReq = req
	if s.issueErr != nil {
		return models.SignedCredential{}, s.issueErr
	}
	return s.issued, nil
}

func (s *stubIssuer) Revoke(_ context.Context, id models.CredentialID, requester string) error {
	s.revokedID = id
	s.requester = requester
	return s.revokeErr
}

func (s *stubIssuer) List(_ context.Context, _ string) ([]models.SignedCredential, error) {
	return s.listed, s.listErr
}

type stubVerifier struct {
	verdict models.VerificationVerdict
	err     error
	input   models.VerifyInput
}

func (s *stubVerifier) Verify(_ context.Context, input models.VerifyInput) (models.VerificationVerdict, error) {
	s.input = input
	if s.err != nil {
		return models.VerificationVerdict{}, s.err
	}
	return s.verdict, nil
}

// asIssuer injects an authenticated issuer identity, standing in for the
// bearer-token middleware.
func asIssuer(identity string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithIssuer(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newRouter(t *testing.T, issuer *stubIssuer, verifier *stubVerifier, identity string) *chi.Mux {
	t.Helper()
	h := handler.New(issuer, verifier,
		sharelink.NewBuilder("https://skillchain.example.com"),
		logger.New(),
	)
	r := chi.NewRouter()
	h.Register(r, asIssuer(identity))
	return r
}

func signedCredential() models.SignedCredential {
	return models.SignedCredential{
		Record: models.CredentialRecord{
			ID:         "SC-1768464000000-1234",
			Title:      "Distributed Systems",
			Issuer:     "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266",
			Recipient:  "0x70997970c51812dc3a010c7d01b50e0d17dc79c8",
			IssuedDate: "2026-01-15",
			Field:      "Computer Science",
			Timestamp:  1768464000000,
		},
		ContentAddress: "bafybeihandlertestaddress",
		Signature:      "0xsigned",
		StoredAt:       time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
	}
}

func TestIssueEndpoint(t *testing.T) {
	issuer := &stubIssuer{issued: signedCredential()}
	r := newRouter(t, issuer, &stubVerifier{}, "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")

	body := `{
		"title": "Distributed Systems",
		"recipientAddress": "0x70997970c51812dc3a010c7d01b50e0d17dc79c8",
		"issuedDate": "2026-01-15",
		"field": "Computer Science"
	}`
	req := httptest.NewRequest(http.MethodPost, "/credentials", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Credential     models.CredentialRecord `json:"credential"`
		ContentAddress string                  `json:"contentAddress"`
		ShareToken     string                  `json:"shareToken"`
		ShareURL       string                  `json:"shareUrl"`
		VerifyURL      string                  `json:"verifyUrl"`
		QRCodeURL      string                  `json:"qrCodeUrl"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, models.CredentialID("SC-1768464000000-1234"), resp.Credential.ID)
	assert.Equal(t, "bafybeihandlertestaddress", resp.ContentAddress)
	assert.NotEmpty(t, resp.ShareToken)
	assert.Contains(t, resp.ShareURL, "/verify?data=")
	assert.Equal(t, "https://skillchain.example.com/verify?id=SC-1768464000000-1234", resp.VerifyURL)
	assert.Contains(t, resp.QRCodeURL, "api.qrserver.com")

	// The authenticated identity becomes the issuing identity.
	assert.Equal(t, "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266", issuer.issueReq.Issuer)
}

func TestIssueEndpointRejectsBadBody(t *testing.T) {
	r := newRouter(t, &stubIssuer{}, &stubVerifier{}, "0xissuer")

	cases := []struct {
		name string
		body string
	}{
		{"missing title", `{"recipientAddress":"0xabc","issuedDate":"2026-01-15","field":"CS"}`},
		{"missing recipient", `{"title":"T","issuedDate":"2026-01-15","field":"CS"}`},
		{"bad issued date", `{"title":"T","recipientAddress":"0xabc","issuedDate":"Jan 15","field":"CS"}`},
		{"not json", `not json`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/credentials", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestIssueEndpointRequiresAuth(t *testing.T) {
	r := newRouter(t, &stubIssuer{}, &stubVerifier{}, "")

	req := httptest.NewRequest(http.MethodPost, "/credentials", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIssueEndpointMapsSignerRejection(t *testing.T) {
	issuer := &stubIssuer{issueErr: dErrors.New(dErrors.CodeSignerRejected, "signature request rejected by wallet operator")}
	r := newRouter(t, issuer, &stubVerifier{}, "0xissuer")

	body := `{"title":"T","recipientAddress":"0xabc","issuedDate":"2026-01-15","field":"CS"}`
	req := httptest.NewRequest(http.MethodPost, "/credentials", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestVerifyEndpointByToken(t *testing.T) {
	record := signedCredential().Record
	verifier := &stubVerifier{verdict: models.VerificationVerdict{
		Verified:   true,
		Status:     models.StatusValid,
		Credential: &record,
	}}
	r := newRouter(t, &stubIssuer{}, verifier, "")

	req := httptest.NewRequest(http.MethodGet, "/verify?data=sometoken", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sometoken", verifier.input.Token)
	assert.Empty(t, verifier.input.Key)

	var verdict models.VerificationVerdict
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verdict))
	assert.True(t, verdict.Verified)
	assert.Equal(t, models.StatusValid, verdict.Status)
}

func TestVerifyEndpointByID(t *testing.T) {
	verifier := &stubVerifier{verdict: models.VerificationVerdict{
		Verified: false,
		Status:   models.StatusNotFound,
		Reason:   "Credential not found",
	}}
	r := newRouter(t, &stubIssuer{}, verifier, "")

	req := httptest.NewRequest(http.MethodGet, "/verify?id=SC-1768464000000-1234", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "a negative verdict is still a successful verification request")
	assert.Equal(t, "SC-1768464000000-1234", verifier.input.Key)
}

func TestVerifyEndpointWithoutParams(t *testing.T) {
	verifier := &stubVerifier{err: dErrors.New(dErrors.CodeValidation, "either a share token or a credential key is required")}
	r := newRouter(t, &stubIssuer{}, verifier, "")

	req := httptest.NewRequest(http.MethodGet, "/verify", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRevokeEndpoint(t *testing.T) {
	issuer := &stubIssuer{}
	r := newRouter(t, issuer, &stubVerifier{}, "0xissuer")

	req := httptest.NewRequest(http.MethodPost, "/credentials/SC-1768464000000-1234/revoke", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.CredentialID("SC-1768464000000-1234"), issuer.revokedID)
	assert.Equal(t, "0xissuer", issuer.requester)
}

func TestRevokeEndpointRejectsMalformedID(t *testing.T) {
	r := newRouter(t, &stubIssuer{}, &stubVerifier{}, "0xissuer")

	req := httptest.NewRequest(http.MethodPost, "/credentials/not-an-id/revoke", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRevokeEndpointForbiddenForForeignIssuer(t *testing.T) {
	issuer := &stubIssuer{revokeErr: dErrors.New(dErrors.CodeForbidden, "only the issuing identity may revoke a credential")}
	r := newRouter(t, issuer, &stubVerifier{}, "0xother")

	req := httptest.NewRequest(http.MethodPost, "/credentials/SC-1768464000000-1234/revoke", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListEndpoint(t *testing.T) {
	issuer := &stubIssuer{listed: []models.SignedCredential{signedCredential()}}
	r := newRouter(t, issuer, &stubVerifier{}, "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")

	req := httptest.NewRequest(http.MethodGet, "/credentials", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Credentials []struct {
			Credential     models.CredentialRecord `json:"credential"`
			ContentAddress string                  `json:"contentAddress"`
		} `json:"credentials"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Credentials, 1)
	assert.Equal(t, models.CredentialID("SC-1768464000000-1234"), resp.Credentials[0].Credential.ID)
}
