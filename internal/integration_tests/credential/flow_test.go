package credential

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillchain/internal/apitoken"
	"skillchain/internal/credential/handler"
	"skillchain/internal/credential/issuer"
	"skillchain/internal/credential/models"
	"skillchain/internal/credential/store"
	"skillchain/internal/credential/verifier"
	"skillchain/internal/platform/logger"
	"skillchain/internal/sharelink"
	"skillchain/internal/signer/local"
	"skillchain/pkg/platform/middleware/auth"
	"skillchain/pkg/platform/middleware/metadata"
	"skillchain/pkg/platform/middleware/requesttime"
)

// testStack wires the full issue/verify pipeline with in-memory
// infrastructure: real services, real auth, real signer.
type testStack struct {
	router   *chi.Mux
	store    *store.InMemoryStore
	identity string
	bearer   string
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	credStore := store.NewInMemoryStore()

	gateway, err := local.New("skillchain-test")
	require.NoError(t, err)

	issuerSvc := issuer.New(credStore, gateway, issuer.WithLogger(log))
	verifierSvc := verifier.New(credStore, verifier.WithLogger(log))

	tokens := apitoken.NewService("integration-test-key", "skillchain", time.Hour)
	bearer, err := tokens.MintToken(gateway.Identity(), time.Now())
	require.NoError(t, err)

	h := handler.New(issuerSvc, verifierSvc, sharelink.NewBuilder("http://localhost:8080"), logger.New())

	r := chi.NewRouter()
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	h.Register(r, auth.RequireIssuer(tokens, log))

	return &testStack{
		router:   r,
		store:    credStore,
		identity: gateway.Identity(),
		bearer:   bearer,
	}
}

type issueResult struct {
	Credential     models.CredentialRecord `json:"credential"`
	ContentAddress string                  `json:"contentAddress"`
	Signature      string                  `json:"signature"`
	ShareToken     string                  `json:"shareToken"`
	ShareURL       string                  `json:"shareUrl"`
}

func (s *testStack) issue(t *testing.T, body string) issueResult {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/credentials", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.bearer)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, "issue failed: %s", rec.Body.String())

	var result issueResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	return result
}

func (s *testStack) verify(t *testing.T, query url.Values) models.VerificationVerdict {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/verify?"+query.Encode(), nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, "verify failed: %s", rec.Body.String())

	var verdict models.VerificationVerdict
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verdict))
	return verdict
}

func TestIssueThenVerifyByID(t *testing.T) {
	s := newTestStack(t)

	issued := s.issue(t, `{
		"title": "Distributed Systems",
		"recipientAddress": "0x70997970c51812dc3a010c7d01b50e0d17dc79c8",
		"issuedDate": "2026-01-15",
		"field": "Computer Science"
	}`)

	assert.True(t, strings.HasPrefix(string(issued.Credential.ID), "SC-"))
	assert.Equal(t, s.identity, issued.Credential.Issuer)
	assert.Len(t, issued.ContentAddress, 59)

	verdict := s.verify(t, url.Values{"id": {string(issued.Credential.ID)}})
	assert.True(t, verdict.Verified)
	assert.Equal(t, models.StatusValid, verdict.Status)
	require.NotNil(t, verdict.Credential)
	assert.Equal(t, issued.Credential.ID, verdict.Credential.ID)
	assert.Equal(t, issued.ContentAddress, verdict.ContentAddress)
	assert.Equal(t, issued.Signature, verdict.Signature)
}

func TestIssueThenVerifyByContentAddress(t *testing.T) {
	s := newTestStack(t)

	issued := s.issue(t, `{
		"title": "Cryptography",
		"recipientAddress": "0x70997970c51812dc3a010c7d01b50e0d17dc79c8",
		"issuedDate": "2026-02-01",
		"field": "Mathematics"
	}`)

	verdict := s.verify(t, url.Values{"id": {issued.ContentAddress}})
	assert.True(t, verdict.Verified)
	assert.Equal(t, models.StatusValid, verdict.Status)
}

func TestShareTokenVerifiesWithoutStore(t *testing.T) {
	s := newTestStack(t)

	issued := s.issue(t, `{
		"title": "Compilers",
		"recipientAddress": "0x70997970c51812dc3a010c7d01b50e0d17dc79c8",
		"issuedDate": "2026-03-01",
		"field": "Computer Science"
	}`)

	// The token is self-contained: wiping the store must not matter.
	s.store.Remove(issued.Credential.ID)

	verdict := s.verify(t, url.Values{"data": {issued.ShareToken}})
	assert.True(t, verdict.Verified)
	assert.Equal(t, models.StatusValid, verdict.Status)
	require.NotNil(t, verdict.Credential)
	assert.Equal(t, issued.Credential.ID, verdict.Credential.ID)

	// The same credential is gone for the lookup path.
	verdict = s.verify(t, url.Values{"id": {string(issued.Credential.ID)}})
	assert.False(t, verdict.Verified)
	assert.Equal(t, models.StatusNotFound, verdict.Status)
}

func TestVerifyNeverIssuedID(t *testing.T) {
	s := newTestStack(t)

	verdict := s.verify(t, url.Values{"id": {"SC-1700000000000-42"}})
	assert.False(t, verdict.Verified)
	assert.Equal(t, models.StatusNotFound, verdict.Status)
	assert.Nil(t, verdict.Credential)
}

func TestExpiredCredentialVerifiesExpired(t *testing.T) {
	s := newTestStack(t)

	issued := s.issue(t, `{
		"title": "Short-lived Certificate",
		"recipientAddress": "0x70997970c51812dc3a010c7d01b50e0d17dc79c8",
		"issuedDate": "2020-01-01",
		"expiryDate": "2020-12-31",
		"field": "Operations"
	}`)

	verdict := s.verify(t, url.Values{"id": {string(issued.Credential.ID)}})
	assert.False(t, verdict.Verified)
	assert.Equal(t, models.StatusExpired, verdict.Status)

	// The token path applies the same policy.
	verdict = s.verify(t, url.Values{"data": {issued.ShareToken}})
	assert.False(t, verdict.Verified)
	assert.Equal(t, models.StatusExpired, verdict.Status)
}

func TestRevokeThenVerify(t *testing.T) {
	s := newTestStack(t)

	issued := s.issue(t, `{
		"title": "Networks",
		"recipientAddress": "0x70997970c51812dc3a010c7d01b50e0d17dc79c8",
		"issuedDate": "2026-01-15",
		"field": "Computer Science"
	}`)

	req := httptest.NewRequest(http.MethodPost, "/credentials/"+string(issued.Credential.ID)+"/revoke", nil)
	req.Header.Set("Authorization", "Bearer "+s.bearer)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	verdict := s.verify(t, url.Values{"id": {string(issued.Credential.ID)}})
	assert.False(t, verdict.Verified)
	assert.Equal(t, models.StatusRevoked, verdict.Status)
}

func TestListIssuedCredentials(t *testing.T) {
	s := newTestStack(t)

	s.issue(t, `{
		"title": "First",
		"recipientAddress": "0xaaa",
		"issuedDate": "2026-01-01",
		"field": "CS"
	}`)
	s.issue(t, `{
		"title": "Second",
		"recipientAddress": "0xbbb",
		"issuedDate": "2026-01-02",
		"field": "CS"
	}`)

	req := httptest.NewRequest(http.MethodGet, "/credentials", nil)
	req.Header.Set("Authorization", "Bearer "+s.bearer)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Credentials []struct {
			Credential models.CredentialRecord `json:"credential"`
		} `json:"credentials"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Credentials, 2)
}

func TestRejectedWithoutBearerToken(t *testing.T) {
	s := newTestStack(t)

	req := httptest.NewRequest(http.MethodPost, "/credentials", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/credentials", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
