// Package handler wires the credential endpoints to the issuance and
// verification services.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"skillchain/internal/credential/models"
	"skillchain/internal/credential/token"
	"skillchain/internal/sharelink"
	dErrors "skillchain/pkg/domain-errors"
	"skillchain/pkg/platform/httputil"
	"skillchain/pkg/requestcontext"
)

// IssuerService defines the issuance operations used by the handler.
type IssuerService interface {
	Issue(ctx context.Context, req models.IssueRequest) (models.SignedCredential, error)
	Revoke(ctx context.Context, id models.CredentialID, requester string) error
	List(ctx context.Context, issuer string) ([]models.SignedCredential, error)
}

// VerifierService defines the verification operation used by the handler.
type VerifierService interface {
	Verify(ctx context.Context, input models.VerifyInput) (models.VerificationVerdict, error)
}

// Handler wires credential endpoints to the domain services.
type Handler struct {
	issuer   IssuerService
	verifier VerifierService
	links    *sharelink.Builder
	logger   *slog.Logger
}

// New constructs a credential handler with its dependencies.
func New(issuer IssuerService, verifier VerifierService, links *sharelink.Builder, logger *slog.Logger) *Handler {
	return &Handler{
		issuer:   issuer,
		verifier: verifier,
		links:    links,
		logger:   logger,
	}
}

// Register mounts the credential endpoints. Verification is public, with
// optional middleware (rate limiting) applied; issuance, listing and
// revocation require an authenticated issuer via the given middleware.
func (h *Handler) Register(r chi.Router, requireIssuer func(http.Handler) http.Handler, verifyMiddleware ...func(http.Handler) http.Handler) {
	r.Group(func(vr chi.Router) {
		for _, mw := range verifyMiddleware {
			vr.Use(mw)
		}
		vr.Get("/verify", h.HandleVerify)
	})
	r.Group(func(pr chi.Router) {
		pr.Use(requireIssuer)
		pr.Post("/credentials", h.HandleIssue)
		pr.Get("/credentials", h.HandleList)
		pr.Post("/credentials/{id}/revoke", h.HandleRevoke)
	})
}

// HandleIssue handles POST /credentials requests.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	issuer := requestcontext.Issuer(ctx)
	if issuer == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger)
	if !ok {
		return
	}

	signed, err := h.issuer.Issue(ctx, req.ToDomain(issuer))
	if err != nil {
		h.logger.ErrorContext(ctx, "credential issuance failed",
			"request_id", requestID,
			"issuer", issuer,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	shareToken, err := token.Encode(signed.Record)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "credential issued",
		"request_id", requestID,
		"credential_id", signed.Record.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	shareURL := h.links.VerifyTokenURL(shareToken)
	httputil.WriteJSON(w, http.StatusCreated, IssueResponse{
		Credential:     signed.Record,
		ContentAddress: signed.ContentAddress,
		Signature:      signed.Signature,
		StoredAt:       signed.StoredAt,
		ShareToken:     shareToken,
		ShareURL:       shareURL,
		VerifyURL:      h.links.VerifyIDURL(signed.Record.ID.String()),
		QRCodeURL:      sharelink.QRImageURL(shareURL, 300),
	})
}

// HandleVerify handles GET /verify requests. The data parameter carries a
// self-contained share token and wins over id when both are present.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	input := models.VerifyInput{
		Token: r.URL.Query().Get("data"),
		Key:   r.URL.Query().Get("id"),
	}

	verdict, err := h.verifier.Verify(ctx, input)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, verdict)
}

// HandleRevoke handles POST /credentials/{id}/revoke requests.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	issuer := requestcontext.Issuer(ctx)
	if issuer == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	id, err := models.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.issuer.Revoke(ctx, id, issuer); err != nil {
		h.logger.ErrorContext(ctx, "credential revocation failed",
			"request_id", requestcontext.RequestID(ctx),
			"credential_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"id":      id.String(),
		"revoked": true,
	})
}

// HandleList handles GET /credentials requests, listing the authenticated
// issuer's credentials.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	issuer := requestcontext.Issuer(ctx)
	if issuer == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	listed, err := h.issuer.List(ctx, issuer)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries := make([]ListEntry, 0, len(listed))
	for _, signed := range listed {
		entries = append(entries, FromSigned(signed))
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Credentials: entries})
}
