// Package issuer implements the credential issuance pipeline: canonicalize,
// sign, derive the content address, persist.
package issuer

import (
	"context"
	"errors"
	"log/slog"

	"skillchain/internal/credential/canonical"
	"skillchain/internal/credential/cid"
	"skillchain/internal/credential/metrics"
	"skillchain/internal/credential/models"
	"skillchain/internal/credential/store"
	"skillchain/internal/credential/tracer"
	"skillchain/internal/signer"
	dErrors "skillchain/pkg/domain-errors"
	audit "skillchain/pkg/platform/audit"
	"skillchain/pkg/requestcontext"
)

// Service issues, revokes and lists credentials.
type Service struct {
	store   store.Store
	gateway signer.Gateway
	audit   audit.Emitter
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	logger  *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithAuditEmitter enables audit trail emission.
func WithAuditEmitter(emitter audit.Emitter) Option {
	return func(s *Service) {
		s.audit = emitter
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer enables distributed tracing.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// New creates an issuance service.
func New(credStore store.Store, gateway signer.Gateway, opts ...Option) *Service {
	s := &Service{
		store:   credStore,
		gateway: gateway,
		tracer:  tracer.NewNoop(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates, signs and persists a credential.
//
// The pipeline is strictly ordered: the record is canonicalized once, the
// signature and the content address are both derived from those exact bytes,
// and nothing is persisted until both exist. A failure at any stage aborts
// the whole issuance.
func (s *Service) Issue(ctx context.Context, req models.IssueRequest) (models.SignedCredential, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanIssue,
		tracer.String(tracer.AttrIssuer, req.Issuer),
	)
	var issueErr error
	defer func() { span.End(issueErr) }()

	if err := validateRequest(req); err != nil {
		s.recordFailure("validate")
		issueErr = err
		return models.SignedCredential{}, err
	}

	issuer := req.Issuer
	if issuer == "" {
		info, err := s.gateway.Connect(ctx)
		if err != nil {
			s.recordFailure("sign")
			issueErr = err
			return models.SignedCredential{}, err
		}
		issuer = info.Identity
	}

	now := requestcontext.Now(ctx)
	record := models.CredentialRecord{
		ID:         models.NewCredentialID(now),
		Title:      req.Title,
		Issuer:     issuer,
		Recipient:  req.Recipient,
		IssuedDate: req.IssuedDate,
		ExpiryDate: req.ExpiryDate,
		Field:      req.Field,
		Timestamp:  now.UnixMilli(),
	}

	payload, err := canonical.Canonicalize(record)
	if err != nil {
		s.recordFailure("canonicalize")
		issueErr = err
		return models.SignedCredential{}, err
	}

	_, signSpan := s.tracer.Start(ctx, tracer.SpanSign)
	signature, err := s.gateway.Sign(ctx, []byte(payload), issuer)
	signSpan.End(err)
	if err != nil {
		s.recordFailure("sign")
		s.logger.WarnContext(ctx, "credential signing failed",
			"credential_id", record.ID,
			"issuer", issuer,
			"error", err,
		)
		issueErr = err
		return models.SignedCredential{}, err
	}

	signed := models.SignedCredential{
		Record:         record,
		ContentAddress: cid.Derive(payload, now),
		Signature:      signature,
		StoredAt:       now,
	}

	_, storeSpan := s.tracer.Start(ctx, tracer.SpanStore)
	err = s.store.Insert(ctx, signed)
	storeSpan.End(err)
	if err != nil {
		s.recordFailure("store")
		issueErr = err
		if errors.Is(err, store.ErrDuplicateID) {
			return models.SignedCredential{}, dErrors.Wrap(err, dErrors.CodeConflict, "credential id already issued")
		}
		return models.SignedCredential{}, err
	}

	span.SetAttributes(
		tracer.String(tracer.AttrCredentialID, record.ID.String()),
		tracer.String(tracer.AttrContentAddress, signed.ContentAddress),
	)
	if s.metrics != nil {
		s.metrics.RecordIssued()
	}
	s.emit(ctx, span, audit.Event{
		Action:         audit.ActionCredentialIssued,
		CredentialID:   record.ID.String(),
		ContentAddress: signed.ContentAddress,
		Issuer:         issuer,
	})
	s.logger.InfoContext(ctx, "credential issued",
		"credential_id", record.ID,
		"content_address", signed.ContentAddress,
		"issuer", issuer,
	)
	return signed, nil
}

// Revoke soft-invalidates an issued credential.
//
// Only the issuing identity may revoke; revocation is idempotent.
func (s *Service) Revoke(ctx context.Context, id models.CredentialID, requester string) error {
	ctx, span := s.tracer.Start(ctx, tracer.SpanRevoke,
		tracer.String(tracer.AttrCredentialID, id.String()),
	)
	var revokeErr error
	defer func() { span.End(revokeErr) }()

	existing, err := s.store.FindByKey(ctx, id.String())
	if err != nil {
		revokeErr = err
		return err
	}
	if requester != "" && existing.Record.Issuer != requester {
		revokeErr = dErrors.New(dErrors.CodeForbidden, "only the issuing identity may revoke a credential")
		return revokeErr
	}

	if err := s.store.Revoke(ctx, id, requestcontext.Now(ctx)); err != nil {
		revokeErr = err
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordRevoked()
	}
	s.emit(ctx, span, audit.Event{
		Action:         audit.ActionCredentialRevoked,
		CredentialID:   id.String(),
		ContentAddress: existing.ContentAddress,
		Issuer:         existing.Record.Issuer,
	})
	s.logger.InfoContext(ctx, "credential revoked",
		"credential_id", id,
		"issuer", existing.Record.Issuer,
	)
	return nil
}

// List returns the credentials issued by the given identity, newest first.
func (s *Service) List(ctx context.Context, issuer string) ([]models.SignedCredential, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanList,
		tracer.String(tracer.AttrIssuer, issuer),
	)
	var listErr error
	defer func() { span.End(listErr) }()

	if issuer == "" {
		listErr = dErrors.New(dErrors.CodeValidation, "issuer identity is required")
		return nil, listErr
	}
	out, err := s.store.ListByIssuer(ctx, issuer)
	listErr = err
	return out, err
}

func (s *Service) emit(ctx context.Context, span tracer.Span, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, audit.Enrich(ctx, event)); err != nil {
		s.logger.WarnContext(ctx, "audit emission failed",
			"action", event.Action,
			"error", err,
		)
		return
	}
	span.AddEvent(tracer.EventAuditEmitted)
}

func (s *Service) recordFailure(stage string) {
	if s.metrics != nil {
		s.metrics.RecordIssueFailure(stage)
	}
}

// validateRequest enforces required fields and well-formed dates.
func validateRequest(req models.IssueRequest) error {
	switch {
	case req.Title == "":
		return dErrors.New(dErrors.CodeValidation, "title is required")
	case req.Recipient == "":
		return dErrors.New(dErrors.CodeValidation, "recipient address is required")
	case req.Field == "":
		return dErrors.New(dErrors.CodeValidation, "field is required")
	case req.IssuedDate.IsZero():
		return dErrors.New(dErrors.CodeValidation, "issued date is required")
	}
	if _, ok := req.IssuedDate.Time(); !ok {
		return dErrors.New(dErrors.CodeValidation, "issued date must use YYYY-MM-DD")
	}
	if !req.ExpiryDate.IsZero() {
		if _, ok := req.ExpiryDate.Time(); !ok {
			return dErrors.New(dErrors.CodeValidation, "expiry date must use YYYY-MM-DD")
		}
	}
	return nil
}
