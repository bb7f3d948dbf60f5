// Package verifier implements dual-path credential verification: decoding a
// self-contained share token, or looking a credential up by id or content
// address.
package verifier

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"skillchain/internal/credential/metrics"
	"skillchain/internal/credential/models"
	"skillchain/internal/credential/policy"
	"skillchain/internal/credential/store"
	"skillchain/internal/credential/token"
	"skillchain/internal/credential/tracer"
	dErrors "skillchain/pkg/domain-errors"
	audit "skillchain/pkg/platform/audit"
	"skillchain/pkg/requestcontext"
)

const (
	reasonMalformedToken = "Credential data could not be decoded"
	reasonNotFound       = "Credential not found"
)

// Service evaluates verification requests into verdicts.
type Service struct {
	store   store.Store
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

// New creates a verification service.
func New(credStore store.Store, opts ...Option) *Service {
	s := &Service{
		store:  credStore,
		tracer: tracer.NewNoop(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify evaluates the input into a verdict.
//
// A token takes precedence over a key when both are supplied. Evaluation
// failures (undecodable token, unknown key) are verdicts, not errors; an
// error is returned only when the request itself is unusable.
func (s *Service) Verify(ctx context.Context, input models.VerifyInput) (models.VerificationVerdict, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanVerify)
	var verifyErr error
	defer func() { span.End(verifyErr) }()

	switch {
	case input.Token != "":
		span.SetAttributes(tracer.String(tracer.AttrVerifyPath, "token"))
		verdict := s.verifyToken(ctx, input.Token)
		span.SetAttributes(tracer.String(tracer.AttrVerifyStatus, string(verdict.Status)))
		return verdict, nil
	case input.Key != "":
		span.SetAttributes(tracer.String(tracer.AttrVerifyPath, "key"))
		verdict := s.verifyKey(ctx, input.Key)
		span.SetAttributes(tracer.String(tracer.AttrVerifyStatus, string(verdict.Status)))
		return verdict, nil
	default:
		verifyErr = dErrors.New(dErrors.CodeValidation, "either a share token or a credential key is required")
		return models.VerificationVerdict{}, verifyErr
	}
}

// verifyToken evaluates a self-contained share token without touching the
// store. The token carries the full record; whoever holds it can verify it
// even if the issuing deployment is gone.
func (s *Service) verifyToken(ctx context.Context, rawToken string) models.VerificationVerdict {
	ctx, span := s.tracer.Start(ctx, tracer.SpanVerifyToken)
	defer span.End(nil)

	record, err := token.Decode(rawToken)
	if err != nil {
		verdict := models.VerificationVerdict{
			Verified: false,
			Status:   models.StatusInvalid,
			Reason:   reasonMalformedToken,
		}
		s.recordVerdict(ctx, span, verdict, "", audit.ActionVerificationFailed)
		return verdict
	}

	result := policy.Evaluate(record, requestcontext.Now(ctx))
	verdict := models.VerificationVerdict{
		Verified:   result.Verified,
		Status:     result.Status,
		Reason:     result.Reason,
		Credential: &record,
	}
	s.recordVerdict(ctx, span, verdict, record.ID.String(), audit.ActionCredentialVerified)
	return verdict
}

// verifyKey looks the credential up by id or content address and evaluates
// the stored record.
func (s *Service) verifyKey(ctx context.Context, key string) models.VerificationVerdict {
	ctx, span := s.tracer.Start(ctx, tracer.SpanVerifyKey)
	defer span.End(nil)

	start := time.Now()
	signed, err := s.store.FindByKey(ctx, key)
	if s.metrics != nil {
		s.metrics.ObserveStoreLookup(time.Since(start).Seconds())
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			verdict := models.VerificationVerdict{
				Verified: false,
				Status:   models.StatusNotFound,
				Reason:   reasonNotFound,
			}
			s.recordVerdict(ctx, span, verdict, key, audit.ActionCredentialVerified)
			return verdict
		}
		// The store being unreachable is indistinguishable from "not found"
		// for the caller, but it is tracked separately for operators.
		if s.metrics != nil {
			s.metrics.RecordStoreUnavailable()
		}
		s.logger.ErrorContext(ctx, "credential store lookup failed",
			"key", key,
			"error", err,
		)
		s.emit(ctx, span, audit.Event{
			Action:       audit.ActionStoreUnavailable,
			CredentialID: key,
			Reason:       err.Error(),
		})
		return models.VerificationVerdict{
			Verified: false,
			Status:   models.StatusNotFound,
			Reason:   reasonNotFound,
		}
	}

	result := policy.Evaluate(signed.Record, requestcontext.Now(ctx))
	verdict := models.VerificationVerdict{
		Verified:       result.Verified,
		Status:         result.Status,
		Reason:         result.Reason,
		Credential:     &signed.Record,
		ContentAddress: signed.ContentAddress,
		Signature:      signed.Signature,
	}
	s.recordVerdict(ctx, span, verdict, signed.Record.ID.String(), audit.ActionCredentialVerified)
	return verdict
}

func (s *Service) recordVerdict(ctx context.Context, span tracer.Span, verdict models.VerificationVerdict, credentialID string, action audit.Action) {
	if s.metrics != nil {
		s.metrics.RecordVerification(string(verdict.Status))
	}
	s.emit(ctx, span, audit.Event{
		Action:       action,
		CredentialID: credentialID,
		Decision:     string(verdict.Status),
		Reason:       verdict.Reason,
	})
	s.logger.InfoContext(ctx, "credential verified",
		"credential_id", credentialID,
		"status", verdict.Status,
		"verified", verdict.Verified,
	)
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
