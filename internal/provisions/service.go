package provisions

import (
	"context"
	"log/slog"

	"wmoned/internal/provisions/metrics"
	"wmoned/internal/registry"
	"wmoned/pkg/domain"
	dErrors "wmoned/pkg/domain-errors"
	audit "wmoned/pkg/platform/audit"
	"wmoned/pkg/platform/middleware/metadata"
	"wmoned/pkg/requestcontext"
)

// Registry is the system of record the service reads from.
type Registry interface {
	Applications(ctx context.Context, bsn domain.BSN, filters registry.Filters) ([]registry.Application, error)
	Document(ctx context.Context, bsn domain.BSN, documentID string) (*registry.DocumentContent, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service fetches a citizen's applications and turns them into current
// entitlements. It holds no per-request state.
type Service struct {
	registry       Registry
	cipher         Cipher
	rules          Rules
	filters        registry.Filters
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(s *Service)

// WithFilters sets the query filters sent with every registry lookup.
func WithFilters(f registry.Filters) Option {
	return func(s *Service) {
		s.filters = f
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(reg Registry, cipher Cipher, rules Rules, opts ...Option) *Service {
	s := &Service{
		registry: reg,
		cipher:   cipher,
		rules:    rules,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provisions returns the entitlements of bsn that have started on or before
// the request date.
func (s *Service) Provisions(ctx context.Context, bsn domain.BSN) ([]Entitlement, error) {
	if bsn.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "no authenticated citizen")
	}

	apps, err := s.registry.Applications(ctx, bsn, s.filters)
	if err != nil {
		s.metrics.IncrementLookupFailure(failureOutcome(err))
		s.logger.ErrorContext(ctx, "registry lookup failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, err
	}

	normalized := Normalize(apps, s.rules, s.cipher)
	current := SelectCurrent(normalized, requestcontext.Now(ctx))

	s.metrics.ObserveLookup(len(normalized), len(current))
	s.emitAudit(ctx, bsn, audit.Event{
		Action:   string(audit.EventProvisionsViewed),
		Decision: "returned",
		Count:    len(current),
	})
	return current, nil
}

// Document proxies a decision letter. documentID is the obfuscated id that
// was handed out in an entitlement's document list.
func (s *Service) Document(ctx context.Context, bsn domain.BSN, documentID string) (*registry.DocumentContent, error) {
	if bsn.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "no authenticated citizen")
	}
	if !s.rules.DocumentsEnabled || s.cipher == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "Not found")
	}

	plain, err := s.cipher.Decrypt(documentID)
	if err != nil {
		s.metrics.IncrementDocumentDownload("invalid_id")
		s.logger.WarnContext(ctx, "document id rejected",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, dErrors.New(dErrors.CodeNotFound, "Not found")
	}

	doc, err := s.registry.Document(ctx, bsn, plain)
	if err != nil {
		s.metrics.IncrementDocumentDownload(failureOutcome(err))
		s.logger.ErrorContext(ctx, "registry document fetch failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, err
	}

	// Downloads are compliance events: if the audit write fails, the
	// download fails.
	if s.auditPublisher != nil {
		event := s.auditEvent(ctx, bsn, audit.Event{
			Action:   string(audit.EventDocumentDownloaded),
			Decision: "served",
			Reason:   doc.MimeType,
		})
		if err := s.auditPublisher.Emit(ctx, event); err != nil {
			s.metrics.IncrementDocumentDownload("audit_failed")
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record document download")
		}
	}
	s.metrics.IncrementDocumentDownload("ok")
	return doc, nil
}

func (s *Service) emitAudit(ctx context.Context, bsn domain.BSN, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, s.auditEvent(ctx, bsn, event)); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (s *Service) auditEvent(ctx context.Context, bsn domain.BSN, event audit.Event) audit.Event {
	event.Timestamp = requestcontext.Now(ctx)
	event.Subject = bsn.Masked()
	event.SubjectIDHash = audit.HashSubject(bsn.String())
	event.RequestID = requestcontext.RequestID(ctx)
	event.ClientIP = requestcontext.ClientIP(ctx)
	event.ClientSummary = metadata.ClientSummary(requestcontext.UserAgent(ctx))
	return event
}

func failureOutcome(err error) string {
	switch {
	case registry.IsUpstream(err):
		return "upstream_error"
	case registry.IsMalformed(err):
		return "malformed"
	default:
		return "internal"
	}
}
