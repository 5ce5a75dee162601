package assertion

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	dErrors "wmoned/pkg/domain-errors"
	audit "wmoned/pkg/platform/audit"
	"wmoned/pkg/platform/httputil"
	"wmoned/pkg/platform/middleware/metadata"
	"wmoned/pkg/requestcontext"
)

// Validator checks an assertion and returns its claims.
type Validator interface {
	Verify(token string) (*Claims, error)
}

// RevocationChecker reports whether an assertion was revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type claimsKey struct{}

// ClaimsFromContext returns the claims stored by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

// Middleware authenticates requests with a bearer assertion.
type Middleware struct {
	validator   Validator
	revocations RevocationChecker
	auditor     AuditPublisher
	logger      *slog.Logger
}

// NewMiddleware builds the authentication middleware. revocations and
// auditor may be nil.
func NewMiddleware(validator Validator, revocations RevocationChecker, auditor AuditPublisher, logger *slog.Logger) *Middleware {
	return &Middleware{validator: validator, revocations: revocations, auditor: auditor, logger: logger}
}

// RequireAuth rejects requests without a valid, unrevoked assertion and puts
// the citizen's BSN in the request context.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := requestcontext.RequestID(ctx)

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			m.logger.WarnContext(ctx, "unauthorized access - missing assertion",
				"request_id", requestID,
			)
			m.reject(ctx, w, "missing_assertion", dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header"))
			return
		}

		claims, err := m.validator.Verify(strings.TrimSpace(token))
		if err != nil {
			m.logger.WarnContext(ctx, "unauthorized access - invalid assertion",
				"error", err,
				"request_id", requestID,
			)
			m.reject(ctx, w, "invalid_assertion", err)
			return
		}

		// Assertions without a jti cannot be revoked individually.
		if m.revocations != nil && claims.JTI != "" {
			revoked, err := m.revocations.IsRevoked(ctx, claims.JTI)
			if err != nil {
				m.logger.ErrorContext(ctx, "failed to check assertion revocation",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to validate assertion"))
				return
			}
			if revoked {
				m.logger.WarnContext(ctx, "unauthorized access - assertion revoked",
					"jti", claims.JTI,
					"request_id", requestID,
				)
				m.emit(ctx, audit.Event{
					Action:        string(audit.EventRevokedTokenUsed),
					Subject:       claims.BSN.Masked(),
					SubjectIDHash: audit.HashSubject(claims.BSN.String()),
				})
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Assertion has been revoked"))
				return
			}
		}

		ctx = requestcontext.WithBSN(ctx, claims.BSN)
		ctx = requestcontext.WithTokenID(ctx, claims.JTI)
		ctx = context.WithValue(ctx, claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) reject(ctx context.Context, w http.ResponseWriter, reason string, err error) {
	m.emit(ctx, audit.Event{
		Action: string(audit.EventAuthFailed),
		Reason: reason,
	})
	if !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
		err = dErrors.New(dErrors.CodeUnauthorized, "invalid assertion")
	}
	httputil.WriteError(w, err)
}

func (m *Middleware) emit(ctx context.Context, event audit.Event) {
	if m.auditor == nil {
		return
	}
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	event.ClientIP = requestcontext.ClientIP(ctx)
	event.ClientSummary = metadata.ClientSummary(requestcontext.UserAgent(ctx))
	if err := m.auditor.Emit(ctx, event); err != nil {
		m.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
			"request_id", event.RequestID,
		)
	}
}

// Handler exposes assertion lifecycle endpoints.
type Handler struct {
	revocations RevocationList
	logger      *slog.Logger
}

func NewHandler(revocations RevocationList, logger *slog.Logger) *Handler {
	return &Handler{revocations: revocations, logger: logger}
}

// Register mounts the logout endpoint. It must sit behind RequireAuth.
func (h *Handler) Register(r chi.Router) {
	r.Post("/wmoned/logout", h.HandleLogout)
}

// HandleLogout revokes the presented assertion for the rest of its lifetime.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	if claims.JTI == "" || claims.ExpiresAt.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "assertion cannot be revoked"))
		return
	}

	ttl := claims.ExpiresAt.Sub(requestcontext.Now(ctx))
	if ttl <= 0 {
		// already expired, nothing to revoke
		httputil.WriteOK(w, nil)
		return
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	if err := h.revocations.Revoke(ctx, claims.JTI, ttl); err != nil {
		h.logger.ErrorContext(ctx, "failed to revoke assertion",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke assertion"))
		return
	}
	h.logger.InfoContext(ctx, "assertion revoked",
		"jti", claims.JTI,
		"request_id", requestID,
	)
	httputil.WriteOK(w, nil)
}
