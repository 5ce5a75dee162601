package handler

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"wmoned/internal/provisions"
	"wmoned/internal/registry"
	"wmoned/pkg/domain"
	dErrors "wmoned/pkg/domain-errors"
	"wmoned/pkg/platform/httputil"
	"wmoned/pkg/requestcontext"
)

const maxDocumentIDLength = 512

// Service defines the interface for provision lookups.
type Service interface {
	Provisions(ctx context.Context, bsn domain.BSN) ([]provisions.Entitlement, error)
	Document(ctx context.Context, bsn domain.BSN, documentID string) (*registry.DocumentContent, error)
}

// Handler wires the citizen-facing endpoints to the provisions service.
// Authentication is applied by the router before these handlers run.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the provisions endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/wmoned/voorzieningen", h.HandleProvisions)
	r.Get("/wmoned/document/{id}", h.HandleDocument)
}

// HandleProvisions handles GET /wmoned/voorzieningen.
func (h *Handler) HandleProvisions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	bsn := requestcontext.BSN(ctx)
	if bsn.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	entitlements, err := h.service.Provisions(ctx, bsn)
	if err != nil {
		h.logger.ErrorContext(ctx, "provisions lookup failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "provisions returned",
		"request_id", requestID,
		"count", len(entitlements),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteOK(w, entitlements)
}

// HandleDocument handles GET /wmoned/document/{id}. The body is the raw document.
func (h *Handler) HandleDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	bsn := requestcontext.BSN(ctx)
	if bsn.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	documentID := chi.URLParam(r, "id")
	if documentID == "" || len(documentID) > maxDocumentIDLength {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid document id"))
		return
	}

	doc, err := h.service.Document(ctx, bsn, documentID)
	if err != nil {
		h.logger.WarnContext(ctx, "document download failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	contentType := doc.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	if doc.FileName != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}
