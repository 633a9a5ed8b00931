package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pageguard/internal/event"
	"pageguard/internal/scan"
	dErrors "pageguard/pkg/domain-errors"
	"pageguard/pkg/platform/httputil"
	"pageguard/pkg/requestcontext"
)

// Service defines the interface for scan evaluation.
type Service interface {
	Evaluate(ctx context.Context, artifact scan.Artifact) (*scan.Result, error)
}

// Handler wires the scan endpoints to the verdict engine.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a scan handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts scan endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/scan/image", h.HandleScanImage)
	r.Post("/scan/popup", h.HandleScanPopup)
}

// HandleScanImage handles POST /api/scan/image requests.
func (h *Handler) HandleScanImage(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[ImageScanRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	capturedAt := time.Now()
	if req.Metadata.Timestamp > 0 {
		capturedAt = time.UnixMilli(req.Metadata.Timestamp)
	}
	h.evaluate(w, r, event.KindImage, req.PageURL, req.payload(), capturedAt)
}

// HandleScanPopup handles POST /api/scan/popup requests.
func (h *Handler) HandleScanPopup(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[PopupScanRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.evaluate(w, r, event.KindPopup, req.PageURL, req.payload(), time.Now())
}

func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request, kind event.Kind, pageURL string, payload any, capturedAt time.Time) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	tenantID := requestcontext.TenantID(ctx)
	if tenantID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "tenant scope required"))
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "encoding payload"))
		return
	}

	result, err := h.service.Evaluate(ctx, scan.Artifact{
		TenantID:   tenantID,
		Kind:       kind,
		PageURL:    pageURL,
		Payload:    raw,
		CapturedAt: capturedAt,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "scan evaluation failed",
			"request_id", requestID,
			"tenant_id", tenantID,
			"kind", kind,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "scan evaluated",
		"request_id", requestID,
		"tenant_id", tenantID,
		"kind", kind,
		"event_id", result.EventID,
		"verdict", result.Verdict.Label,
		"action", result.Verdict.Action,
		"fallback", result.Fallback,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}
