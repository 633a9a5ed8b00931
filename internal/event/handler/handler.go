package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pageguard/internal/audit"
	"pageguard/internal/event"
	dErrors "pageguard/pkg/domain-errors"
	"pageguard/pkg/platform/httputil"
	"pageguard/pkg/requestcontext"
	"pageguard/pkg/sentinel"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Handler exposes the event lifecycle over HTTP. All reads and writes are
// scoped to the authenticated tenant.
type Handler struct {
	store  event.Store
	auditp *audit.Publisher
	logger *slog.Logger
}

// New constructs an event handler with its dependencies.
func New(store event.Store, auditp *audit.Publisher, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		auditp: auditp,
		logger: logger,
	}
}

// Register mounts event endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/events", h.HandleList)
	r.Get("/events/{eventID}", h.HandleGet)
	r.Patch("/events/{eventID}/acknowledge", h.HandleAcknowledge)
}

// HandleList handles GET /api/events requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := requestcontext.TenantID(ctx)
	if tenantID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "tenant scope required"))
		return
	}

	limit := queryInt(r, "limit", defaultListLimit)
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	events, err := h.store.ListRecent(ctx, tenantID, limit, offset)
	if err != nil {
		h.logger.ErrorContext(ctx, "event list failed",
			"tenant_id", tenantID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "listing events"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromEvents(events))
}

// HandleGet handles GET /api/events/{eventID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := requestcontext.TenantID(ctx)
	if tenantID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "tenant scope required"))
		return
	}
	eventID := chi.URLParam(r, "eventID")

	e, err := h.store.GetByID(ctx, tenantID, eventID)
	if err != nil {
		httputil.WriteError(w, mapStoreError(err, "fetching event"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromEvent(e))
}

// HandleAcknowledge handles PATCH /api/events/{eventID}/acknowledge requests.
func (h *Handler) HandleAcknowledge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := requestcontext.TenantID(ctx)
	if tenantID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "tenant scope required"))
		return
	}
	eventID := chi.URLParam(r, "eventID")

	if err := h.store.Acknowledge(ctx, tenantID, eventID); err != nil {
		h.logger.WarnContext(ctx, "event acknowledge rejected",
			"tenant_id", tenantID,
			"event_id", eventID,
			"error", err,
		)
		httputil.WriteError(w, mapStoreError(err, "acknowledging event"))
		return
	}

	if h.auditp != nil {
		h.auditp.Emit(ctx, audit.Entry{
			TenantID:  tenantID,
			EventID:   eventID,
			Action:    audit.ActionEventAcknowledged,
			RequestID: requestcontext.RequestID(ctx),
		})
	}

	e, err := h.store.GetByID(ctx, tenantID, eventID)
	if err != nil {
		httputil.WriteError(w, mapStoreError(err, "fetching event"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEvent(e))
}

func mapStoreError(err error, action string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "event not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeConflict, "event has no verdict yet")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, action)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
