package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"pageguard/internal/audit"
	"pageguard/internal/event"
	"pageguard/internal/feedback"
	dErrors "pageguard/pkg/domain-errors"
	"pageguard/pkg/platform/httputil"
	"pageguard/pkg/requestcontext"
	"pageguard/pkg/sentinel"
)

const listLimit = 50

// Handler accepts operator judgements on verdicts and lists them per tenant.
// Submissions are validated against the tenant's own events so one tenant
// cannot label another's.
type Handler struct {
	events event.Store
	store  feedback.Store
	auditp *audit.Publisher
	logger *slog.Logger
}

// New constructs a feedback handler with its dependencies.
func New(events event.Store, store feedback.Store, auditp *audit.Publisher, logger *slog.Logger) *Handler {
	return &Handler{
		events: events,
		store:  store,
		auditp: auditp,
		logger: logger,
	}
}

// Register mounts feedback endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/events/{eventID}/feedback", h.HandleSubmit)
	r.Get("/feedback", h.HandleList)
}

// SubmitRequest is the HTTP request body for POST /api/events/{eventID}/feedback.
type SubmitRequest struct {
	Label string `json:"label"`
	Notes string `json:"notes"`
}

func (r *SubmitRequest) Validate() error {
	if !feedback.Label(r.Label).Valid() {
		return dErrors.New(dErrors.CodeInvalidInput, "label must be false_positive, false_negative or correct")
	}
	return nil
}

// HandleSubmit handles POST /api/events/{eventID}/feedback requests.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := requestcontext.TenantID(ctx)
	if tenantID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "tenant scope required"))
		return
	}
	eventID := chi.URLParam(r, "eventID")

	req, ok := httputil.Decode[SubmitRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if _, err := h.events.GetByID(ctx, tenantID, eventID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "event not found"))
			return
		}
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "fetching event"))
		return
	}

	f := feedback.Feedback{
		ID:        uuid.NewString(),
		EventID:   eventID,
		TenantID:  tenantID,
		UserID:    requestcontext.UserID(ctx),
		Label:     feedback.Label(req.Label),
		Notes:     req.Notes,
		CreatedAt: time.Now(),
	}
	if err := h.store.Create(ctx, f); err != nil {
		h.logger.ErrorContext(ctx, "feedback create failed",
			"tenant_id", tenantID,
			"event_id", eventID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "recording feedback"))
		return
	}

	if h.auditp != nil {
		h.auditp.Emit(ctx, audit.Entry{
			TenantID:  tenantID,
			EventID:   eventID,
			Action:    audit.ActionFeedbackSubmitted,
			Decision:  string(f.Label),
			RequestID: requestcontext.RequestID(ctx),
		})
	}

	httputil.WriteJSON(w, http.StatusCreated, FromFeedback(f))
}

// HandleList handles GET /api/feedback requests, newest first.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := requestcontext.TenantID(ctx)
	if tenantID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "tenant scope required"))
		return
	}

	entries, err := h.store.ListRecent(ctx, tenantID, listLimit)
	if err != nil {
		h.logger.ErrorContext(ctx, "feedback list failed",
			"tenant_id", tenantID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "listing feedback"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromFeedbackList(entries))
}
