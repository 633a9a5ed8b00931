package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pageguard/internal/audit"
	"pageguard/internal/policy"
	dErrors "pageguard/pkg/domain-errors"
	"pageguard/pkg/platform/httputil"
	"pageguard/pkg/requestcontext"
)

// Handler exposes per-tenant scan policies over HTTP. A tenant can only read
// and write its own policy.
type Handler struct {
	store  policy.Store
	auditp *audit.Publisher
	logger *slog.Logger
}

// New constructs a policy handler with its dependencies.
func New(store policy.Store, auditp *audit.Publisher, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		auditp: auditp,
		logger: logger,
	}
}

// Register mounts policy endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/policies/{tenantID}", h.HandleGet)
	r.Put("/policies/{tenantID}", h.HandlePut)
}

// UpdateRequest is the HTTP request body for PUT /api/policies/{tenantID}.
type UpdateRequest struct {
	Threshold      float64 `json:"threshold"`
	AutoQuarantine bool    `json:"auto_quarantine"`
}

func (r *UpdateRequest) Validate() error {
	if r.Threshold < 0 || r.Threshold > 1 {
		return dErrors.New(dErrors.CodeInvalidInput, "threshold must be between 0 and 1")
	}
	return nil
}

// HandleGet handles GET /api/policies/{tenantID} requests. A tenant with no
// stored policy receives the default.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	p, err := h.store.GetByTenant(ctx, tenantID)
	if err != nil {
		h.logger.ErrorContext(ctx, "policy fetch failed",
			"tenant_id", tenantID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "fetching policy"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, p)
}

// HandlePut handles PUT /api/policies/{tenantID} requests with upsert
// semantics.
func (h *Handler) HandlePut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	req, ok := httputil.Decode[UpdateRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	updated, err := h.store.Upsert(ctx, policy.Policy{
		TenantID:       tenantID,
		Threshold:      req.Threshold,
		AutoQuarantine: req.AutoQuarantine,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "policy upsert failed",
			"tenant_id", tenantID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "updating policy"))
		return
	}

	h.logger.InfoContext(ctx, "policy updated",
		"tenant_id", tenantID,
		"threshold", updated.Threshold,
		"auto_quarantine", updated.AutoQuarantine,
	)
	if h.auditp != nil {
		h.auditp.Emit(ctx, audit.Entry{
			TenantID:  tenantID,
			Action:    audit.ActionPolicyUpdated,
			RequestID: requestcontext.RequestID(ctx),
		})
	}

	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	callerTenant := requestcontext.TenantID(r.Context())
	if callerTenant == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "tenant scope required"))
		return "", false
	}
	tenantID := chi.URLParam(r, "tenantID")
	if tenantID != callerTenant {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "policy belongs to another tenant"))
		return "", false
	}
	return tenantID, true
}
