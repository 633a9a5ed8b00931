package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"pageguard/internal/audit"
	"pageguard/internal/ratelimit/metrics"
	dErrors "pageguard/pkg/domain-errors"
	"pageguard/pkg/platform/httputil"
	"pageguard/pkg/requestcontext"
)

// Middleware rejects scan submissions over the per-tenant ceiling with 429
// and a Retry-After hint. The store failing open would silently disable the
// limit, so store errors reject the request instead.
type Middleware struct {
	store   BucketStore
	limit   int
	window  time.Duration
	auditp  *audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewMiddleware(store BucketStore, limit int, window time.Duration, auditp *audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Middleware {
	return &Middleware{
		store:   store,
		limit:   limit,
		window:  window,
		auditp:  auditp,
		metrics: m,
		logger:  logger,
	}
}

// Limit is the chi middleware enforcing the ceiling per tenant.
func (m *Middleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tenantID := requestcontext.TenantID(ctx)
		if tenantID == "" {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "tenant scope required"))
			return
		}

		result, err := m.store.Allow(ctx, tenantID, m.limit, m.window)
		if err != nil {
			m.logger.ErrorContext(ctx, "rate limit check failed",
				"tenant_id", tenantID,
				"error", err,
			)
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "rate limit check"))
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			retryAfter := int(time.Until(result.ResetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

			m.logger.WarnContext(ctx, "scan submission rate limited",
				"tenant_id", tenantID,
				"limit", result.Limit,
			)
			if m.metrics != nil {
				m.metrics.IncrementBlocked()
			}
			if m.auditp != nil {
				m.auditp.Emit(ctx, audit.Entry{
					TenantID:  tenantID,
					Action:    audit.ActionRateLimitExceeded,
					RequestID: requestcontext.RequestID(ctx),
				})
			}
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "scan submission limit exceeded"))
			return
		}

		if m.metrics != nil {
			m.metrics.IncrementAllowed()
		}
		next.ServeHTTP(w, r)
	})
}
