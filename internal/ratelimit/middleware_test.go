package ratelimit

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"pageguard/internal/audit"
	"pageguard/pkg/requestcontext"
)

type MiddlewareSuite struct {
	suite.Suite

	publisher *audit.Publisher
	handler   http.Handler
	served    int
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.publisher = audit.NewPublisher(16, logger)
	s.served = 0

	mw := NewMiddleware(NewInMemoryBucketStore(), 3, time.Minute, s.publisher, nil, logger)
	s.handler = mw.Limit(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.served++
		w.WriteHeader(http.StatusOK)
	}))
}

func (s *MiddlewareSuite) do(tenantID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/scan/image", nil)
	if tenantID != "" {
		req = req.WithContext(requestcontext.WithTenantID(req.Context(), tenantID))
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *MiddlewareSuite) TestOverCeilingIs429WithRetryAfter() {
	for i := 0; i < 3; i++ {
		s.Require().Equal(http.StatusOK, s.do("tenant-a").Code)
	}

	rec := s.do("tenant-a")
	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.NotEmpty(rec.Header().Get("Retry-After"))
	s.Equal("0", rec.Header().Get("X-RateLimit-Remaining"))
	s.Equal(3, s.served)

	select {
	case entry := <-s.publisher.Inbox():
		s.Equal(audit.ActionRateLimitExceeded, entry.Action)
		s.Equal("tenant-a", entry.TenantID)
	default:
		s.Fail("expected audit entry")
	}
}

func (s *MiddlewareSuite) TestTenantsLimitedSeparately() {
	for i := 0; i < 3; i++ {
		s.Require().Equal(http.StatusOK, s.do("tenant-a").Code)
	}
	s.Equal(http.StatusTooManyRequests, s.do("tenant-a").Code)
	s.Equal(http.StatusOK, s.do("tenant-b").Code)
}

func (s *MiddlewareSuite) TestMissingTenantRejected() {
	s.Equal(http.StatusUnauthorized, s.do("").Code)
	s.Equal(0, s.served)
}
