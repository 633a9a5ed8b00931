package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"pageguard/internal/audit"
	"pageguard/internal/policy"
	"pageguard/pkg/requestcontext"
)

type PolicyHandlerSuite struct {
	suite.Suite

	store     *policy.InMemoryStore
	publisher *audit.Publisher
	router    chi.Router
}

func TestPolicyHandlerSuite(t *testing.T) {
	suite.Run(t, new(PolicyHandlerSuite))
}

func (s *PolicyHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = policy.NewInMemoryStore()
	s.publisher = audit.NewPublisher(16, logger)
	h := New(s.store, s.publisher, logger)
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *PolicyHandlerSuite) do(method, path, tenantID string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if tenantID != "" {
		req = req.WithContext(requestcontext.WithTenantID(req.Context(), tenantID))
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *PolicyHandlerSuite) TestGetReturnsDefaultWhenAbsent() {
	rec := s.do(http.MethodGet, "/policies/tenant-a", "tenant-a", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var p policy.Policy
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &p))
	s.Equal(0.7, p.Threshold)
	s.False(p.AutoQuarantine)
}

func (s *PolicyHandlerSuite) TestPutUpsertsAndGetReturnsStored() {
	rec := s.do(http.MethodPut, "/policies/tenant-a", "tenant-a", UpdateRequest{
		Threshold:      0.85,
		AutoQuarantine: true,
	})
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/policies/tenant-a", "tenant-a", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var p policy.Policy
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &p))
	s.Equal(0.85, p.Threshold)
	s.True(p.AutoQuarantine)

	select {
	case entry := <-s.publisher.Inbox():
		s.Equal(audit.ActionPolicyUpdated, entry.Action)
	default:
		s.Fail("expected audit entry")
	}
}

func (s *PolicyHandlerSuite) TestThresholdValidation() {
	for _, threshold := range []float64{-0.1, 1.1, 2} {
		rec := s.do(http.MethodPut, "/policies/tenant-a", "tenant-a", UpdateRequest{Threshold: threshold})
		s.Equal(http.StatusBadRequest, rec.Code)
	}
	for _, threshold := range []float64{0, 0.5, 1} {
		rec := s.do(http.MethodPut, "/policies/tenant-a", "tenant-a", UpdateRequest{Threshold: threshold})
		s.Equal(http.StatusOK, rec.Code)
	}
}

func (s *PolicyHandlerSuite) TestCrossTenantForbidden() {
	rec := s.do(http.MethodPut, "/policies/tenant-b", "tenant-a", UpdateRequest{Threshold: 0.5})
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/policies/tenant-b", "tenant-a", nil)
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *PolicyHandlerSuite) TestMissingTenantScope() {
	s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/policies/tenant-a", "", nil).Code)
}
