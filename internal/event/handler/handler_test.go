package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"pageguard/internal/audit"
	"pageguard/internal/event"
	"pageguard/pkg/requestcontext"
)

type EventHandlerSuite struct {
	suite.Suite

	store     *event.InMemoryStore
	publisher *audit.Publisher
	router    chi.Router
}

func TestEventHandlerSuite(t *testing.T) {
	suite.Run(t, new(EventHandlerSuite))
}

func (s *EventHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = event.NewInMemoryStore()
	s.publisher = audit.NewPublisher(16, logger)
	h := New(s.store, s.publisher, logger)
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *EventHandlerSuite) do(method, path, tenantID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if tenantID != "" {
		req = req.WithContext(requestcontext.WithTenantID(req.Context(), tenantID))
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *EventHandlerSuite) createCompleted(tenantID string) string {
	id, err := s.store.Create(context.Background(), tenantID, event.KindPopup, "https://example.com", []byte(`{"raw_text":"verify your otp"}`))
	s.Require().NoError(err)
	s.Require().NoError(s.store.AttachVerdict(context.Background(), id, event.Verdict{
		Label:      event.LabelSuspicious,
		Severity:   3,
		Confidence: 0.8,
		Action:     event.ActionAlert,
	}))
	return id
}

func (s *EventHandlerSuite) TestListScopedToTenant() {
	s.createCompleted("tenant-a")
	s.createCompleted("tenant-a")
	s.createCompleted("tenant-b")

	rec := s.do(http.MethodGet, "/events", "tenant-a")
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp ListResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Len(resp.Events, 2)
	for _, e := range resp.Events {
		s.Nil(e.Payload)
	}
}

func (s *EventHandlerSuite) TestGetReturnsVerdictAndPayload() {
	id := s.createCompleted("tenant-a")

	rec := s.do(http.MethodGet, "/events/"+id, "tenant-a")
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp EventResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(id, resp.ID)
	s.Equal("completed", resp.Status)
	s.Require().NotNil(resp.Verdict)
	s.Equal(event.LabelSuspicious, resp.Verdict.Label)
	s.NotNil(resp.Payload)
}

func (s *EventHandlerSuite) TestGetCrossTenantIsNotFound() {
	id := s.createCompleted("tenant-a")

	rec := s.do(http.MethodGet, "/events/"+id, "tenant-b")
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *EventHandlerSuite) TestAcknowledgeCompletedEvent() {
	id := s.createCompleted("tenant-a")

	rec := s.do(http.MethodPatch, "/events/"+id+"/acknowledge", "tenant-a")
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp EventResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("acknowledged", resp.Status)

	select {
	case entry := <-s.publisher.Inbox():
		s.Equal(audit.ActionEventAcknowledged, entry.Action)
		s.Equal(id, entry.EventID)
	default:
		s.Fail("expected audit entry")
	}
}

func (s *EventHandlerSuite) TestAcknowledgePendingIsConflict() {
	id, err := s.store.Create(context.Background(), "tenant-a", event.KindImage, "https://example.com", []byte(`{}`))
	s.Require().NoError(err)

	rec := s.do(http.MethodPatch, "/events/"+id+"/acknowledge", "tenant-a")
	s.Equal(http.StatusConflict, rec.Code)
}

func (s *EventHandlerSuite) TestAcknowledgeIdempotent() {
	id := s.createCompleted("tenant-a")
	s.Require().Equal(http.StatusOK, s.do(http.MethodPatch, "/events/"+id+"/acknowledge", "tenant-a").Code)
	s.Equal(http.StatusOK, s.do(http.MethodPatch, "/events/"+id+"/acknowledge", "tenant-a").Code)
}

func (s *EventHandlerSuite) TestMissingTenantScope() {
	s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/events", "").Code)
}
