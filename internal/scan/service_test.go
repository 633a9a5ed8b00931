package scan

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"pageguard/internal/anchor"
	"pageguard/internal/audit"
	"pageguard/internal/classifier"
	"pageguard/internal/classifier/mocks"
	"pageguard/internal/event"
	"pageguard/internal/policy"
	"pageguard/pkg/sentinel"
)

type recordingAnchorer struct {
	mu   sync.Mutex
	jobs []anchor.Job
}

func (r *recordingAnchorer) Enqueue(job anchor.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
}

func (r *recordingAnchorer) all() []anchor.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]anchor.Job(nil), r.jobs...)
}

// failingStore breaks selected operations while delegating the rest.
type failingStore struct {
	event.Store
	failCreate bool
	failAttach bool
}

func (f *failingStore) Create(ctx context.Context, tenantID string, kind event.Kind, pageURL string, payload []byte) (string, error) {
	if f.failCreate {
		return "", sentinel.ErrUnavailable
	}
	return f.Store.Create(ctx, tenantID, kind, pageURL, payload)
}

func (f *failingStore) AttachVerdict(ctx context.Context, eventID string, v event.Verdict) error {
	if f.failAttach {
		return sentinel.ErrUnavailable
	}
	return f.Store.AttachVerdict(ctx, eventID, v)
}

type ServiceSuite struct {
	suite.Suite

	ctrl       *gomock.Controller
	classifier *mocks.MockClassifier
	events     *event.InMemoryStore
	policies   *policy.InMemoryStore
	anchorer   *recordingAnchorer
	publisher  *audit.Publisher
	service    *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.classifier = mocks.NewMockClassifier(s.ctrl)
	s.events = event.NewInMemoryStore()
	s.policies = policy.NewInMemoryStore()
	s.anchorer = &recordingAnchorer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.publisher = audit.NewPublisher(16, logger)
	s.service = NewService(s.events, s.policies, s.classifier,
		WithAnchorer(s.anchorer),
		WithAuditPublisher(s.publisher),
		WithLogger(logger),
	)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) imageArtifact(tenantID string) Artifact {
	return Artifact{
		TenantID:   tenantID,
		Kind:       event.KindImage,
		PageURL:    "https://example.com/login",
		Payload:    []byte(`{"thumbnail_base64":"abc","src_url":"https://example.com/a.png","page_url":"https://example.com/login","mime":"image/png","metadata":{"width":120,"height":90,"timestamp":1700000000000}}`),
		CapturedAt: time.UnixMilli(1700000000000),
	}
}

func (s *ServiceSuite) TestVerdictTakenVerbatim() {
	s.classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(&classifier.Result{
		Label:       event.LabelSuspicious,
		Severity:    3,
		Confidence:  0.72,
		ReasonCodes: []string{"phishing_layout"},
		Action:      event.ActionAlert,
	}, nil)

	result, err := s.service.Evaluate(context.Background(), s.imageArtifact("tenant-a"))
	s.Require().NoError(err)
	s.False(result.Fallback)
	s.Equal(event.LabelSuspicious, result.Verdict.Label)
	s.Equal(3, result.Verdict.Severity)
	s.Equal(0.72, result.Verdict.Confidence)
	s.Equal([]string{"phishing_layout"}, result.Verdict.ReasonCodes)
	s.Equal(event.ActionAlert, result.Verdict.Action)

	stored, err := s.events.GetByID(context.Background(), "tenant-a", result.EventID)
	s.Require().NoError(err)
	s.Equal(event.StatusCompleted, stored.Status)
	s.Require().NotNil(stored.Verdict)
	s.Equal(result.Verdict, *stored.Verdict)
}

func (s *ServiceSuite) TestClassifierFailureSubstitutesFallback() {
	s.classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrUnavailable)

	result, err := s.service.Evaluate(context.Background(), s.imageArtifact("tenant-a"))
	s.Require().NoError(err)
	s.True(result.Fallback)
	s.Equal(event.LabelSafe, result.Verdict.Label)
	s.Equal(1, result.Verdict.Severity)
	s.Equal(0.5, result.Verdict.Confidence)
	s.Equal([]string{"classifier_unavailable"}, result.Verdict.ReasonCodes)
	s.Equal(event.ActionAllow, result.Verdict.Action)

	stored, err := s.events.GetByID(context.Background(), "tenant-a", result.EventID)
	s.Require().NoError(err)
	s.Equal(event.StatusCompleted, stored.Status)

	s.Empty(s.anchorer.all())
	s.assertAuditActions(audit.ActionScanCompleted, audit.ActionClassifierFallback)
}

func (s *ServiceSuite) TestPolicyContextSentToClassifier() {
	_, err := s.policies.Upsert(context.Background(), policy.Policy{
		TenantID:       "tenant-a",
		Threshold:      0.9,
		AutoQuarantine: true,
	})
	s.Require().NoError(err)

	s.classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req classifier.Request) (*classifier.Result, error) {
			s.Equal("tenant-a", req.Context.TenantID)
			s.Equal(0.9, req.Context.Policy.Threshold)
			s.True(req.Context.Policy.AutoQuarantine)
			s.Equal(event.KindImage, req.Kind)
			return &classifier.Result{Label: event.LabelSafe, Severity: 1, Confidence: 0.9, Action: event.ActionAllow}, nil
		})

	_, err = s.service.Evaluate(context.Background(), s.imageArtifact("tenant-a"))
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestDefaultPolicyWhenNoneStored() {
	s.classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req classifier.Request) (*classifier.Result, error) {
			s.Equal(0.7, req.Context.Policy.Threshold)
			s.False(req.Context.Policy.AutoQuarantine)
			return &classifier.Result{Label: event.LabelSafe, Severity: 1, Confidence: 0.9, Action: event.ActionAllow}, nil
		})

	_, err := s.service.Evaluate(context.Background(), s.imageArtifact("tenant-b"))
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestAnchorGating() {
	tests := []struct {
		name       string
		label      event.Label
		confidence float64
		anchored   bool
	}{
		{"malicious above floor", event.LabelMalicious, 0.95, true},
		{"malicious at floor", event.LabelMalicious, 0.8, false},
		{"malicious below floor", event.LabelMalicious, 0.6, false},
		{"safe above floor", event.LabelSafe, 0.95, false},
		{"suspicious above floor", event.LabelSuspicious, 0.95, false},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			anchorer := &recordingAnchorer{}
			service := NewService(s.events, s.policies, s.classifier,
				WithAnchorer(anchorer),
				WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
			)
			s.classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(&classifier.Result{
				Label:      tt.label,
				Severity:   5,
				Confidence: tt.confidence,
				Action:     event.ActionQuarantine,
			}, nil)

			artifact := s.imageArtifact("tenant-a")
			result, err := service.Evaluate(context.Background(), artifact)
			s.Require().NoError(err)

			jobs := anchorer.all()
			if !tt.anchored {
				s.Empty(jobs)
				return
			}
			s.Require().Len(jobs, 1)
			s.Equal(result.EventID, jobs[0].EventID)
			s.Equal("tenant-a", jobs[0].TenantID)
			s.Equal(5, jobs[0].Severity)
			s.Equal(artifact.CapturedAt, jobs[0].CapturedAt)
		})
	}
}

func (s *ServiceSuite) TestCreateFailureIsFatal() {
	service := NewService(&failingStore{Store: s.events, failCreate: true}, s.policies, s.classifier,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	_, err := service.Evaluate(context.Background(), s.imageArtifact("tenant-a"))
	s.Require().Error(err)
	s.Equal(0, s.events.Count())
}

func (s *ServiceSuite) TestAttachFailureIsFatal() {
	s.classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(&classifier.Result{
		Label: event.LabelSafe, Severity: 1, Confidence: 0.9, Action: event.ActionAllow,
	}, nil)
	service := NewService(&failingStore{Store: s.events, failAttach: true}, s.policies, s.classifier,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	_, err := service.Evaluate(context.Background(), s.imageArtifact("tenant-a"))
	s.Require().Error(err)
}

// Malicious artifact end to end against in-process fakes: verdict stored
// verbatim, event completed, anchor job carries the event identity.
func (s *ServiceSuite) TestMaliciousImageFlow() {
	s.classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(&classifier.Result{
		Label:       event.LabelMalicious,
		Severity:    5,
		Confidence:  0.95,
		ReasonCodes: []string{"credential_harvesting"},
		Action:      event.ActionQuarantine,
	}, nil)

	artifact := s.imageArtifact("tenant-a")
	result, err := s.service.Evaluate(context.Background(), artifact)
	s.Require().NoError(err)
	s.Equal(event.ActionQuarantine, result.Verdict.Action)

	stored, err := s.events.GetByID(context.Background(), "tenant-a", result.EventID)
	s.Require().NoError(err)
	s.Equal(event.StatusCompleted, stored.Status)
	s.Equal(event.LabelMalicious, stored.Verdict.Label)

	jobs := s.anchorer.all()
	s.Require().Len(jobs, 1)
	s.Equal(result.EventID, jobs[0].EventID)
	s.assertAuditActions(audit.ActionScanCompleted)
}

func (s *ServiceSuite) assertAuditActions(want ...audit.Action) {
	var got []audit.Action
	for range want {
		select {
		case entry := <-s.publisher.Inbox():
			got = append(got, entry.Action)
		case <-time.After(time.Second):
			s.Require().FailNow("missing audit entries", "want %v got %v", want, got)
		}
	}
	s.Equal(want, got)
}

func TestFallbackVerdictShape(t *testing.T) {
	v := fallbackVerdict()
	if v.Label != event.LabelSafe || v.Action != event.ActionAllow {
		t.Fatalf("fallback must fail open, got %+v", v)
	}
}
