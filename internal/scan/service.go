package scan

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pageguard/internal/anchor"
	"pageguard/internal/audit"
	"pageguard/internal/classifier"
	"pageguard/internal/event"
	"pageguard/internal/policy"
	"pageguard/internal/scan/metrics"
	dErrors "pageguard/pkg/domain-errors"
	"pageguard/pkg/requestcontext"
)

const (
	defaultClassifyTimeout = 30 * time.Second

	anchorConfidenceFloor = 0.8

	reasonClassifierUnavailable = "classifier_unavailable"
)

// Anchorer receives fire-and-forget anchor jobs. Enqueue must never block.
type Anchorer interface {
	Enqueue(job anchor.Job)
}

// Service runs the evaluation pipeline for admitted artifacts.
type Service struct {
	events     event.Store
	policies   policy.Store
	classifier classifier.Classifier
	anchorer   Anchorer
	auditp     *audit.Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
	timeout    time.Duration
}

type Option func(*Service)

func WithAnchorer(a Anchorer) Option {
	return func(s *Service) { s.anchorer = a }
}

func WithAuditPublisher(p *audit.Publisher) Option {
	return func(s *Service) { s.auditp = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithClassifyTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

func NewService(events event.Store, policies policy.Store, cls classifier.Classifier, opts ...Option) *Service {
	s := &Service{
		events:     events,
		policies:   policies,
		classifier: cls,
		logger:     slog.Default(),
		tracer:     otel.Tracer("pageguard/scan"),
		timeout:    defaultClassifyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// fallbackVerdict is substituted whenever the classifier cannot answer. It
// fails open: unscanned content is allowed, never blocked.
func fallbackVerdict() event.Verdict {
	return event.Verdict{
		Label:       event.LabelSafe,
		Severity:    1,
		Confidence:  0.5,
		ReasonCodes: []string{reasonClassifierUnavailable},
		Action:      event.ActionAllow,
	}
}

// Evaluate runs one artifact through the pipeline. Classifier failure is
// absorbed by the fallback verdict; store failures are returned to the
// caller because an unrecorded scan must not look successful.
func (s *Service) Evaluate(ctx context.Context, artifact Artifact) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "scan.Evaluate", trace.WithAttributes(
		attribute.String("scan.kind", string(artifact.Kind)),
		attribute.String("scan.tenant_id", artifact.TenantID),
	))
	defer span.End()

	eventID, err := s.events.Create(ctx, artifact.TenantID, artifact.Kind, artifact.PageURL, artifact.Payload)
	if err != nil {
		span.SetStatus(codes.Error, "event create failed")
		s.logger.ErrorContext(ctx, "event create failed",
			"tenant_id", artifact.TenantID,
			"kind", artifact.Kind,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "recording scan event")
	}
	span.SetAttributes(attribute.String("scan.event_id", eventID))

	tenantPolicy, err := s.policies.GetByTenant(ctx, artifact.TenantID)
	if err != nil {
		// Policy lookup failure degrades to the default, same as absence.
		s.logger.WarnContext(ctx, "policy lookup failed, using default",
			"tenant_id", artifact.TenantID,
			"error", err,
		)
		tenantPolicy = policy.Default(artifact.TenantID)
	}

	verdict, fellBack := s.classify(ctx, artifact, tenantPolicy)

	if err := s.events.AttachVerdict(ctx, eventID, verdict); err != nil {
		span.SetStatus(codes.Error, "verdict attach failed")
		s.logger.ErrorContext(ctx, "verdict attach failed",
			"event_id", eventID,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "recording verdict")
	}

	if s.metrics != nil {
		s.metrics.ObserveScan(string(artifact.Kind), string(verdict.Label), string(verdict.Action))
	}
	s.audit(ctx, artifact.TenantID, eventID, verdict, fellBack)

	if s.shouldAnchor(verdict) {
		s.anchorer.Enqueue(anchor.Job{
			EventID:    eventID,
			TenantID:   artifact.TenantID,
			Severity:   verdict.Severity,
			CapturedAt: artifact.CapturedAt,
		})
		if s.metrics != nil {
			s.metrics.IncrementAnchorJobs()
		}
	}

	return &Result{EventID: eventID, Verdict: verdict, Fallback: fellBack}, nil
}

// classify calls the external classifier under a bounded timeout. Any
// failure yields the fallback verdict; it never returns an error.
func (s *Service) classify(ctx context.Context, artifact Artifact, tenantPolicy policy.Policy) (event.Verdict, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	result, err := s.classifier.Classify(ctx, classifier.Request{
		Kind: artifact.Kind,
		Data: artifact.Payload,
		Context: classifier.RequestContext{
			TenantID: artifact.TenantID,
			Policy:   classifier.NewPolicyContext(tenantPolicy),
		},
	})
	if s.metrics != nil {
		s.metrics.ObserveClassifierLatency(time.Since(started))
	}
	if err != nil {
		s.logger.WarnContext(ctx, "classifier unavailable, substituting fallback verdict",
			"tenant_id", artifact.TenantID,
			"kind", artifact.Kind,
			"error", err,
		)
		if s.metrics != nil {
			s.metrics.IncrementFallbacks()
		}
		return fallbackVerdict(), true
	}

	return event.Verdict{
		Label:       result.Label,
		Severity:    result.Severity,
		Confidence:  result.Confidence,
		ReasonCodes: result.ReasonCodes,
		Action:      result.Action,
	}, false
}

func (s *Service) shouldAnchor(v event.Verdict) bool {
	return s.anchorer != nil && v.Label == event.LabelMalicious && v.Confidence > anchorConfidenceFloor
}

func (s *Service) audit(ctx context.Context, tenantID, eventID string, v event.Verdict, fellBack bool) {
	if s.auditp == nil {
		return
	}
	s.auditp.Emit(ctx, audit.Entry{
		TenantID:  tenantID,
		EventID:   eventID,
		Action:    audit.ActionScanCompleted,
		Decision:  string(v.Action),
		Reason:    strings.Join(v.ReasonCodes, ","),
		RequestID: requestcontext.RequestID(ctx),
	})
	if fellBack {
		s.auditp.Emit(ctx, audit.Entry{
			TenantID:  tenantID,
			EventID:   eventID,
			Action:    audit.ActionClassifierFallback,
			Decision:  string(v.Action),
			RequestID: requestcontext.RequestID(ctx),
		})
	}
}
