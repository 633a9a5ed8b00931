// Package classifier is the boundary to the external classification
// authority. Every failure here (timeout, transport error, non-2xx, open
// breaker) reads as "classifier unavailable" to callers, which substitute
// their fallback verdict.
package classifier

import (
	"context"
	"encoding/json"

	"pageguard/internal/event"
	"pageguard/internal/policy"
)

//go:generate mockgen -source=classifier.go -destination=mocks/classifier_mock.go -package=mocks

// Request carries one artifact plus its tenant policy context to the
// classifier. The policy is context for the authority's action resolution;
// the engine never re-derives the action from the threshold itself.
type Request struct {
	Kind    event.Kind      `json:"type"`
	Data    json.RawMessage `json:"data"`
	Context RequestContext  `json:"context"`
}

// RequestContext scopes a classification to a tenant and its policy.
type RequestContext struct {
	TenantID string        `json:"tenant_id"`
	Policy   PolicyContext `json:"policy"`
}

// PolicyContext is the policy subset the classifier honors upstream.
type PolicyContext struct {
	Threshold      float64 `json:"threshold"`
	AutoQuarantine bool    `json:"auto_quarantine"`
}

// Result is the classifier's probabilistic verdict for one artifact.
type Result struct {
	Label       event.Label  `json:"verdict"`
	Severity    int          `json:"severity"`
	Confidence  float64      `json:"confidence"`
	ReasonCodes []string     `json:"reason_codes"`
	Action      event.Action `json:"action"`
}

// Classifier obtains a verdict for an artifact.
type Classifier interface {
	Classify(ctx context.Context, req Request) (*Result, error)
}

// NewPolicyContext converts a tenant policy into classification context.
func NewPolicyContext(p policy.Policy) PolicyContext {
	return PolicyContext{Threshold: p.Threshold, AutoQuarantine: p.AutoQuarantine}
}
