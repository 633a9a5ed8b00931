// Package audit captures structured operational events from the pipeline.
// Entries flow through a channel publisher to a background worker that fans
// them out to sinks, so domain code never blocks on the trail.
package audit

import "time"

// Action names the audited occurrence.
type Action string

const (
	ActionScanCompleted      Action = "scan_completed"
	ActionClassifierFallback Action = "classifier_fallback"
	ActionAnchorSubmitted    Action = "anchor_submitted"
	ActionAnchorFailed       Action = "anchor_failed"
	ActionRateLimitExceeded  Action = "rate_limit_exceeded"
	ActionEventAcknowledged  Action = "event_acknowledged"
	ActionPolicyUpdated      Action = "policy_updated"
	ActionFeedbackSubmitted  Action = "feedback_submitted"
)

// Entry is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	TenantID  string    `json:"tenant_id,omitempty"`
	EventID   string    `json:"event_id,omitempty"`
	Action    Action    `json:"action"`
	Decision  string    `json:"decision,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}
