// Package policy holds the per-tenant scan policy: the confidence threshold
// separating suspicious from block-worthy content, and the auto-quarantine
// switch. Exactly one policy exists per tenant; absence means the default.
package policy

import "time"

// Policy is the per-tenant configuration consulted on every submission.
type Policy struct {
	TenantID       string    `json:"tenant_id"`
	Threshold      float64   `json:"threshold"`
	AutoQuarantine bool      `json:"auto_quarantine"`
	UpdatedAt      time.Time `json:"updated_at,omitzero"`
}

// Default is the documented policy applied when a tenant has none stored.
func Default(tenantID string) Policy {
	return Policy{
		TenantID:       tenantID,
		Threshold:      0.7,
		AutoQuarantine: false,
	}
}
