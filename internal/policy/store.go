package policy

import "context"

// Store reads and upserts tenant policies. GetByTenant returns the documented
// default (not an error) when no policy is stored, so the Verdict Engine can
// always classify with policy context present.
type Store interface {
	GetByTenant(ctx context.Context, tenantID string) (Policy, error)
	Upsert(ctx context.Context, p Policy) (Policy, error)
}
