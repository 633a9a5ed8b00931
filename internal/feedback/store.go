package feedback

import "context"

// Store persists operator feedback. Multiple entries per event are allowed;
// each operator judgement is kept.
type Store interface {
	Create(ctx context.Context, f Feedback) error
	ListRecent(ctx context.Context, tenantID string, limit int) ([]Feedback, error)
}
