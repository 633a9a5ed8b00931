package event

import "context"

// Store is the narrow contract the pipeline holds over event persistence.
// AttachVerdict is last-write-wins: exactly one verdict is ever computed per
// event in the intended flow, so concurrent writers need no ordering.
type Store interface {
	// Create persists a new pending event and returns its ID.
	Create(ctx context.Context, tenantID string, kind Kind, pageURL string, payload []byte) (string, error)

	// AttachVerdict writes the verdict and moves a pending event to
	// completed. Idempotent: repeated calls overwrite the verdict fields
	// without diverging. An acknowledged event keeps its status.
	AttachVerdict(ctx context.Context, eventID string, v Verdict) error

	// Acknowledge moves a completed event to acknowledged. No-op when
	// already acknowledged; rejected with sentinel.ErrInvalidState from
	// pending.
	Acknowledge(ctx context.Context, tenantID, eventID string) error

	// LinkReceipt attaches a ledger receipt to a completed event. Status is
	// unchanged. Rejected with sentinel.ErrInvalidState while pending.
	LinkReceipt(ctx context.Context, eventID string, r Receipt) error

	// GetByID returns an event within the caller's tenant scope.
	GetByID(ctx context.Context, tenantID, eventID string) (*Event, error)

	// ListRecent returns the tenant's most recent events, newest first.
	ListRecent(ctx context.Context, tenantID string, limit, offset int) ([]*Event, error)
}
