package audit

import (
	"context"
	"log/slog"
	"time"
)

// Publisher accepts entries from domain code without blocking it. Entries go
// onto a bounded inbox consumed by the Worker; when the inbox is full the
// entry is dropped. The trail is best-effort and must never slow the scan
// path.
type Publisher struct {
	inbox  chan Entry
	logger *slog.Logger
}

func NewPublisher(capacity int, logger *slog.Logger) *Publisher {
	if capacity <= 0 {
		capacity = 256
	}
	return &Publisher{
		inbox:  make(chan Entry, capacity),
		logger: logger,
	}
}

// Emit records an entry, stamping the time if unset. Non-blocking.
func (p *Publisher) Emit(ctx context.Context, e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	select {
	case p.inbox <- e:
	default:
		p.logger.WarnContext(ctx, "audit inbox full, entry dropped",
			"action", e.Action,
			"event_id", e.EventID,
		)
	}
}

// Inbox exposes the consuming side for the Worker.
func (p *Publisher) Inbox() <-chan Entry { return p.inbox }
