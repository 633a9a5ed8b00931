package anchor

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"pageguard/internal/audit"
	"pageguard/internal/event"
)

// Job identifies one completed event to anchor.
type Job struct {
	EventID    string
	TenantID   string
	Severity   int
	CapturedAt time.Time
}

// Worker anchors jobs detached from the scan path. The queue is bounded and
// drops the oldest job on overflow; failed anchors are not retried.
type Worker struct {
	jobs   chan Job
	ledger Ledger
	events event.Store
	auditp *audit.Publisher
	logger *slog.Logger
}

func NewWorker(queueCap int, ledger Ledger, events event.Store, auditp *audit.Publisher, logger *slog.Logger) *Worker {
	if queueCap <= 0 {
		queueCap = 64
	}
	return &Worker{
		jobs:   make(chan Job, queueCap),
		ledger: ledger,
		events: events,
		auditp: auditp,
		logger: logger,
	}
}

// Enqueue hands a job to the worker without ever blocking the caller. When
// the queue is full the oldest pending job is dropped to make room.
func (w *Worker) Enqueue(job Job) {
	for {
		select {
		case w.jobs <- job:
			return
		default:
			select {
			case dropped := <-w.jobs:
				w.logger.Warn("anchor queue full, dropping oldest job",
					"dropped_event_id", dropped.EventID,
				)
			default:
			}
		}
	}
}

// Run consumes jobs until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-w.jobs:
			w.process(ctx, job)
		}
	}
}

func (w *Worker) process(ctx context.Context, job Job) {
	fingerprint := Fingerprint(job.EventID, job.TenantID, job.Severity, job.CapturedAt)

	receipt, err := w.ledger.Anchor(ctx, fingerprint, job.TenantID, job.Severity)
	if err != nil {
		w.logger.ErrorContext(ctx, "anchoring failed",
			"event_id", job.EventID,
			"tenant_id", job.TenantID,
			"error", err,
		)
		w.auditp.Emit(ctx, audit.Entry{
			TenantID: job.TenantID,
			EventID:  job.EventID,
			Action:   audit.ActionAnchorFailed,
			Reason:   err.Error(),
		})
		return
	}
	if receipt == nil {
		// Ledger unconfigured; absence of a receipt is not an error state.
		return
	}

	linked := event.Receipt{
		Fingerprint: fingerprint,
		TxID:        receipt.TxID,
		Chain:       receipt.Chain,
		AnchoredAt:  time.Now(),
	}
	if err := w.events.LinkReceipt(ctx, job.EventID, linked); err != nil {
		w.logger.ErrorContext(ctx, "receipt linking failed",
			"event_id", job.EventID,
			"tx_id", receipt.TxID,
			"error", err,
		)
		w.auditp.Emit(ctx, audit.Entry{
			TenantID: job.TenantID,
			EventID:  job.EventID,
			Action:   audit.ActionAnchorFailed,
			Reason:   "receipt linking: " + err.Error(),
		})
		return
	}

	w.logger.InfoContext(ctx, "event anchored",
		"event_id", job.EventID,
		"tx_id", receipt.TxID,
		"chain", receipt.Chain,
	)
	w.auditp.Emit(ctx, audit.Entry{
		TenantID: job.TenantID,
		EventID:  job.EventID,
		Action:   audit.ActionAnchorSubmitted,
		Decision: "anchored",
		Reason:   "severity " + strconv.Itoa(job.Severity),
	})
}
