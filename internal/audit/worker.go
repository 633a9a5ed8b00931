package audit

import (
	"context"
	"log/slog"
)

// Worker consumes entries from the publisher inbox and fans them out to the
// configured sinks. Sink failures are logged and skipped; one bad sink must
// not starve the others.
type Worker struct {
	inbox  <-chan Entry
	sinks  []Sink
	logger *slog.Logger
}

func NewWorker(inbox <-chan Entry, logger *slog.Logger, sinks ...Sink) *Worker {
	return &Worker{inbox: inbox, sinks: sinks, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry := <-w.inbox:
			for _, sink := range w.sinks {
				if err := sink.Write(ctx, entry); err != nil {
					w.logger.ErrorContext(ctx, "audit sink write failed",
						"action", entry.Action,
						"error", err,
					)
				}
			}
		}
	}
}
