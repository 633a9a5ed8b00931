package audit

import (
	"context"
	"log/slog"
)

// Sink persists or forwards audit entries.
type Sink interface {
	Write(ctx context.Context, e Entry) error
}

// LogSink writes entries to the structured log. Always present, so the trail
// survives even when no broker is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Write(ctx context.Context, e Entry) error {
	s.logger.InfoContext(ctx, "audit",
		"action", e.Action,
		"tenant_id", e.TenantID,
		"event_id", e.EventID,
		"decision", e.Decision,
		"reason", e.Reason,
		"request_id", e.RequestID,
	)
	return nil
}
