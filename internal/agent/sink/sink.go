// Package sink renders verdicts on the watched page. It consumes decisions
// made elsewhere; nothing here alters them.
package sink

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chromedp/chromedp"

	"pageguard/internal/agent/client"
	"pageguard/internal/event"
)

// Notice is one resolved candidate handed to the sink.
type Notice struct {
	Kind    event.Kind
	NodeID  int
	PageURL string
	Verdict client.Verdict
}

// Sink renders one notice.
type Sink interface {
	Render(ctx context.Context, n Notice) error
}

// BadgeLogger logs one badge line per verdict.
type BadgeLogger struct {
	logger *slog.Logger
}

func NewBadgeLogger(logger *slog.Logger) *BadgeLogger {
	return &BadgeLogger{logger: logger}
}

func (b *BadgeLogger) Render(ctx context.Context, n Notice) error {
	b.logger.InfoContext(ctx, "verdict badge",
		"kind", n.Kind,
		"node_id", n.NodeID,
		"page_url", n.PageURL,
		"event_id", n.Verdict.EventID,
		"verdict", n.Verdict.Verdict,
		"severity", n.Verdict.Severity,
		"action", n.Verdict.Action,
	)
	return nil
}

// Overlay blocks quarantined content in-page: images are replaced with a
// warning tile, popups are covered by a full-page warning. Non-quarantine
// verdicts pass through untouched.
type Overlay struct {
	browserCtx context.Context
	logger     *slog.Logger
}

func NewOverlay(browserCtx context.Context, logger *slog.Logger) *Overlay {
	return &Overlay{browserCtx: browserCtx, logger: logger}
}

func (o *Overlay) Render(ctx context.Context, n Notice) error {
	if n.Verdict.Action != "quarantine" {
		return nil
	}

	var script string
	switch n.Kind {
	case event.KindImage:
		script = imageOverlayJS(n.NodeID)
	case event.KindPopup:
		script = popupOverlayJS()
	default:
		return nil
	}

	if err := o.run(ctx, chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("inject overlay: %w", err)
	}
	o.logger.WarnContext(ctx, "content quarantined",
		"kind", n.Kind,
		"node_id", n.NodeID,
		"event_id", n.Verdict.EventID,
	)
	return nil
}

func (o *Overlay) run(ctx context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(o.browserCtx, actions...) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// imageOverlayJS greys out the flagged image in place, keeping layout intact.
func imageOverlayJS(nodeID int) string {
	return fmt.Sprintf(`(() => {
	const collector = window.__pgCollector;
	if (!collector) return;
	const el = collector.elementFor(%d);
	if (!el) return;
	el.style.filter = 'blur(16px) grayscale(1)';
	el.style.outline = '3px solid #c0392b';
	el.title = 'Blocked: flagged as malicious';
})(); true;`, nodeID)
}

// popupOverlayJS covers the viewport with a warning banner.
func popupOverlayJS() string {
	return `(() => {
	if (document.getElementById('__pg_warning')) return;
	const cover = document.createElement('div');
	cover.id = '__pg_warning';
	cover.style.cssText = 'position:fixed;inset:0;z-index:2147483647;background:rgba(20,20,20,0.96);color:#fff;display:flex;align-items:center;justify-content:center;font:16px sans-serif;text-align:center;padding:2em;';
	cover.textContent = 'Warning: this page displayed content flagged as malicious. Do not enter personal or payment details.';
	document.documentElement.appendChild(cover);
})(); true;`
}
