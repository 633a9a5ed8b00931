// Package agent watches one page and drives the pipeline's client side:
// collect candidates, gate dispatch, submit scans, render verdicts.
package agent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"pageguard/internal/agent/client"
	"pageguard/internal/agent/extract"
	"pageguard/internal/agent/gate"
	"pageguard/internal/agent/sink"
	"pageguard/internal/event"
)

const (
	defaultDebounce    = 2 * time.Second
	defaultPollEvery   = 250 * time.Millisecond
	defaultConcurrency = 4

	reasonRateLimitedLocal = "rate_limited_local"
)

// Collector walks the page for candidates.
type Collector interface {
	Install(ctx context.Context) error
	ConsumeDirty(ctx context.Context) (bool, error)
	Collect(ctx context.Context) (*extract.Snapshot, error)
}

// Scanner submits artifacts for classification.
type Scanner interface {
	ScanImage(ctx context.Context, scan client.ImageScan) (*client.Verdict, error)
	ScanPopup(ctx context.Context, scan client.PopupScan) (*client.Verdict, error)
}

// Agent ties collector, gate, scanner and sinks together for one page.
type Agent struct {
	collector Collector
	scanner   Scanner
	gate      *gate.Gate
	arena     *extract.Arena
	sinks     []sink.Sink
	debounce  time.Duration
	pollEvery time.Duration
	logger    *slog.Logger
}

type Option func(*Agent)

func WithDebounce(d time.Duration) Option {
	return func(a *Agent) { a.debounce = d }
}

func WithPollInterval(d time.Duration) Option {
	return func(a *Agent) { a.pollEvery = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

func New(collector Collector, scanner Scanner, g *gate.Gate, sinks []sink.Sink, opts ...Option) *Agent {
	a := &Agent{
		collector: collector,
		scanner:   scanner,
		gate:      g,
		arena:     extract.NewArena(),
		sinks:     sinks,
		debounce:  defaultDebounce,
		pollEvery: defaultPollEvery,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run installs the collector and processes the page until the context ends.
// Rescans are debounced: a burst of mutations produces one collection pass a
// fixed delay after the burst settles.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.collector.Install(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(a.pollEvery)
	defer ticker.Stop()

	// The initial page load counts as a mutation burst.
	pending := true
	scanAt := time.Now().Add(a.debounce)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			dirty, err := a.collector.ConsumeDirty(ctx)
			if err != nil {
				a.logger.ErrorContext(ctx, "mutation poll failed", "error", err)
				continue
			}
			if dirty {
				pending = true
				scanAt = time.Now().Add(a.debounce)
			}
			if pending && !time.Now().Before(scanAt) {
				pending = false
				if err := a.ScanOnce(ctx); err != nil {
					a.logger.ErrorContext(ctx, "collection pass failed", "error", err)
				}
			}
		}
	}
}

// ScanOnce runs a single collection pass: every new eligible candidate is
// either dispatched or, over the gate's ceiling, resolved locally as
// safe/allow without touching the network.
func (a *Agent) ScanOnce(ctx context.Context) error {
	snapshot, err := a.collector.Collect(ctx)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultConcurrency)

	for _, img := range snapshot.Images {
		if !a.arena.Mark(img.NodeID) {
			continue
		}
		img := img
		if !a.gate.Admit() {
			a.render(ctx, sink.Notice{
				Kind:    event.KindImage,
				NodeID:  img.NodeID,
				PageURL: snapshot.PageURL,
				Verdict: localResolution(),
			})
			continue
		}
		g.Go(func() error {
			a.dispatchImage(ctx, snapshot.PageURL, img)
			return nil
		})
	}

	for _, popup := range snapshot.Popups {
		if !extract.EligiblePopup(popup) {
			continue
		}
		if !a.arena.Mark(popup.NodeID) {
			continue
		}
		popup := popup
		if !a.gate.Admit() {
			a.render(ctx, sink.Notice{
				Kind:    event.KindPopup,
				NodeID:  popup.NodeID,
				PageURL: snapshot.PageURL,
				Verdict: localResolution(),
			})
			continue
		}
		g.Go(func() error {
			a.dispatchPopup(ctx, snapshot.PageURL, popup)
			return nil
		})
	}

	return g.Wait()
}

func (a *Agent) dispatchImage(ctx context.Context, pageURL string, img extract.Image) {
	base64Data, mime := splitDataURL(img.Thumbnail)
	verdict, err := a.scanner.ScanImage(ctx, client.ImageScan{
		ThumbnailBase64: base64Data,
		SrcURL:          img.SrcURL,
		PageURL:         pageURL,
		MIME:            mime,
		Metadata: client.ImageMetadata{
			Width:     img.Width,
			Height:    img.Height,
			Timestamp: time.Now().UnixMilli(),
		},
	})
	if err != nil {
		a.logger.ErrorContext(ctx, "image scan failed",
			"node_id", img.NodeID,
			"src_url", img.SrcURL,
			"error", err,
		)
		return
	}
	a.render(ctx, sink.Notice{
		Kind:    event.KindImage,
		NodeID:  img.NodeID,
		PageURL: pageURL,
		Verdict: *verdict,
	})
}

func (a *Agent) dispatchPopup(ctx context.Context, pageURL string, popup extract.Popup) {
	verdict, err := a.scanner.ScanPopup(ctx, client.PopupScan{
		PageURL:     pageURL,
		RawText:     extract.TruncatePopupText(popup.Text),
		FieldLabels: popup.FieldLabels,
	})
	if err != nil {
		a.logger.ErrorContext(ctx, "popup scan failed",
			"node_id", popup.NodeID,
			"error", err,
		)
		return
	}
	a.render(ctx, sink.Notice{
		Kind:    event.KindPopup,
		NodeID:  popup.NodeID,
		PageURL: pageURL,
		Verdict: *verdict,
	})
}

func (a *Agent) render(ctx context.Context, n sink.Notice) {
	for _, s := range a.sinks {
		if err := s.Render(ctx, n); err != nil {
			a.logger.ErrorContext(ctx, "verdict render failed",
				"node_id", n.NodeID,
				"error", err,
			)
		}
	}
}

// localResolution is the verdict a suppressed candidate gets without any
// network call.
func localResolution() client.Verdict {
	return client.Verdict{
		Verdict:     string(event.LabelSafe),
		Severity:    1,
		ReasonCodes: []string{reasonRateLimitedLocal},
		Action:      string(event.ActionAllow),
	}
}

// splitDataURL separates a data URL into its base64 payload and media type.
func splitDataURL(dataURL string) (payload, mime string) {
	const marker = ";base64,"
	idx := strings.Index(dataURL, marker)
	if idx < 0 || !strings.HasPrefix(dataURL, "data:") {
		return dataURL, ""
	}
	return dataURL[idx+len(marker):], dataURL[len("data:"):idx]
}
