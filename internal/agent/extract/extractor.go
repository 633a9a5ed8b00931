// Package extract finds candidate images and popups on a live page through a
// chromedp session. A passive collector script in the page reports raw
// candidates; all eligibility decisions stay in the agent process so the
// page is never blocked on heavy work.
package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/chromedp"
)

// Extractor drives the in-page collector over a chromedp context.
type Extractor struct {
	browserCtx context.Context
}

// New wraps an existing chromedp context. The caller owns the browser
// lifecycle.
func New(browserCtx context.Context) *Extractor {
	return &Extractor{browserCtx: browserCtx}
}

// Install evaluates the collector script on the current page. Idempotent;
// call it again after each navigation.
func (e *Extractor) Install(ctx context.Context) error {
	if err := e.run(ctx, chromedp.Evaluate(collectorJS, nil)); err != nil {
		return fmt.Errorf("install collector: %w", err)
	}
	return nil
}

// ConsumeDirty reports whether the page mutated since the last call and
// clears the flag.
func (e *Extractor) ConsumeDirty(ctx context.Context) (bool, error) {
	var dirty bool
	if err := e.run(ctx, chromedp.Evaluate(`window.__pgCollector.consumeDirty()`, &dirty)); err != nil {
		return false, fmt.Errorf("consume dirty flag: %w", err)
	}
	return dirty, nil
}

// Collect snapshots the page's current candidates.
func (e *Extractor) Collect(ctx context.Context) (*Snapshot, error) {
	var raw string
	if err := e.run(ctx, chromedp.Evaluate(`window.__pgCollector.collect()`, &raw)); err != nil {
		return nil, fmt.Errorf("collect candidates: %w", err)
	}
	var snapshot Snapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snapshot, nil
}

func (e *Extractor) run(ctx context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(e.browserCtx, actions...) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
