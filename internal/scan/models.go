// Package scan is the verdict engine: it persists a pending event for every
// admitted artifact, obtains a verdict from the classifier (or substitutes
// the fallback when the classifier is unavailable), completes the event, and
// hands high-confidence malicious verdicts to the audit anchor.
package scan

import (
	"encoding/json"
	"time"

	"pageguard/internal/event"
)

// Artifact is one admitted submission: an image or popup captured on a page,
// already gated client-side, carrying its raw payload for persistence and
// classification.
type Artifact struct {
	TenantID   string
	Kind       event.Kind
	PageURL    string
	Payload    json.RawMessage
	CapturedAt time.Time
}

// ImagePayload is the wire form of an image artifact.
type ImagePayload struct {
	ThumbnailBase64 string        `json:"thumbnail_base64"`
	SrcURL          string        `json:"src_url"`
	PageURL         string        `json:"page_url"`
	MIME            string        `json:"mime"`
	Metadata        ImageMetadata `json:"metadata"`
}

// ImageMetadata carries the natural dimensions and capture time of the
// source image.
type ImageMetadata struct {
	Width     int   `json:"width"`
	Height    int   `json:"height"`
	Timestamp int64 `json:"timestamp"`
}

// PopupPayload is the wire form of a popup artifact.
type PopupPayload struct {
	PageURL     string   `json:"page_url"`
	RawText     string   `json:"raw_text"`
	FieldLabels []string `json:"field_labels"`
}

// Result is what Evaluate returns to the caller: the stored event's id plus
// the verdict that completed it.
type Result struct {
	EventID  string
	Verdict  event.Verdict
	Fallback bool
}
