// Package client is the agent's connection to the scan API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ImageScan is the request body for POST /api/scan/image.
type ImageScan struct {
	ThumbnailBase64 string        `json:"thumbnail_base64"`
	SrcURL          string        `json:"src_url"`
	PageURL         string        `json:"page_url"`
	MIME            string        `json:"mime"`
	Metadata        ImageMetadata `json:"metadata"`
}

type ImageMetadata struct {
	Width     int   `json:"width"`
	Height    int   `json:"height"`
	Timestamp int64 `json:"timestamp"`
}

// PopupScan is the request body for POST /api/scan/popup.
type PopupScan struct {
	PageURL     string   `json:"page_url"`
	RawText     string   `json:"raw_text"`
	FieldLabels []string `json:"field_labels"`
}

// Verdict is the server's answer to a scan submission.
type Verdict struct {
	EventID     string   `json:"event_id"`
	Verdict     string   `json:"verdict"`
	Severity    int      `json:"severity"`
	Confidence  float64  `json:"confidence"`
	ReasonCodes []string `json:"reason_codes"`
	Action      string   `json:"action"`
}

// Client submits artifacts to the scan API with bearer auth.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 35 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// ScanImage submits one image artifact.
func (c *Client) ScanImage(ctx context.Context, scan ImageScan) (*Verdict, error) {
	return c.post(ctx, "/api/scan/image", scan)
}

// ScanPopup submits one popup artifact.
func (c *Client) ScanPopup(ctx context.Context, scan PopupScan) (*Verdict, error) {
	return c.post(ctx, "/api/scan/popup", scan)
}

func (c *Client) post(ctx context.Context, path string, body any) (*Verdict, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal scan request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build scan request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit scan: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("scan rejected with status %d: %s", resp.StatusCode, payload)
	}

	var verdict Verdict
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return nil, fmt.Errorf("decode verdict: %w", err)
	}
	return &verdict, nil
}
