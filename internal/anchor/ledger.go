package anchor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Receipt is the ledger's acknowledgement of an anchored fingerprint.
type Receipt struct {
	TxID  string
	Chain string
}

// Ledger submits fingerprints to the external append-only ledger. Severity
// bounds and tenant presence are validated at the ledger boundary, not here.
type Ledger interface {
	Anchor(ctx context.Context, fingerprint, tenantID string, severity int) (*Receipt, error)
}

// NoopLedger is used when the ledger integration is unconfigured: anchoring
// silently yields no receipt.
type NoopLedger struct{}

func (NoopLedger) Anchor(context.Context, string, string, int) (*Receipt, error) {
	return nil, nil
}

// HTTPLedger talks to the ledger gateway over HTTP.
type HTTPLedger struct {
	url    string
	token  string
	chain  string
	client *http.Client
}

func NewHTTPLedger(url, token, chain string) *HTTPLedger {
	return &HTTPLedger{
		url:    url,
		token:  token,
		chain:  chain,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type anchorRequest struct {
	Fingerprint string `json:"fingerprint"`
	TenantID    string `json:"tenant_id"`
	Severity    int    `json:"severity"`
}

type anchorResponse struct {
	TxHash string `json:"tx_hash"`
	Chain  string `json:"chain"`
}

func (l *HTTPLedger) Anchor(ctx context.Context, fingerprint, tenantID string, severity int) (*Receipt, error) {
	body, err := json.Marshal(anchorRequest{
		Fingerprint: fingerprint,
		TenantID:    tenantID,
		Severity:    severity,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal anchor request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build anchor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if l.token != "" {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call ledger: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ledger returned status %d", resp.StatusCode)
	}

	var parsed anchorResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode ledger response: %w", err)
	}
	if parsed.TxHash == "" {
		return nil, fmt.Errorf("ledger returned no transaction identifier")
	}

	// The gateway knows which chain it actually wrote to; the configured
	// tag is only a fallback for gateways that omit it.
	chain := parsed.Chain
	if chain == "" {
		chain = l.chain
	}
	return &Receipt{TxID: parsed.TxHash, Chain: chain}, nil
}
