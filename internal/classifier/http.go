package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"pageguard/pkg/sentinel"
)

// HTTPClassifier calls the classification service over HTTP. A circuit
// breaker stops hammering an unavailable classifier; an open breaker is the
// same degraded mode as a timeout from the engine's point of view.
type HTTPClassifier struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*Result]
}

// NewHTTPClassifier builds a classifier client with a bounded per-call
// timeout.
func NewHTTPClassifier(baseURL string, timeout time.Duration) *HTTPClassifier {
	breaker := gobreaker.NewCircuitBreaker[*Result](gobreaker.Settings{
		Name:    "classifier",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &HTTPClassifier{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
	}
}

func (c *HTTPClassifier) Classify(ctx context.Context, req Request) (*Result, error) {
	result, err := c.breaker.Execute(func() (*Result, error) {
		return c.infer(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("classifier: %w: %w", sentinel.ErrUnavailable, err)
	}
	return result, nil
}

func (c *HTTPClassifier) infer(ctx context.Context, req Request) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/infer", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call classifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode verdict: %w", err)
	}
	return &result, nil
}
