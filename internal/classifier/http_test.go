package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pageguard/internal/event"
	"pageguard/pkg/sentinel"
)

func imageRequest() Request {
	return Request{
		Kind: event.KindImage,
		Data: json.RawMessage(`{"src_url":"https://example.com/a.png"}`),
		Context: RequestContext{
			TenantID: "tenant-1",
			Policy:   PolicyContext{Threshold: 0.7},
		},
	}
}

func TestHTTPClassifier(t *testing.T) {
	t.Run("returns verdict verbatim", func(t *testing.T) {
		var gotBody Request
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/infer", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			json.NewEncoder(w).Encode(Result{
				Label:       event.LabelMalicious,
				Severity:    8,
				Confidence:  0.92,
				ReasonCodes: []string{"steganography_suspected"},
				Action:      event.ActionQuarantine,
			})
		}))
		defer srv.Close()

		c := NewHTTPClassifier(srv.URL, time.Second)
		result, err := c.Classify(context.Background(), imageRequest())
		require.NoError(t, err)
		require.Equal(t, event.LabelMalicious, result.Label)
		require.Equal(t, 8, result.Severity)
		require.InDelta(t, 0.92, result.Confidence, 1e-9)
		require.Equal(t, event.ActionQuarantine, result.Action)

		require.Equal(t, event.KindImage, gotBody.Kind)
		require.Equal(t, "tenant-1", gotBody.Context.TenantID)
		require.InDelta(t, 0.7, gotBody.Context.Policy.Threshold, 1e-9)
	})

	t.Run("non-2xx maps to unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		c := NewHTTPClassifier(srv.URL, time.Second)
		_, err := c.Classify(context.Background(), imageRequest())
		require.ErrorIs(t, err, sentinel.ErrUnavailable)
	})

	t.Run("timeout maps to unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		c := NewHTTPClassifier(srv.URL, 20*time.Millisecond)
		_, err := c.Classify(context.Background(), imageRequest())
		require.ErrorIs(t, err, sentinel.ErrUnavailable)
	})

	t.Run("breaker opens after consecutive failures", func(t *testing.T) {
		var calls int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := NewHTTPClassifier(srv.URL, time.Second)
		for range 10 {
			_, err := c.Classify(context.Background(), imageRequest())
			require.ErrorIs(t, err, sentinel.ErrUnavailable)
		}
		// After five consecutive failures the breaker stops forwarding calls.
		require.Equal(t, 5, calls)
	})
}
