package handler

import (
	"pageguard/internal/scan"
)

// ScanResponse is the HTTP response for both scan endpoints.
type ScanResponse struct {
	EventID     string   `json:"event_id"`
	Verdict     string   `json:"verdict"`
	Severity    int      `json:"severity"`
	Confidence  float64  `json:"confidence"`
	ReasonCodes []string `json:"reason_codes"`
	Action      string   `json:"action"`
}

// FromResult converts an evaluation result to the HTTP response.
func FromResult(result *scan.Result) *ScanResponse {
	return &ScanResponse{
		EventID:     result.EventID,
		Verdict:     string(result.Verdict.Label),
		Severity:    result.Verdict.Severity,
		Confidence:  result.Verdict.Confidence,
		ReasonCodes: result.Verdict.ReasonCodes,
		Action:      string(result.Verdict.Action),
	}
}
