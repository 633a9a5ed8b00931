package handler

import (
	"encoding/json"
	"time"

	"pageguard/internal/event"
)

// EventResponse is the HTTP shape of one event.
type EventResponse struct {
	ID        string           `json:"id"`
	Kind      string           `json:"kind"`
	PageURL   string           `json:"page_url"`
	Payload   json.RawMessage  `json:"payload,omitempty"`
	Status    string           `json:"status"`
	Verdict   *event.Verdict   `json:"verdict,omitempty"`
	Receipt   *ReceiptResponse `json:"receipt,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// ReceiptResponse is the anchoring receipt portion of an event.
type ReceiptResponse struct {
	Fingerprint string    `json:"fingerprint"`
	TxID        string    `json:"tx_id"`
	Chain       string    `json:"chain"`
	AnchoredAt  time.Time `json:"anchored_at"`
}

// ListResponse wraps the event collection.
type ListResponse struct {
	Events []*EventResponse `json:"events"`
}

// FromEvent converts a stored event to its HTTP shape.
func FromEvent(e *event.Event) *EventResponse {
	resp := &EventResponse{
		ID:        e.ID,
		Kind:      string(e.Kind),
		PageURL:   e.PageURL,
		Payload:   e.Payload,
		Status:    string(e.Status),
		Verdict:   e.Verdict,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	if e.Receipt != nil {
		resp.Receipt = &ReceiptResponse{
			Fingerprint: e.Receipt.Fingerprint,
			TxID:        e.Receipt.TxID,
			Chain:       e.Receipt.Chain,
			AnchoredAt:  e.Receipt.AnchoredAt,
		}
	}
	return resp
}

// FromEvents converts a stored event list. Payloads are omitted from list
// responses to keep them small.
func FromEvents(events []*event.Event) *ListResponse {
	out := make([]*EventResponse, 0, len(events))
	for _, e := range events {
		resp := FromEvent(e)
		resp.Payload = nil
		out = append(out, resp)
	}
	return &ListResponse{Events: out}
}
