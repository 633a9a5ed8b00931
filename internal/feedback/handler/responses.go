package handler

import (
	"time"

	"pageguard/internal/feedback"
)

// FeedbackResponse is the HTTP shape of one feedback entry.
type FeedbackResponse struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	Label     string    `json:"label"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListResponse wraps the feedback collection.
type ListResponse struct {
	Feedback []FeedbackResponse `json:"feedback"`
}

// FromFeedback converts a stored entry to its HTTP shape.
func FromFeedback(f feedback.Feedback) FeedbackResponse {
	return FeedbackResponse{
		ID:        f.ID,
		EventID:   f.EventID,
		Label:     string(f.Label),
		Notes:     f.Notes,
		CreatedAt: f.CreatedAt,
	}
}

// FromFeedbackList converts a stored entry list.
func FromFeedbackList(entries []feedback.Feedback) *ListResponse {
	out := make([]FeedbackResponse, 0, len(entries))
	for _, f := range entries {
		out = append(out, FromFeedback(f))
	}
	return &ListResponse{Feedback: out}
}
