// Package event holds the durable record of every submitted artifact and the
// lifecycle state machine it moves through:
//
//	pending -[AttachVerdict]-> completed -[Acknowledge]-> acknowledged
//
// Receipt linking happens after completion and never changes status. No
// transition moves an event backward.
package event

import (
	"encoding/json"
	"time"
)

// Kind distinguishes the two artifact families the pipeline scans.
type Kind string

const (
	KindImage Kind = "image"
	KindPopup Kind = "popup"
)

// IsValid checks the kind is one of the supported values.
func (k Kind) IsValid() bool {
	return k == KindImage || k == KindPopup
}

// Status is the lifecycle state of an event.
type Status string

const (
	StatusPending      Status = "pending"
	StatusCompleted    Status = "completed"
	StatusAcknowledged Status = "acknowledged"
)

// Label is the classifier's determination for an artifact.
type Label string

const (
	LabelSafe       Label = "safe"
	LabelSuspicious Label = "suspicious"
	LabelMalicious  Label = "malicious"
)

// Action is the resolved response to a verdict.
type Action string

const (
	ActionAllow      Action = "allow"
	ActionAlert      Action = "alert"
	ActionQuarantine Action = "quarantine"
)

// Verdict is the classifier's output for one artifact. Immutable once
// produced; attached to exactly one event.
type Verdict struct {
	Label       Label    `json:"verdict"`
	Severity    int      `json:"severity"`
	Confidence  float64  `json:"confidence"`
	ReasonCodes []string `json:"reason_codes"`
	Action      Action   `json:"action"`
}

// Receipt proves an event was anchored to the external ledger. At most one
// per event, enforced by the anchoring caller.
type Receipt struct {
	Fingerprint string    `json:"fingerprint"`
	TxID        string    `json:"tx_id"`
	Chain       string    `json:"chain"`
	AnchoredAt  time.Time `json:"anchored_at"`
}

// Event is the durable record of one artifact's journey through the pipeline.
type Event struct {
	ID       string          `json:"id"`
	TenantID string          `json:"tenant_id"`
	Kind     Kind            `json:"kind"`
	PageURL  string          `json:"page_url"`
	Payload  json.RawMessage `json:"payload"`
	Status   Status          `json:"status"`
	Verdict  *Verdict        `json:"verdict,omitempty"`
	Receipt  *Receipt        `json:"receipt,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
