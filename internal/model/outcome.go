package model

import "github.com/google/uuid"

// DeliveryOutcome is the per-destination result of one envelope
// submission. Receipt ids are logged for diagnostics only; no receipt
// check call is made afterwards.
type DeliveryOutcome struct {
	Platform  Platform `json:"platform"`
	Token     string   `json:"token"`
	OK        bool     `json:"ok"`
	ReceiptID string   `json:"receiptId,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// DispatchReport is the aggregate verdict for one notification event.
// Succeeded is true when at least one destination accepted the message,
// and vacuously true when the user had nothing to dispatch to.
type DispatchReport struct {
	EventID   uuid.UUID         `json:"eventId"`
	Kind      Kind              `json:"kind"`
	Succeeded bool              `json:"succeeded"`
	Outcomes  []DeliveryOutcome `json:"outcomes"`
	Failures  []string          `json:"failures,omitempty"`
}
