package domain

import "time"

// Envelope and recipient statuses are provider-defined strings, stored
// lowercase. StatusAuthFailed is synthesized locally when a recipient fails
// identity verification; the provider never reports it.
const (
	StatusSent       = "sent"
	StatusDelivered  = "delivered"
	StatusCompleted  = "completed"
	StatusDeclined   = "declined"
	StatusVoided     = "voided"
	StatusAuthFailed = "authentication failed"
)

// IsTerminalStatus reports whether a status ends an envelope's lifecycle.
func IsTerminalStatus(status string) bool {
	switch status {
	case StatusCompleted, StatusDeclined, StatusVoided, StatusAuthFailed:
		return true
	}
	return false
}

// OwnerKind identifies the type of business record an envelope belongs to.
type OwnerKind string

const (
	OwnerLoan        OwnerKind = "loan"
	OwnerApplication OwnerKind = "application"
)

// OwnerRef points at the business record that owns an envelope.
type OwnerRef struct {
	Kind OwnerKind
	ID   int64
}

// EnvelopeStage is the single mutable record tracking an envelope's current
// known status. It is created when an envelope is sent for signature and
// mutated only by webhook reconciliation.
type EnvelopeStage struct {
	ID                string
	EnvelopeID        string
	AccountID         string
	EnvelopeStatus    string
	RecipientStatus   string
	RecipientAuthInfo []byte
	Owner             OwnerRef
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

const EventTypeWebhook = "WEBHOOK"

// EnvelopeAuditEvent is one append-only row per processed webhook delivery.
type EnvelopeAuditEvent struct {
	ID              string
	EnvelopeID      string
	EventType       string
	EventValue      string
	EventReceivedAt time.Time
	Owner           OwnerRef
	RemoteAddr      string
}
