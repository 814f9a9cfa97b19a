// Package webhook reconciles provider status-change notifications against
// the locally persisted envelope stage records.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"signtrack/internal/domain"
	"signtrack/internal/xmlmap"
)

// EnvelopeStore is the persistence boundary the reconciler writes through.
// SaveWithAudit must apply the stage update and the audit append atomically.
type EnvelopeStore interface {
	GetByEnvelopeID(ctx context.Context, envelopeID string) (*domain.EnvelopeStage, error)
	SaveWithAudit(ctx context.Context, stage domain.EnvelopeStage, event domain.EnvelopeAuditEvent) error
}

type Reconciler struct {
	envelopes EnvelopeStore
	log       *zap.Logger
	now       func() time.Time
}

func NewReconciler(envelopes EnvelopeStore, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{envelopes: envelopes, log: log, now: time.Now}
}

// ProcessWebhook applies one provider notification: it decodes the XML
// payload, loads the matching stage record, runs the status rules, appends
// exactly one audit row and commits the updated stage. It returns the
// envelope id and the envelope status as persisted.
//
// A recipient who once failed identity verification stays in
// "authentication failed": that signal must survive later events in which
// the recipient completed the flow through another path. Beyond that single
// rule, events are applied in delivery order; out-of-order deliveries of
// other statuses are not reordered.
func (r *Reconciler) ProcessWebhook(ctx context.Context, payload []byte, remoteAddr string) (string, string, error) {
	tree, err := xmlmap.Decode(payload)
	if err != nil {
		return "", "", err
	}

	n, err := parseNotification(tree)
	if err != nil {
		if errors.Is(err, domain.ErrUnrecognizedPayload) {
			r.log.Error("unrecognized webhook payload",
				zap.Int("payload_bytes", len(payload)),
				zap.Error(err))
		}
		return "", "", err
	}

	stage, err := r.envelopes.GetByEnvelopeID(ctx, n.EnvelopeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.log.Error("envelope not found in system",
				zap.String("envelope_id", n.EnvelopeID),
				zap.String("envelope_status", n.EnvelopeStatus))
			return "", "", fmt.Errorf("%w: %s", domain.ErrUnknownEnvelope, n.EnvelopeID)
		}
		return "", "", fmt.Errorf("load stage for envelope %s: %w", n.EnvelopeID, err)
	}

	envelopeStatus := strings.ToLower(n.EnvelopeStatus)
	recipientStatus := strings.ToLower(n.RecipientStatus)
	idQuestions := strings.ToLower(n.IDQuestionsStatus)
	idLookup := strings.ToLower(n.IDLookupStatus)

	// A previously recorded authentication failure is sticky; a later
	// non-failure recipient status must not erase it.
	if stage.RecipientStatus != domain.StatusAuthFailed {
		stage.RecipientStatus = recipientStatus
	}

	if idQuestions == "failed" || idLookup == "failed" {
		stage.RecipientStatus = domain.StatusAuthFailed
		stage.RecipientAuthInfo = n.AuthInfo
		recipientStatus = domain.StatusAuthFailed
	}

	eventValue := envelopeStatus
	// A recipient bouncing on KBA/ID verification arrives as a generic
	// "sent" envelope; surface the failure instead.
	if recipientStatus == domain.StatusAuthFailed && envelopeStatus == domain.StatusSent {
		eventValue = domain.StatusAuthFailed
	}

	if remoteAddr == "" {
		remoteAddr = "0.0.0.0"
	}
	event := domain.EnvelopeAuditEvent{
		ID:              uuid.NewString(),
		EnvelopeID:      stage.EnvelopeID,
		EventType:       domain.EventTypeWebhook,
		EventValue:      eventValue,
		EventReceivedAt: r.now().UTC(),
		Owner:           stage.Owner,
		RemoteAddr:      remoteAddr,
	}

	if eventValue == domain.StatusAuthFailed {
		envelopeStatus = domain.StatusAuthFailed
	}

	stage.EnvelopeStatus = envelopeStatus
	stage.UpdatedAt = r.now().UTC()

	if err := r.envelopes.SaveWithAudit(ctx, *stage, event); err != nil {
		return "", "", fmt.Errorf("persist reconciliation for envelope %s: %w", stage.EnvelopeID, err)
	}

	r.log.Debug("webhook reconciled",
		zap.String("envelope_id", stage.EnvelopeID),
		zap.String("envelope_status", envelopeStatus),
		zap.String("event_value", eventValue))

	return stage.EnvelopeID, envelopeStatus, nil
}
