package webhook

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"signtrack/internal/domain"
)

type stubEnvelopeStore struct {
	stage      *domain.EnvelopeStage
	getErr     error
	saveErr    error
	saveCalls  int
	savedStage domain.EnvelopeStage
	savedEvent domain.EnvelopeAuditEvent
}

func (s *stubEnvelopeStore) GetByEnvelopeID(ctx context.Context, envelopeID string) (*domain.EnvelopeStage, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.stage == nil || s.stage.EnvelopeID != envelopeID {
		return nil, domain.ErrNotFound
	}
	copied := *s.stage
	return &copied, nil
}

func (s *stubEnvelopeStore) SaveWithAudit(ctx context.Context, stage domain.EnvelopeStage, event domain.EnvelopeAuditEvent) error {
	s.saveCalls++
	s.savedStage = stage
	s.savedEvent = event
	return s.saveErr
}

func statusPayload(envelopeID, envelopeStatus, recipientStatus, idQuestions, idLookup string) []byte {
	authBlock := ""
	if idQuestions != "" || idLookup != "" {
		authBlock = fmt.Sprintf(`<RecipientAuthenticationStatus>
          <IDQuestionsResult><Status>%s</Status></IDQuestionsResult>
          <IDLookupResult><Status>%s</Status></IDLookupResult>
        </RecipientAuthenticationStatus>`, idQuestions, idLookup)
	}
	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<DocuSignEnvelopeInformation xmlns="http://www.docusign.net/API/3.0">
  <EnvelopeStatus>
    <RecipientStatuses>
      <RecipientStatus>
        <Status>%s</Status>
        <UserName>Jane Signer</UserName>
        <TabStatuses><TabStatus><TabLabel>SignHere</TabLabel></TabStatus></TabStatuses>
        <FormData><xfdf/></FormData>
        %s
      </RecipientStatus>
    </RecipientStatuses>
    <EnvelopeID>%s</EnvelopeID>
    <Status>%s</Status>
  </EnvelopeStatus>
</DocuSignEnvelopeInformation>`, recipientStatus, authBlock, envelopeID, envelopeStatus))
}

func testStage(envelopeID, recipientStatus string) *domain.EnvelopeStage {
	return &domain.EnvelopeStage{
		ID:              "stage-1",
		EnvelopeID:      envelopeID,
		AccountID:       "acct-1",
		EnvelopeStatus:  domain.StatusSent,
		RecipientStatus: recipientStatus,
		Owner:           domain.OwnerRef{Kind: domain.OwnerLoan, ID: 77},
	}
}

func TestProcessWebhook_CompletedEnvelope(t *testing.T) {
	store := &stubEnvelopeStore{stage: testStage("env-1", domain.StatusSent)}
	r := NewReconciler(store, zap.NewNop())
	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	envelopeID, status, err := r.ProcessWebhook(context.Background(), statusPayload("env-1", "Completed", "Completed", "", ""), "198.51.100.7")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if envelopeID != "env-1" || status != domain.StatusCompleted {
		t.Fatalf("expected (env-1, completed), got (%s, %s)", envelopeID, status)
	}
	if store.saveCalls != 1 {
		t.Fatalf("expected exactly one save, got %d", store.saveCalls)
	}
	if store.savedStage.EnvelopeStatus != domain.StatusCompleted {
		t.Fatalf("expected stage status completed, got %q", store.savedStage.EnvelopeStatus)
	}
	if store.savedStage.RecipientStatus != domain.StatusCompleted {
		t.Fatalf("expected recipient status completed, got %q", store.savedStage.RecipientStatus)
	}
	if store.savedStage.UpdatedAt != fixed {
		t.Fatalf("expected updated_at %v, got %v", fixed, store.savedStage.UpdatedAt)
	}

	event := store.savedEvent
	if event.EventType != domain.EventTypeWebhook {
		t.Fatalf("expected WEBHOOK event type, got %q", event.EventType)
	}
	if event.EventValue != status {
		t.Fatalf("audit event value %q must equal returned status %q", event.EventValue, status)
	}
	if event.EnvelopeID != "env-1" || event.Owner != store.stage.Owner {
		t.Fatalf("audit event must carry envelope id and owner from the stage record: %+v", event)
	}
	if event.RemoteAddr != "198.51.100.7" {
		t.Fatalf("expected remote addr recorded, got %q", event.RemoteAddr)
	}
	if event.ID == "" {
		t.Fatal("expected audit event id to be assigned")
	}
}

func TestProcessWebhook_IDLookupFailureEscalates(t *testing.T) {
	store := &stubEnvelopeStore{stage: testStage("env-2", domain.StatusSent)}
	r := NewReconciler(store, zap.NewNop())

	envelopeID, status, err := r.ProcessWebhook(context.Background(), statusPayload("env-2", "Sent", "Sent", "Passed", "Failed"), "")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if envelopeID != "env-2" || status != domain.StatusAuthFailed {
		t.Fatalf("expected (env-2, authentication failed), got (%s, %s)", envelopeID, status)
	}
	if store.savedStage.EnvelopeStatus != domain.StatusAuthFailed {
		t.Fatalf("expected envelope status forced to authentication failed, got %q", store.savedStage.EnvelopeStatus)
	}
	if store.savedStage.RecipientStatus != domain.StatusAuthFailed {
		t.Fatalf("expected recipient status authentication failed, got %q", store.savedStage.RecipientStatus)
	}
	if len(store.savedStage.RecipientAuthInfo) == 0 {
		t.Fatal("expected recipient auth info to be persisted")
	}
	if store.savedEvent.EventValue != domain.StatusAuthFailed {
		t.Fatalf("expected audit event value authentication failed, got %q", store.savedEvent.EventValue)
	}
	if store.savedEvent.RemoteAddr != "0.0.0.0" {
		t.Fatalf("expected fallback remote addr, got %q", store.savedEvent.RemoteAddr)
	}
}

func TestProcessWebhook_IDQuestionsFailureEscalates(t *testing.T) {
	store := &stubEnvelopeStore{stage: testStage("env-3", domain.StatusSent)}
	r := NewReconciler(store, zap.NewNop())

	_, status, err := r.ProcessWebhook(context.Background(), statusPayload("env-3", "Sent", "Sent", "Failed", "Passed"), "")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if status != domain.StatusAuthFailed {
		t.Fatalf("expected authentication failed, got %q", status)
	}
}

func TestProcessWebhook_AuthFailureIsSticky(t *testing.T) {
	store := &stubEnvelopeStore{stage: testStage("env-4", domain.StatusAuthFailed)}
	r := NewReconciler(store, zap.NewNop())

	_, status, err := r.ProcessWebhook(context.Background(), statusPayload("env-4", "Delivered", "Delivered", "", ""), "")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if store.savedStage.RecipientStatus != domain.StatusAuthFailed {
		t.Fatalf("recipient status must stay authentication failed, got %q", store.savedStage.RecipientStatus)
	}
	// The envelope itself still progresses; only the recipient signal is sticky.
	if status != domain.StatusDelivered || store.savedStage.EnvelopeStatus != domain.StatusDelivered {
		t.Fatalf("expected envelope status delivered, got %q / %q", status, store.savedStage.EnvelopeStatus)
	}
	if store.savedEvent.EventValue != domain.StatusDelivered {
		t.Fatalf("expected audit event value delivered, got %q", store.savedEvent.EventValue)
	}
}

func TestProcessWebhook_CompletedAfterAuthFailureKeepsEventValue(t *testing.T) {
	// A completed envelope whose recipient once failed authentication reports
	// the completion; only a raw "sent" is rewritten to the failure.
	store := &stubEnvelopeStore{stage: testStage("env-5", domain.StatusAuthFailed)}
	r := NewReconciler(store, zap.NewNop())

	_, status, err := r.ProcessWebhook(context.Background(), statusPayload("env-5", "Completed", "Completed", "", ""), "")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %q", status)
	}
}

func TestProcessWebhook_UnknownEnvelope(t *testing.T) {
	store := &stubEnvelopeStore{}
	r := NewReconciler(store, zap.NewNop())

	_, _, err := r.ProcessWebhook(context.Background(), statusPayload("env-missing", "Sent", "Sent", "", ""), "")
	if !errors.Is(err, domain.ErrUnknownEnvelope) {
		t.Fatalf("expected ErrUnknownEnvelope, got %v", err)
	}
	if store.saveCalls != 0 {
		t.Fatalf("no audit row may be written for an unknown envelope, got %d saves", store.saveCalls)
	}
}

func TestProcessWebhook_MalformedPayload(t *testing.T) {
	store := &stubEnvelopeStore{}
	r := NewReconciler(store, zap.NewNop())

	_, _, err := r.ProcessWebhook(context.Background(), []byte("<not-xml"), "")
	if !errors.Is(err, domain.ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
	if store.saveCalls != 0 {
		t.Fatal("no save on malformed payload")
	}
}

func TestProcessWebhook_NoVersionMarker(t *testing.T) {
	store := &stubEnvelopeStore{}
	r := NewReconciler(store, zap.NewNop())

	payload := []byte(`<Envelope xmlns="http://example.com/notdocusign"><Status>Sent</Status></Envelope>`)
	_, _, err := r.ProcessWebhook(context.Background(), payload, "")
	if !errors.Is(err, domain.ErrUnrecognizedPayload) {
		t.Fatalf("expected ErrUnrecognizedPayload, got %v", err)
	}
}

func TestProcessWebhook_PersistFailurePropagates(t *testing.T) {
	store := &stubEnvelopeStore{
		stage:   testStage("env-6", domain.StatusSent),
		saveErr: errors.New("db down"),
	}
	r := NewReconciler(store, zap.NewNop())

	_, _, err := r.ProcessWebhook(context.Background(), statusPayload("env-6", "Completed", "Completed", "", ""), "")
	if err == nil || !errors.Is(err, store.saveErr) {
		t.Fatalf("expected persistence error to propagate, got %v", err)
	}
}
