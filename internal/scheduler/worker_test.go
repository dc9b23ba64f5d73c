package scheduler

import (
	"context"
	"errors"
	"testing"

	"leadsignal_backend/internal/email"
	"leadsignal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type fakeAlertStore struct {
	target AlertTarget
	err    error
}

func (f fakeAlertStore) LoadLeadAlert(_ context.Context, workspaceID, _ uuid.UUID, leadID uuid.UUID) (AlertTarget, error) {
	if f.err != nil {
		return AlertTarget{}, f.err
	}
	target := f.target
	target.Alert.WorkspaceID = workspaceID
	target.Alert.LeadID = leadID
	return target, nil
}

type recordingSender struct {
	to     []string
	alerts []email.LeadAlert
	err    error
}

func (s *recordingSender) SendLeadAlert(_ context.Context, toEmail string, alert email.LeadAlert) error {
	s.to = append(s.to, toEmail)
	s.alerts = append(s.alerts, alert)
	return s.err
}

func alertTask(t *testing.T, payload LeadAlertPayload) *asynq.Task {
	t.Helper()
	task, err := NewLeadAlertTask(payload)
	if err != nil {
		t.Fatalf("task: %v", err)
	}
	return task
}

func validPayload() LeadAlertPayload {
	return LeadAlertPayload{WorkspaceID: uuid.NewString(), SourceID: uuid.NewString(), LeadID: uuid.NewString()}
}

func TestHandleLeadAlertSendsEmail(t *testing.T) {
	sender := &recordingSender{}
	w := &Worker{
		store:  fakeAlertStore{target: AlertTarget{AlertEmail: "ops@example.com", Alert: email.LeadAlert{Provider: "rb2b", IntentScore: 10}}},
		sender: sender,
		log:    logger.Discard(),
	}
	payload := validPayload()

	if err := w.handleLeadAlert(context.Background(), alertTask(t, payload)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sender.to) != 1 || sender.to[0] != "ops@example.com" {
		t.Fatalf("expected one email to ops, got %v", sender.to)
	}
	if sender.alerts[0].LeadID.String() != payload.LeadID {
		t.Fatalf("alert for wrong lead: %+v", sender.alerts[0])
	}
}

func TestHandleLeadAlertSkipsWithoutRecipient(t *testing.T) {
	sender := &recordingSender{}
	w := &Worker{store: fakeAlertStore{}, sender: sender, log: logger.Discard()}

	if err := w.handleLeadAlert(context.Background(), alertTask(t, validPayload())); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sender.to) != 0 {
		t.Fatal("no email expected without alert address")
	}
}

func TestHandleLeadAlertSkipsMissingTarget(t *testing.T) {
	w := &Worker{store: fakeAlertStore{err: ErrAlertTargetNotFound}, sender: &recordingSender{}, log: logger.Discard()}

	if err := w.handleLeadAlert(context.Background(), alertTask(t, validPayload())); err != nil {
		t.Fatalf("missing target must not retry, got %v", err)
	}
}

func TestHandleLeadAlertErrors(t *testing.T) {
	sendErr := errors.New("smtp down")
	w := &Worker{
		store:  fakeAlertStore{target: AlertTarget{AlertEmail: "ops@example.com"}},
		sender: &recordingSender{err: sendErr},
		log:    logger.Discard(),
	}

	if err := w.handleLeadAlert(context.Background(), alertTask(t, validPayload())); !errors.Is(err, sendErr) {
		t.Fatalf("expected send error to be retried, got %v", err)
	}

	err := w.handleLeadAlert(context.Background(), alertTask(t, LeadAlertPayload{WorkspaceID: "x", SourceID: "y", LeadID: "z"}))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("malformed ids must skip retry, got %v", err)
	}

	err = w.handleLeadAlert(context.Background(), asynq.NewTask(TaskLeadAlert, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("malformed payload must skip retry, got %v", err)
	}
}
