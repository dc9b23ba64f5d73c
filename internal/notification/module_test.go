package notification

import (
	"context"
	"errors"
	"sync"
	"testing"

	"leadsignal_backend/internal/events"
	"leadsignal_backend/internal/scheduler"
	"leadsignal_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeEnqueuer struct {
	mu       sync.Mutex
	payloads []scheduler.LeadAlertPayload
	err      error
}

func (f *fakeEnqueuer) EnqueueLeadAlert(_ context.Context, payload scheduler.LeadAlertPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return f.err
}

func matchedEvent() events.LeadContactMatched {
	return events.LeadContactMatched{
		BaseEvent:   events.NewBaseEvent(),
		WorkspaceID: uuid.New(),
		SourceID:    uuid.New(),
		Provider:    "rb2b",
		IdentityID:  uuid.New(),
		LeadID:      uuid.New(),
		IntentScore: 10,
	}
}

func TestLeadContactMatchedEnqueuesAlert(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	bus := events.NewInMemoryBus(logger.Discard())
	New(enqueuer, logger.Discard()).RegisterHandlers(bus)

	event := matchedEvent()
	if err := bus.PublishSync(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(enqueuer.payloads) != 1 {
		t.Fatalf("expected one enqueued alert, got %d", len(enqueuer.payloads))
	}
	got := enqueuer.payloads[0]
	if got.LeadID != event.LeadID.String() || got.SourceID != event.SourceID.String() || got.WorkspaceID != event.WorkspaceID.String() {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestEnqueueFailureIsSwallowed(t *testing.T) {
	m := New(&fakeEnqueuer{err: errors.New("redis down")}, logger.Discard())

	if err := m.Handle(context.Background(), matchedEvent()); err != nil {
		t.Fatalf("enqueue failure must not propagate, got %v", err)
	}
}

func TestAlertsDisabledWithoutScheduler(t *testing.T) {
	m := New(nil, logger.Discard())

	if err := m.Handle(context.Background(), matchedEvent()); err != nil {
		t.Fatalf("handle: %v", err)
	}
}

func TestSecretRotationIsOnlyLogged(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	m := New(enqueuer, logger.Discard())

	err := m.Handle(context.Background(), events.LeadSourceSecretRotated{BaseEvent: events.NewBaseEvent(), SourceID: uuid.New()})
	if err != nil || len(enqueuer.payloads) != 0 {
		t.Fatalf("rotation must not enqueue alerts, got err=%v payloads=%d", err, len(enqueuer.payloads))
	}
}
