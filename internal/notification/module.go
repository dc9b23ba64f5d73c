// Package notification reacts to domain events with outbound side effects.
// Domain modules publish events and never talk to Redis or SMTP directly.
package notification

import (
	"context"

	"leadsignal_backend/internal/events"
	"leadsignal_backend/internal/scheduler"
	"leadsignal_backend/platform/logger"
)

// Module handles notification-related event subscriptions.
type Module struct {
	alerts scheduler.LeadAlertEnqueuer
	log    *logger.Logger
}

// New creates the notification module. alerts may be nil when no scheduler is
// configured; contact matches are then only logged.
func New(alerts scheduler.LeadAlertEnqueuer, log *logger.Logger) *Module {
	return &Module{alerts: alerts, log: log}
}

// RegisterHandlers subscribes the module to the events it reacts to.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadContactMatched{}.EventName(), m)
	bus.Subscribe(events.LeadSourceSecretRotated{}.EventName(), m)
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadContactMatched:
		m.handleLeadContactMatched(ctx, e)
	case events.LeadSourceSecretRotated:
		m.log.Info("lead source secret changed",
			"workspaceId", e.WorkspaceID, "sourceId", e.SourceID, "provider", e.Provider, "cleared", e.Cleared)
	}
	return nil
}

// Enqueue failures are logged and never reach the delivery that produced the event.
func (m *Module) handleLeadContactMatched(ctx context.Context, e events.LeadContactMatched) {
	if m.alerts == nil {
		m.log.Info("lead contact matched, alerts disabled", "leadId", e.LeadID, "provider", e.Provider)
		return
	}

	err := m.alerts.EnqueueLeadAlert(ctx, scheduler.LeadAlertPayload{
		WorkspaceID: e.WorkspaceID.String(),
		SourceID:    e.SourceID.String(),
		LeadID:      e.LeadID.String(),
	})
	if err != nil {
		m.log.Error("failed to enqueue lead alert", "error", err, "leadId", e.LeadID)
	}
}
