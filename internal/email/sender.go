package email

import (
	"context"
	"time"

	"leadsignal_backend/platform/logger"

	"github.com/google/uuid"
)

// LeadAlert describes a contact-level match. It holds identifiers and scores
// only; contact details stay in the dashboard.
type LeadAlert struct {
	WorkspaceID uuid.UUID
	LeadID      uuid.UUID
	Provider    string
	ExternalID  string
	IntentScore int
	LastSeenAt  time.Time
}

type Sender interface {
	SendLeadAlert(ctx context.Context, toEmail string, alert LeadAlert) error
}

// NoopSender is used when SMTP is not configured. It only logs.
type NoopSender struct {
	Log *logger.Logger
}

func (s NoopSender) SendLeadAlert(_ context.Context, _ string, alert LeadAlert) error {
	if s.Log != nil {
		s.Log.Info("email disabled, lead alert not sent", "leadId", alert.LeadID, "provider", alert.Provider)
	}
	return nil
}
