package ingest

import (
	"time"

	"github.com/google/uuid"
)

// Billing categories and their unit prices.
const (
	BillingEventIngested     = "event_ingested"
	BillingFirstContactMatch = "first_contact_match"

	EventIngestedUnits     = 1
	FirstContactMatchUnits = 12
)

type ledgerKeyTuple struct {
	WorkspaceID string `json:"workspace_id"`
	BillingType string `json:"billing_type"`
	Provider    string `json:"provider"`
	IdentityID  string `json:"identity_id"`
	LeadID      string `json:"lead_id"`
	DedupeKey   string `json:"dedupe_key"`
	OccurredAt  string `json:"occurred_at"`
}

// EventIngestedEntry bills one recorded event. The dedupe key ties the
// charge to exactly one LeadEvent.
func EventIngestedEntry(rec EventRecord) LedgerEntry {
	key := digest(ledgerKeyTuple{
		WorkspaceID: rec.WorkspaceID.String(),
		BillingType: BillingEventIngested,
		Provider:    rec.Provider,
		IdentityID:  uuidString(rec.IdentityID),
		LeadID:      uuidString(rec.LeadID),
		DedupeKey:   rec.DedupeKey,
		OccurredAt:  rec.OccurredAt.UTC().Format(time.RFC3339Nano),
	})
	return LedgerEntry{
		WorkspaceID: rec.WorkspaceID,
		EventType:   BillingEventIngested,
		Units:       EventIngestedUnits,
		Provider:    rec.Provider,
		LeadID:      rec.LeadID,
		IdentityID:  rec.IdentityID,
		OccurredAt:  rec.OccurredAt,
		LedgerKey:   key,
	}
}

// FirstContactMatchEntry bills the first contact-level match of an identity.
// Its key covers only (workspace, provider, identity), so the unique index
// admits a single entry per identity.
func FirstContactMatchEntry(workspaceID uuid.UUID, provider string, identityID, leadID uuid.UUID, occurredAt time.Time) LedgerEntry {
	key := digest(ledgerKeyTuple{
		WorkspaceID: workspaceID.String(),
		BillingType: BillingFirstContactMatch,
		Provider:    provider,
		IdentityID:  identityID.String(),
	})
	return LedgerEntry{
		WorkspaceID: workspaceID,
		EventType:   BillingFirstContactMatch,
		Units:       FirstContactMatchUnits,
		Provider:    provider,
		LeadID:      &leadID,
		IdentityID:  &identityID,
		OccurredAt:  occurredAt,
		LedgerKey:   key,
	}
}

func uuidString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
