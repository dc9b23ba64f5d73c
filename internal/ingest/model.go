// Package ingest implements the webhook ingestion pipeline: it verifies,
// sanitizes and deduplicates provider deliveries, resolves them to a visitor
// identity and lead, records the event and bills the workspace.
package ingest

import (
	"time"

	"github.com/google/uuid"
)

// Lead statuses. The pipeline only ever writes LeadStatusNew.
const (
	LeadStatusNew          = "new"
	LeadStatusEngaged      = "engaged"
	LeadStatusQualified    = "qualified"
	LeadStatusDisqualified = "disqualified"
)

// LeadSource is a configured (workspace, provider) webhook integration.
// WebhookSecret holds the decrypted secret and is empty for unsigned sources.
type LeadSource struct {
	ID                  uuid.UUID
	WorkspaceID         uuid.UUID
	Provider            string
	ProviderAccountID   *string
	IsActive            bool
	ContactLevelEnabled bool
	WebhookSecret       string
	Health              WebhookHealth
}

// WebhookHealth is the delivery telemetry stored on a source.
type WebhookHealth struct {
	LastReceivedAt *time.Time `json:"last_received_at,omitempty"`
	LastEventType  string     `json:"last_event_type,omitempty"`
	LastError      *string    `json:"last_error"`
	LastErrorAt    *time.Time `json:"last_error_at,omitempty"`
}

// Identity is a durable visitor handle, unique per (workspace, provider, external id).
type Identity struct {
	ID            uuid.UUID
	WorkspaceID   uuid.UUID
	Provider      string
	ExternalID    string
	DisplayName   *string
	ContactFields map[string]any
	FirstSeenAt   time.Time
	LastSeenAt    time.Time
}

// Lead is the intent aggregate for one identity.
type Lead struct {
	ID             uuid.UUID
	WorkspaceID    uuid.UUID
	IdentityID     uuid.UUID
	IntentScore    int
	Status         string
	FirstSeenAt    time.Time
	LastActivityAt time.Time
}

// IdentityUpsert is the single conflict-resolving write for an identity.
// ContactLevel mirrors the source policy and decides whether literal
// contact keys left from an earlier enabled period are stripped.
type IdentityUpsert struct {
	WorkspaceID   uuid.UUID
	Provider      string
	ExternalID    string
	DisplayName   *string
	ContactFields map[string]any
	ContactLevel  bool
	SeenAt        time.Time
}

// LeadUpsert finds-or-creates the lead for an identity.
type LeadUpsert struct {
	WorkspaceID uuid.UUID
	IdentityID  uuid.UUID
	OccurredAt  time.Time
}

// EventRecord is one immutable LeadEvent row.
type EventRecord struct {
	WorkspaceID uuid.UUID
	SourceID    uuid.UUID
	IdentityID  *uuid.UUID
	LeadID      *uuid.UUID
	Provider    string
	EventType   string
	OccurredAt  time.Time
	PageURL     string
	DedupeKey   string
	Payload     map[string]any
}

// LedgerEntry is one immutable billing fact.
type LedgerEntry struct {
	WorkspaceID uuid.UUID
	EventType   string
	Units       int
	Provider    string
	LeadID      *uuid.UUID
	IdentityID  *uuid.UUID
	OccurredAt  time.Time
	LedgerKey   string
}

// IngestRequest is one inbound delivery as seen by the service.
type IngestRequest struct {
	Provider    string
	Body        []byte
	Signature   string
	WorkspaceID string
	ReceivedAt  time.Time
}

// IngestResult is what the handler reports back to the sender.
type IngestResult struct {
	EventID      string
	LeadID       *uuid.UUID
	Deduplicated bool
}
