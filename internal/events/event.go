// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"leadsignal_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Ingest Domain Events
// =============================================================================

// IntentEventIngested is published after a webhook delivery was recorded
// as a new LeadEvent. It carries ids only, never contact data.
type IntentEventIngested struct {
	BaseEvent
	WorkspaceID uuid.UUID  `json:"workspaceId"`
	SourceID    uuid.UUID  `json:"sourceId"`
	Provider    string     `json:"provider"`
	EventType   string     `json:"eventType"`
	EventKey    string     `json:"eventKey"`
	IdentityID  *uuid.UUID `json:"identityId,omitempty"`
	LeadID      *uuid.UUID `json:"leadId,omitempty"`
	IntentScore int        `json:"intentScore"`
	LeadCreated bool       `json:"leadCreated"`
}

func (e IntentEventIngested) EventName() string { return "ingest.event.ingested" }

// LeadContactMatched is published the first time an identity was matched
// to contact-level data under an enabled policy and billed for it.
type LeadContactMatched struct {
	BaseEvent
	WorkspaceID uuid.UUID `json:"workspaceId"`
	SourceID    uuid.UUID `json:"sourceId"`
	Provider    string    `json:"provider"`
	IdentityID  uuid.UUID `json:"identityId"`
	LeadID      uuid.UUID `json:"leadId"`
	IntentScore int       `json:"intentScore"`
}

func (e LeadContactMatched) EventName() string { return "ingest.lead.contact_matched" }

// =============================================================================
// Source Configuration Events
// =============================================================================

// LeadSourceSecretRotated is published when a source's signing secret changes.
type LeadSourceSecretRotated struct {
	BaseEvent
	WorkspaceID uuid.UUID `json:"workspaceId"`
	SourceID    uuid.UUID `json:"sourceId"`
	Provider    string    `json:"provider"`
	Cleared     bool      `json:"cleared"`
}

func (e LeadSourceSecretRotated) EventName() string { return "sources.secret.rotated" }
