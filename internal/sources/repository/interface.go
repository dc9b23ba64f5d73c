package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// WebhookHealth mirrors the webhook_health JSONB column written by ingestion.
type WebhookHealth struct {
	LastReceivedAt *time.Time `json:"last_received_at,omitempty"`
	LastEventType  string     `json:"last_event_type,omitempty"`
	LastError      *string    `json:"last_error"`
	LastErrorAt    *time.Time `json:"last_error_at,omitempty"`
}

// LeadSource is a configured provider integration for one workspace.
// The sealed secret never leaves the repository; HasSecret reports whether one is set.
type LeadSource struct {
	ID                  uuid.UUID
	WorkspaceID         uuid.UUID
	Provider            string
	ProviderAccountID   *string
	IsActive            bool
	ContactLevelEnabled bool
	HasSecret           bool
	AlertEmail          *string
	Health              WebhookHealth
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// CreateParams contains data for creating a lead source.
type CreateParams struct {
	WorkspaceID         uuid.UUID
	Provider            string
	ProviderAccountID   *string
	ContactLevelEnabled bool
	AlertEmail          *string
	SealedSecret        *string
}

// UpdateParams holds a partial update. Nil fields are left unchanged and an
// empty string clears a nullable text column.
type UpdateParams struct {
	ID                  uuid.UUID
	WorkspaceID         uuid.UUID
	ProviderAccountID   *string
	IsActive            *bool
	ContactLevelEnabled *bool
	AlertEmail          *string
}

// Repository defines data access for lead sources.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (LeadSource, error)
	GetByID(ctx context.Context, workspaceID, id uuid.UUID) (LeadSource, error)
	List(ctx context.Context, workspaceID uuid.UUID) ([]LeadSource, error)
	Update(ctx context.Context, params UpdateParams) (LeadSource, error)
	// SetSecret replaces the sealed secret; nil clears it.
	SetSecret(ctx context.Context, workspaceID, id uuid.UUID, sealed *string) (LeadSource, error)
}
