package ingest

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrSourceNotFound = errors.New("lead source not found")
	ErrDuplicateEvent = errors.New("lead event already recorded")
)

// Store is the persistence port of the pipeline.
type Store interface {
	FindActiveSourceByAccount(ctx context.Context, provider, accountID string) (LeadSource, error)
	FindActiveSourceByWorkspace(ctx context.Context, provider string, workspaceID uuid.UUID) (LeadSource, error)
	EventExists(ctx context.Context, dedupeKey string) (bool, error)
	UpdateWebhookHealth(ctx context.Context, sourceID uuid.UUID, health WebhookHealth) error
	// InTx runs fn in one transaction. fn returning an error rolls everything back.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx holds the writes of stages that must commit or roll back together.
type Tx interface {
	UpsertIdentity(ctx context.Context, in IdentityUpsert) (Identity, error)
	// UpsertLead reports created=true when the lead did not exist yet.
	UpsertLead(ctx context.Context, in LeadUpsert) (lead Lead, created bool, err error)
	// InsertEvent returns ErrDuplicateEvent when the dedupe key is taken.
	// Any other error leaves the transaction usable.
	InsertEvent(ctx context.Context, rec EventRecord) (uuid.UUID, error)
	CountLedgerEntries(ctx context.Context, workspaceID, identityID uuid.UUID, billingType string) (int, error)
	// AppendLedgerEntry reports inserted=false when the ledger key already exists.
	AppendLedgerEntry(ctx context.Context, entry LedgerEntry) (inserted bool, err error)
}
