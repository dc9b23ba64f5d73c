package ingest

import (
	"context"
	"errors"
	"fmt"

	"leadsignal_backend/platform/db"
	"leadsignal_backend/platform/secretbox"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sourceColumns = `id, workspace_id, provider, provider_account_id, is_active,
	contact_level_enabled, webhook_secret_encrypted, webhook_health`

const findSourceByAccountQuery = `
	SELECT ` + sourceColumns + `
	FROM lead_sources
	WHERE provider = $1 AND provider_account_id = $2 AND is_active
	ORDER BY created_at
	LIMIT 1`

const findSourceByWorkspaceQuery = `
	SELECT ` + sourceColumns + `
	FROM lead_sources
	WHERE provider = $1 AND workspace_id = $2 AND is_active`

const eventExistsQuery = `SELECT EXISTS (SELECT 1 FROM lead_events WHERE dedupe_key = $1)`

const updateHealthQuery = `
	UPDATE lead_sources
	SET webhook_health = $2, updated_at = now()
	WHERE id = $1`

const upsertIdentityQuery = `
	INSERT INTO lead_identities (workspace_id, provider, external_id, display_name, contact_fields, first_seen_at, last_seen_at)
	VALUES ($1, $2, $3, $4, $5, $6, $6)
	ON CONFLICT (workspace_id, provider, external_id) DO UPDATE SET
		display_name = CASE WHEN $7::boolean
			THEN COALESCE(EXCLUDED.display_name, lead_identities.display_name)
			ELSE NULL END,
		contact_fields = CASE WHEN $7::boolean
			THEN lead_identities.contact_fields || EXCLUDED.contact_fields
			ELSE (lead_identities.contact_fields - $8::text[]) || EXCLUDED.contact_fields END,
		last_seen_at = EXCLUDED.last_seen_at,
		updated_at = now()
	RETURNING id, workspace_id, provider, external_id, display_name, contact_fields, first_seen_at, last_seen_at`

const upsertLeadQuery = `
	INSERT INTO intent_leads (workspace_id, identity_id, intent_score, status, first_seen_at, last_activity_at)
	VALUES ($1, $2, $3, 'new', $4, $4)
	ON CONFLICT (identity_id) DO UPDATE SET
		intent_score = LEAST(intent_leads.intent_score + $5, $6),
		last_activity_at = EXCLUDED.last_activity_at,
		updated_at = now()
	RETURNING id, workspace_id, identity_id, intent_score, status, first_seen_at, last_activity_at, (xmax = 0) AS created`

const insertEventQuery = `
	INSERT INTO lead_events (workspace_id, source_id, identity_id, lead_id, provider, event_type, occurred_at, page_url, dedupe_key, payload)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10)
	ON CONFLICT (dedupe_key) DO NOTHING
	RETURNING id`

const countLedgerQuery = `
	SELECT COUNT(*)
	FROM credit_ledger_entries
	WHERE workspace_id = $1 AND identity_id = $2 AND event_type = $3`

const appendLedgerQuery = `
	INSERT INTO credit_ledger_entries (workspace_id, event_type, units, provider, lead_id, identity_id, occurred_at, ledger_key)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (ledger_key) DO NOTHING`

// Repository is the Postgres Store.
type Repository struct {
	pool *pgxpool.Pool
	box  *secretbox.Box
}

// NewRepository creates a repository that decrypts source secrets with box.
func NewRepository(pool *pgxpool.Pool, box *secretbox.Box) *Repository {
	return &Repository{pool: pool, box: box}
}

func (r *Repository) FindActiveSourceByAccount(ctx context.Context, provider, accountID string) (LeadSource, error) {
	return r.scanSource(r.pool.QueryRow(ctx, findSourceByAccountQuery, provider, accountID))
}

func (r *Repository) FindActiveSourceByWorkspace(ctx context.Context, provider string, workspaceID uuid.UUID) (LeadSource, error) {
	return r.scanSource(r.pool.QueryRow(ctx, findSourceByWorkspaceQuery, provider, workspaceID))
}

func (r *Repository) scanSource(row pgx.Row) (LeadSource, error) {
	var (
		src             LeadSource
		encryptedSecret *string
	)
	err := row.Scan(
		&src.ID, &src.WorkspaceID, &src.Provider, &src.ProviderAccountID, &src.IsActive,
		&src.ContactLevelEnabled, &encryptedSecret, &src.Health,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeadSource{}, ErrSourceNotFound
	}
	if err != nil {
		return LeadSource{}, fmt.Errorf("scan lead source: %w", err)
	}

	if encryptedSecret != nil && *encryptedSecret != "" {
		secret, err := r.box.Open(*encryptedSecret)
		if err != nil {
			return LeadSource{}, fmt.Errorf("open secret for source %s: %w", src.ID, err)
		}
		src.WebhookSecret = secret
	}
	return src, nil
}

func (r *Repository) EventExists(ctx context.Context, dedupeKey string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, eventExistsQuery, dedupeKey).Scan(&exists); err != nil {
		return false, fmt.Errorf("check dedupe key: %w", err)
	}
	return exists, nil
}

func (r *Repository) UpdateWebhookHealth(ctx context.Context, sourceID uuid.UUID, health WebhookHealth) error {
	if _, err := r.pool.Exec(ctx, updateHealthQuery, sourceID, health); err != nil {
		return fmt.Errorf("update webhook health: %w", err)
	}
	return nil
}

func (r *Repository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) UpsertIdentity(ctx context.Context, in IdentityUpsert) (Identity, error) {
	var id Identity
	err := t.tx.QueryRow(ctx, upsertIdentityQuery,
		in.WorkspaceID, in.Provider, in.ExternalID, in.DisplayName, in.ContactFields, in.SeenAt,
		in.ContactLevel, literalContactKeys,
	).Scan(
		&id.ID, &id.WorkspaceID, &id.Provider, &id.ExternalID, &id.DisplayName,
		&id.ContactFields, &id.FirstSeenAt, &id.LastSeenAt,
	)
	if err != nil {
		return Identity{}, fmt.Errorf("upsert identity: %w", err)
	}
	return id, nil
}

func (t *pgTx) UpsertLead(ctx context.Context, in LeadUpsert) (Lead, bool, error) {
	var (
		lead    Lead
		created bool
	)
	err := t.tx.QueryRow(ctx, upsertLeadQuery,
		in.WorkspaceID, in.IdentityID, InitialIntentScore, in.OccurredAt, IntentScoreIncrement, MaxIntentScore,
	).Scan(
		&lead.ID, &lead.WorkspaceID, &lead.IdentityID, &lead.IntentScore, &lead.Status,
		&lead.FirstSeenAt, &lead.LastActivityAt, &created,
	)
	if err != nil {
		return Lead{}, false, fmt.Errorf("upsert lead: %w", err)
	}
	return lead, created, nil
}

// InsertEvent runs inside a savepoint so a failed insert does not abort
// the surrounding transaction.
func (t *pgTx) InsertEvent(ctx context.Context, rec EventRecord) (uuid.UUID, error) {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin event savepoint: %w", err)
	}

	var id uuid.UUID
	err = sp.QueryRow(ctx, insertEventQuery,
		rec.WorkspaceID, rec.SourceID, rec.IdentityID, rec.LeadID, rec.Provider, rec.EventType,
		rec.OccurredAt, rec.PageURL, rec.DedupeKey, rec.Payload,
	).Scan(&id)

	switch {
	case errors.Is(err, pgx.ErrNoRows), db.IsUniqueViolation(err, "lead_events_dedupe_key_key"):
		_ = sp.Rollback(ctx)
		return uuid.Nil, ErrDuplicateEvent
	case err != nil:
		_ = sp.Rollback(ctx)
		return uuid.Nil, fmt.Errorf("insert lead event: %w", err)
	}

	if err := sp.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("release event savepoint: %w", err)
	}
	return id, nil
}

func (t *pgTx) CountLedgerEntries(ctx context.Context, workspaceID, identityID uuid.UUID, billingType string) (int, error) {
	var n int
	if err := t.tx.QueryRow(ctx, countLedgerQuery, workspaceID, identityID, billingType).Scan(&n); err != nil {
		return 0, fmt.Errorf("count ledger entries: %w", err)
	}
	return n, nil
}

func (t *pgTx) AppendLedgerEntry(ctx context.Context, e LedgerEntry) (bool, error) {
	tag, err := t.tx.Exec(ctx, appendLedgerQuery,
		e.WorkspaceID, e.EventType, e.Units, e.Provider, e.LeadID, e.IdentityID, e.OccurredAt, e.LedgerKey,
	)
	if err != nil {
		return false, fmt.Errorf("append ledger entry: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

var _ Store = (*Repository)(nil)
