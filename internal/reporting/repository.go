package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"leadsignal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const leadNotFoundMessage = "intent lead not found"

const listLeadsQuery = `
	SELECT l.id, l.identity_id, i.provider, i.external_id, i.display_name,
		l.intent_score, l.status, l.first_seen_at, l.last_activity_at,
		COUNT(*) OVER () AS total
	FROM intent_leads l
	JOIN lead_identities i ON i.id = l.identity_id
	WHERE l.workspace_id = $1
	ORDER BY l.last_activity_at DESC, l.id
	LIMIT $2 OFFSET $3`

const leadExistsQuery = `SELECT EXISTS (SELECT 1 FROM intent_leads WHERE id = $1 AND workspace_id = $2)`

const listLeadEventsQuery = `
	SELECT id, provider, event_type, occurred_at, page_url, payload
	FROM lead_events
	WHERE lead_id = $1 AND workspace_id = $2
	ORDER BY occurred_at DESC, id
	LIMIT $3`

const creditSummaryQuery = `
	SELECT event_type, COUNT(*), COALESCE(SUM(units), 0)
	FROM credit_ledger_entries
	WHERE workspace_id = $1 AND occurred_at >= $2 AND occurred_at < $3
	GROUP BY event_type
	ORDER BY event_type`

// LeadRow is one intent lead with the identity it belongs to.
type LeadRow struct {
	ID             uuid.UUID
	IdentityID     uuid.UUID
	Provider       string
	ExternalID     string
	DisplayName    *string
	IntentScore    int
	Status         string
	FirstSeenAt    time.Time
	LastActivityAt time.Time
}

// EventRow is a recorded lead event. Payload is the sanitized payload.
type EventRow struct {
	ID         uuid.UUID
	Provider   string
	EventType  string
	OccurredAt time.Time
	PageURL    *string
	Payload    json.RawMessage
}

// UsageRow aggregates ledger entries of one billing event type.
type UsageRow struct {
	EventType string
	Entries   int
	Units     int
}

// Reader is the read side used by the reporting handlers.
type Reader interface {
	ListLeads(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]LeadRow, int, error)
	ListLeadEvents(ctx context.Context, workspaceID, leadID uuid.UUID, limit int) ([]EventRow, error)
	CreditSummary(ctx context.Context, workspaceID uuid.UUID, from, to time.Time) ([]UsageRow, error)
}

// Repository implements Reader on Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new reporting repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Reader = (*Repository)(nil)

// ListLeads returns a page of leads ordered by most recent activity, plus the total count.
func (r *Repository) ListLeads(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]LeadRow, int, error) {
	rows, err := r.pool.Query(ctx, listLeadsQuery, workspaceID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list intent leads: %w", err)
	}
	defer rows.Close()

	leads := make([]LeadRow, 0)
	total := 0
	for rows.Next() {
		var lead LeadRow
		if err := rows.Scan(
			&lead.ID, &lead.IdentityID, &lead.Provider, &lead.ExternalID, &lead.DisplayName,
			&lead.IntentScore, &lead.Status, &lead.FirstSeenAt, &lead.LastActivityAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan intent lead: %w", err)
		}
		leads = append(leads, lead)
	}
	return leads, total, rows.Err()
}

// ListLeadEvents returns a lead's events, newest first. An unknown lead is NotFound.
func (r *Repository) ListLeadEvents(ctx context.Context, workspaceID, leadID uuid.UUID, limit int) ([]EventRow, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, leadExistsQuery, leadID, workspaceID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check intent lead: %w", err)
	}
	if !exists {
		return nil, apperr.NotFound(leadNotFoundMessage)
	}

	rows, err := r.pool.Query(ctx, listLeadEventsQuery, leadID, workspaceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list lead events: %w", err)
	}
	defer rows.Close()

	events := make([]EventRow, 0)
	for rows.Next() {
		var ev EventRow
		if err := rows.Scan(&ev.ID, &ev.Provider, &ev.EventType, &ev.OccurredAt, &ev.PageURL, &ev.Payload); err != nil {
			return nil, fmt.Errorf("scan lead event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// CreditSummary sums ledger units per billing event type over [from, to).
func (r *Repository) CreditSummary(ctx context.Context, workspaceID uuid.UUID, from, to time.Time) ([]UsageRow, error) {
	rows, err := r.pool.Query(ctx, creditSummaryQuery, workspaceID, from, to)
	if err != nil {
		return nil, fmt.Errorf("credit summary: %w", err)
	}
	defer rows.Close()

	usage := make([]UsageRow, 0)
	for rows.Next() {
		var u UsageRow
		if err := rows.Scan(&u.EventType, &u.Entries, &u.Units); err != nil {
			return nil, fmt.Errorf("scan credit usage: %w", err)
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}
