package repository

import (
	"context"
	"errors"
	"fmt"

	"leadsignal_backend/platform/apperr"
	"leadsignal_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	sourceNotFoundMessage   = "lead source not found"
	sourceConflictMessage   = "a lead source for this provider already exists"
	uniqueWorkspaceProvider = "lead_sources_workspace_provider_key"
)

const sourceColumns = `id, workspace_id, provider, provider_account_id, is_active, contact_level_enabled,
	webhook_secret_encrypted IS NOT NULL AS has_secret, alert_email, webhook_health, created_at, updated_at`

const createSourceQuery = `
	INSERT INTO lead_sources (workspace_id, provider, provider_account_id, contact_level_enabled, alert_email, webhook_secret_encrypted)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING ` + sourceColumns

const getSourceQuery = `
	SELECT ` + sourceColumns + `
	FROM lead_sources
	WHERE id = $1 AND workspace_id = $2`

const listSourcesQuery = `
	SELECT ` + sourceColumns + `
	FROM lead_sources
	WHERE workspace_id = $1
	ORDER BY created_at DESC`

const updateSourceQuery = `
	UPDATE lead_sources
	SET provider_account_id = NULLIF(COALESCE($3, provider_account_id), ''),
		is_active = COALESCE($4, is_active),
		contact_level_enabled = COALESCE($5, contact_level_enabled),
		alert_email = NULLIF(COALESCE($6, alert_email), ''),
		updated_at = now()
	WHERE id = $1 AND workspace_id = $2
	RETURNING ` + sourceColumns

const setSecretQuery = `
	UPDATE lead_sources
	SET webhook_secret_encrypted = $3, updated_at = now()
	WHERE id = $1 AND workspace_id = $2
	RETURNING ` + sourceColumns

// Repo implements Repository on Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new lead source repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Create inserts a lead source. A second source for the same provider in a
// workspace is a conflict.
func (r *Repo) Create(ctx context.Context, params CreateParams) (LeadSource, error) {
	src, err := scanSource(r.pool.QueryRow(ctx, createSourceQuery,
		params.WorkspaceID, params.Provider, params.ProviderAccountID,
		params.ContactLevelEnabled, params.AlertEmail, params.SealedSecret,
	))
	if db.IsUniqueViolation(err, uniqueWorkspaceProvider) {
		return LeadSource{}, apperr.Conflict(sourceConflictMessage)
	}
	if err != nil {
		return LeadSource{}, fmt.Errorf("create lead source: %w", err)
	}
	return src, nil
}

// GetByID retrieves a lead source scoped to the workspace.
func (r *Repo) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (LeadSource, error) {
	src, err := scanSource(r.pool.QueryRow(ctx, getSourceQuery, id, workspaceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return LeadSource{}, apperr.NotFound(sourceNotFoundMessage)
	}
	if err != nil {
		return LeadSource{}, fmt.Errorf("get lead source: %w", err)
	}
	return src, nil
}

// List returns all lead sources of a workspace, newest first.
func (r *Repo) List(ctx context.Context, workspaceID uuid.UUID) ([]LeadSource, error) {
	rows, err := r.pool.Query(ctx, listSourcesQuery, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list lead sources: %w", err)
	}
	defer rows.Close()

	sources := make([]LeadSource, 0)
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// Update applies a partial update.
func (r *Repo) Update(ctx context.Context, params UpdateParams) (LeadSource, error) {
	src, err := scanSource(r.pool.QueryRow(ctx, updateSourceQuery,
		params.ID, params.WorkspaceID, params.ProviderAccountID,
		params.IsActive, params.ContactLevelEnabled, params.AlertEmail,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return LeadSource{}, apperr.NotFound(sourceNotFoundMessage)
	}
	if err != nil {
		return LeadSource{}, fmt.Errorf("update lead source: %w", err)
	}
	return src, nil
}

// SetSecret stores a sealed secret, or clears it when sealed is nil.
func (r *Repo) SetSecret(ctx context.Context, workspaceID, id uuid.UUID, sealed *string) (LeadSource, error) {
	src, err := scanSource(r.pool.QueryRow(ctx, setSecretQuery, id, workspaceID, sealed))
	if errors.Is(err, pgx.ErrNoRows) {
		return LeadSource{}, apperr.NotFound(sourceNotFoundMessage)
	}
	if err != nil {
		return LeadSource{}, fmt.Errorf("set lead source secret: %w", err)
	}
	return src, nil
}

func scanSource(row pgx.Row) (LeadSource, error) {
	var src LeadSource
	err := row.Scan(
		&src.ID, &src.WorkspaceID, &src.Provider, &src.ProviderAccountID, &src.IsActive,
		&src.ContactLevelEnabled, &src.HasSecret, &src.AlertEmail, &src.Health,
		&src.CreatedAt, &src.UpdatedAt,
	)
	return src, err
}
