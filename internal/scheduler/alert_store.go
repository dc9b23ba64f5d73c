package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadsignal_backend/internal/email"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrAlertTargetNotFound = errors.New("lead alert target not found")

// AlertTarget is where and what to alert for a lead.
type AlertTarget struct {
	AlertEmail string
	Alert      email.LeadAlert
}

// AlertStore loads alert targets.
type AlertStore interface {
	LoadLeadAlert(ctx context.Context, workspaceID, sourceID, leadID uuid.UUID) (AlertTarget, error)
}

const loadLeadAlertQuery = `
	SELECT COALESCE(s.alert_email, ''), s.provider, l.intent_score, l.last_activity_at, i.external_id
	FROM lead_sources s
	JOIN intent_leads l ON l.workspace_id = s.workspace_id
	JOIN lead_identities i ON i.id = l.identity_id
	WHERE s.id = $1 AND s.workspace_id = $2 AND l.id = $3 AND s.is_active`

type pgAlertStore struct {
	pool *pgxpool.Pool
}

func newAlertStore(pool *pgxpool.Pool) *pgAlertStore {
	return &pgAlertStore{pool: pool}
}

func (s *pgAlertStore) LoadLeadAlert(ctx context.Context, workspaceID, sourceID, leadID uuid.UUID) (AlertTarget, error) {
	var (
		target     AlertTarget
		lastSeenAt time.Time
	)
	err := s.pool.QueryRow(ctx, loadLeadAlertQuery, sourceID, workspaceID, leadID).Scan(
		&target.AlertEmail, &target.Alert.Provider, &target.Alert.IntentScore, &lastSeenAt, &target.Alert.ExternalID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return AlertTarget{}, ErrAlertTargetNotFound
	}
	if err != nil {
		return AlertTarget{}, fmt.Errorf("load lead alert: %w", err)
	}

	target.Alert.WorkspaceID = workspaceID
	target.Alert.LeadID = leadID
	target.Alert.LastSeenAt = lastSeenAt
	return target, nil
}
