package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"leadsignal_backend/internal/events"
	"leadsignal_backend/internal/sources/repository"
	"leadsignal_backend/internal/sources/transport"
	"leadsignal_backend/platform/apperr"
	"leadsignal_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	secretPrefix     = "whsec_"
	secretByteLength = 32

	msgSecretFailed = "failed to generate webhook secret"
)

// Sealer encrypts webhook secrets before they are stored.
type Sealer interface {
	Seal(plaintext string) (string, error)
}

// Service provides business logic for lead source configuration.
type Service struct {
	repo     repository.Repository
	sealer   Sealer
	eventBus events.Bus
	log      *logger.Logger
}

// New creates a new lead source service.
func New(repo repository.Repository, sealer Sealer, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, sealer: sealer, eventBus: eventBus, log: log}
}

// GenerateWebhookSecret returns a new random signing secret.
func GenerateWebhookSecret() (string, error) {
	b := make([]byte, secretByteLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return secretPrefix + hex.EncodeToString(b), nil
}

// Create registers a provider for the workspace.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, req transport.CreateLeadSourceRequest) (transport.LeadSourceWithSecretResponse, error) {
	params := repository.CreateParams{
		WorkspaceID:         tenantID,
		Provider:            strings.ToLower(strings.TrimSpace(req.Provider)),
		ProviderAccountID:   trimmedOrNil(req.ProviderAccountID),
		ContactLevelEnabled: req.ContactLevelEnabled,
		AlertEmail:          trimmedOrNil(req.AlertEmail),
	}

	var plaintext string
	if req.GenerateSecret {
		secret, sealed, err := s.newSealedSecret()
		if err != nil {
			return transport.LeadSourceWithSecretResponse{}, err
		}
		plaintext = secret
		params.SealedSecret = &sealed
	}

	src, err := s.repo.Create(ctx, params)
	if err != nil {
		return transport.LeadSourceWithSecretResponse{}, err
	}

	s.log.Info("lead source created", "id", src.ID, "provider", src.Provider, "workspaceId", tenantID)
	return transport.LeadSourceWithSecretResponse{
		LeadSourceResponse: toResponse(src),
		WebhookSecret:      plaintext,
	}, nil
}

// List returns the workspace's lead sources.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]transport.LeadSourceResponse, error) {
	sources, err := s.repo.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	result := make([]transport.LeadSourceResponse, len(sources))
	for i, src := range sources {
		result[i] = toResponse(src)
	}
	return result, nil
}

// Get returns one lead source with its webhook health.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (transport.LeadSourceResponse, error) {
	src, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return transport.LeadSourceResponse{}, err
	}
	return toResponse(src), nil
}

// Update applies a partial update. Disabling contact-level data takes effect
// on the next delivery, which strips stored literal contact fields.
func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, req transport.UpdateLeadSourceRequest) (transport.LeadSourceResponse, error) {
	src, err := s.repo.Update(ctx, repository.UpdateParams{
		ID:                  id,
		WorkspaceID:         tenantID,
		ProviderAccountID:   trimmed(req.ProviderAccountID),
		IsActive:            req.IsActive,
		ContactLevelEnabled: req.ContactLevelEnabled,
		AlertEmail:          trimmed(req.AlertEmail),
	})
	if err != nil {
		return transport.LeadSourceResponse{}, err
	}

	s.log.Info("lead source updated", "id", src.ID, "isActive", src.IsActive, "contactLevelEnabled", src.ContactLevelEnabled)
	return toResponse(src), nil
}

// RotateSecret replaces the signing secret and returns the new plaintext once.
func (s *Service) RotateSecret(ctx context.Context, tenantID, id uuid.UUID) (transport.LeadSourceWithSecretResponse, error) {
	secret, sealed, err := s.newSealedSecret()
	if err != nil {
		return transport.LeadSourceWithSecretResponse{}, err
	}

	src, err := s.repo.SetSecret(ctx, tenantID, id, &sealed)
	if err != nil {
		return transport.LeadSourceWithSecretResponse{}, err
	}

	s.publishRotation(ctx, src, false)
	return transport.LeadSourceWithSecretResponse{
		LeadSourceResponse: toResponse(src),
		WebhookSecret:      secret,
	}, nil
}

// ClearSecret removes the signing secret. Deliveries for the source are then
// accepted without signature verification.
func (s *Service) ClearSecret(ctx context.Context, tenantID, id uuid.UUID) (transport.LeadSourceResponse, error) {
	src, err := s.repo.SetSecret(ctx, tenantID, id, nil)
	if err != nil {
		return transport.LeadSourceResponse{}, err
	}

	s.publishRotation(ctx, src, true)
	return toResponse(src), nil
}

func (s *Service) newSealedSecret() (plaintext, sealed string, err error) {
	plaintext, err = GenerateWebhookSecret()
	if err != nil {
		return "", "", apperr.Wrap(apperr.KindInternal, msgSecretFailed, err)
	}
	sealed, err = s.sealer.Seal(plaintext)
	if err != nil {
		return "", "", apperr.Wrap(apperr.KindInternal, msgSecretFailed, fmt.Errorf("seal: %w", err))
	}
	return plaintext, sealed, nil
}

func (s *Service) publishRotation(ctx context.Context, src repository.LeadSource, cleared bool) {
	s.log.Info("lead source secret changed", "id", src.ID, "provider", src.Provider, "cleared", cleared)
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(ctx, events.LeadSourceSecretRotated{
		BaseEvent:   events.NewBaseEvent(),
		WorkspaceID: src.WorkspaceID,
		SourceID:    src.ID,
		Provider:    src.Provider,
		Cleared:     cleared,
	})
}

func toResponse(src repository.LeadSource) transport.LeadSourceResponse {
	return transport.LeadSourceResponse{
		ID:                  src.ID,
		Provider:            src.Provider,
		ProviderAccountID:   src.ProviderAccountID,
		IsActive:            src.IsActive,
		ContactLevelEnabled: src.ContactLevelEnabled,
		HasSecret:           src.HasSecret,
		AlertEmail:          src.AlertEmail,
		WebhookHealth: transport.WebhookHealthResponse{
			LastReceivedAt: src.Health.LastReceivedAt,
			LastEventType:  src.Health.LastEventType,
			LastError:      src.Health.LastError,
			LastErrorAt:    src.Health.LastErrorAt,
		},
		CreatedAt: src.CreatedAt.Format(time.RFC3339),
		UpdatedAt: src.UpdatedAt.Format(time.RFC3339),
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func trimmedOrNil(s *string) *string {
	v := trimmed(s)
	if v == nil || *v == "" {
		return nil
	}
	return v
}
