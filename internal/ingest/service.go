package ingest

import (
	"context"
	"errors"
	"strings"
	"time"

	"leadsignal_backend/internal/events"
	"leadsignal_backend/platform/apperr"
	"leadsignal_backend/platform/logger"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	msgInvalidJSON      = "Invalid JSON payload"
	msgUnknownWorkspace = "Unknown workspace"
	msgInvalidSignature = "Invalid signature"
	msgIngestFailed     = "failed to ingest event"

	healthErrEventNotRecorded = "event could not be recorded"

	opIngest = "ingest.Ingest"
)

// Service runs the ingestion pipeline for one delivery at a time and holds
// no per-request state, so any number of calls may run concurrently.
type Service struct {
	store       Store
	bus         events.Bus
	log         *logger.Logger
	tracer      trace.Tracer
	phoneRegion string
	now         func() time.Time
}

// NewService creates the pipeline service.
func NewService(store Store, bus events.Bus, phoneRegion string, log *logger.Logger) *Service {
	return &Service{
		store:       store,
		bus:         bus,
		log:         log,
		tracer:      otel.Tracer("leadsignal_backend/internal/ingest"),
		phoneRegion: phoneRegion,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// outcome collects what the transactional stages produced.
type outcome struct {
	identity       *Identity
	lead           *Lead
	leadCreated    bool
	eventRecorded  bool
	recordErr      error
	contactMatched bool
}

// Ingest processes one webhook delivery end to end.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (IngestResult, error) {
	ctx, span := s.tracer.Start(ctx, opIngest, trace.WithAttributes(attribute.String("provider", req.Provider)))
	defer span.End()

	receivedAt := req.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = s.now()
	}

	env, err := ParseEnvelope(req.Body, receivedAt)
	if err != nil {
		return IngestResult{}, s.fail(span, apperr.Wrap(apperr.KindBadRequest, msgInvalidJSON, err).WithOp(opIngest))
	}

	source, err := s.resolveSource(ctx, req.Provider, env.AccountID, req.WorkspaceID)
	if err != nil {
		return IngestResult{}, s.fail(span, err)
	}
	span.SetAttributes(attribute.String("workspace_id", source.WorkspaceID.String()))

	if !VerifySignature(req.Body, req.Signature, source.WebhookSecret) {
		return IngestResult{}, s.fail(span, apperr.Unauthorized(msgInvalidSignature).WithOp(opIngest))
	}

	dedupeKey := EventFingerprint(source.WorkspaceID, source.Provider, env)
	log := s.log.With("workspaceId", source.WorkspaceID, "sourceId", source.ID, "provider", source.Provider)

	exists, err := s.store.EventExists(ctx, dedupeKey)
	if err != nil {
		return IngestResult{}, s.fail(span, apperr.Wrap(apperr.KindInternal, msgIngestFailed, err).WithOp(opIngest))
	}
	if exists {
		return s.deduplicated(ctx, span, source, env)
	}

	identityIn := BuildIdentityUpsert(source, env, s.phoneRegion)
	rec := EventRecord{
		WorkspaceID: source.WorkspaceID,
		SourceID:    source.ID,
		Provider:    source.Provider,
		EventType:   env.EventType,
		OccurredAt:  env.OccurredAt,
		PageURL:     env.PageURL,
		DedupeKey:   dedupeKey,
		Payload:     env.Payload,
	}

	var out outcome
	err = s.store.InTx(ctx, func(tx Tx) error {
		out = outcome{}
		return s.applyWrites(ctx, tx, source, env, identityIn, &rec, &out)
	})
	if errors.Is(err, ErrDuplicateEvent) {
		return s.deduplicated(ctx, span, source, env)
	}
	if err != nil {
		log.Error("ingest: pipeline write failed", "error", err, "eventType", env.EventType)
		return IngestResult{}, s.fail(span, apperr.Wrap(apperr.KindInternal, msgIngestFailed, err).WithOp(opIngest))
	}

	if out.recordErr != nil {
		log.Error("ingest: failed to record lead event", "error", out.recordErr, "dedupeKey", dedupeKey)
		span.RecordError(out.recordErr)
	}

	if err := s.reportHealth(ctx, source, env.EventType, out.recordErr); err != nil {
		return IngestResult{}, s.fail(span, err)
	}

	s.publish(ctx, source, env, dedupeKey, out)

	result := IngestResult{EventID: dedupeKey}
	if out.lead != nil {
		leadID := out.lead.ID
		result.LeadID = &leadID
	}
	span.SetAttributes(attribute.Bool("deduplicated", false), attribute.Bool("event_recorded", out.eventRecorded))
	return result, nil
}

// applyWrites runs identity, lead, event and billing stages in one transaction.
func (s *Service) applyWrites(ctx context.Context, tx Tx, source LeadSource, env Envelope, identityIn *IdentityUpsert, rec *EventRecord, out *outcome) error {
	if identityIn != nil {
		identity, err := tx.UpsertIdentity(ctx, *identityIn)
		if err != nil {
			return err
		}
		lead, created, err := tx.UpsertLead(ctx, LeadUpsert{
			WorkspaceID: source.WorkspaceID,
			IdentityID:  identity.ID,
			OccurredAt:  env.OccurredAt,
		})
		if err != nil {
			return err
		}
		out.identity, out.lead, out.leadCreated = &identity, &lead, created
		rec.IdentityID, rec.LeadID = &identity.ID, &lead.ID
	}

	if _, err := tx.InsertEvent(ctx, *rec); err != nil {
		if errors.Is(err, ErrDuplicateEvent) {
			return err
		}
		out.recordErr = err
	} else {
		out.eventRecorded = true
		if _, err := tx.AppendLedgerEntry(ctx, EventIngestedEntry(*rec)); err != nil {
			return err
		}
	}

	if !source.ContactLevelEnabled || !env.Contact.HasIdentifier() || out.identity == nil {
		return nil
	}

	prior, err := tx.CountLedgerEntries(ctx, source.WorkspaceID, out.identity.ID, BillingFirstContactMatch)
	if err != nil {
		return err
	}
	if prior > 0 {
		return nil
	}
	inserted, err := tx.AppendLedgerEntry(ctx, FirstContactMatchEntry(source.WorkspaceID, source.Provider, out.identity.ID, out.lead.ID, env.OccurredAt))
	if err != nil {
		return err
	}
	out.contactMatched = inserted
	return nil
}

func (s *Service) resolveSource(ctx context.Context, provider, accountID, workspaceParam string) (LeadSource, error) {
	if accountID != "" {
		source, err := s.store.FindActiveSourceByAccount(ctx, provider, accountID)
		if err == nil {
			return source, nil
		}
		if !errors.Is(err, ErrSourceNotFound) {
			return LeadSource{}, apperr.Wrap(apperr.KindInternal, msgIngestFailed, err).WithOp(opIngest)
		}
	}

	workspaceID, err := uuid.Parse(strings.TrimSpace(workspaceParam))
	if err != nil {
		return LeadSource{}, apperr.BadRequest(msgUnknownWorkspace).WithOp(opIngest)
	}

	source, err := s.store.FindActiveSourceByWorkspace(ctx, provider, workspaceID)
	if errors.Is(err, ErrSourceNotFound) {
		return LeadSource{}, apperr.BadRequest(msgUnknownWorkspace).WithOp(opIngest)
	}
	if err != nil {
		return LeadSource{}, apperr.Wrap(apperr.KindInternal, msgIngestFailed, err).WithOp(opIngest)
	}
	return source, nil
}

func (s *Service) deduplicated(ctx context.Context, span trace.Span, source LeadSource, env Envelope) (IngestResult, error) {
	span.SetAttributes(attribute.Bool("deduplicated", true))
	if err := s.reportHealth(ctx, source, env.EventType, nil); err != nil {
		return IngestResult{}, s.fail(span, err)
	}
	return IngestResult{Deduplicated: true}, nil
}

// reportHealth records that the sender was heard from. recordErr, when set,
// is kept as last_error; otherwise any earlier error is cleared.
func (s *Service) reportHealth(ctx context.Context, source LeadSource, eventType string, recordErr error) error {
	now := s.now()
	health := WebhookHealth{
		LastReceivedAt: &now,
		LastEventType:  eventType,
	}
	if recordErr != nil {
		msg := healthErrEventNotRecorded
		health.LastError = &msg
		health.LastErrorAt = &now
	}

	if err := s.store.UpdateWebhookHealth(ctx, source.ID, health); err != nil {
		s.log.Error("ingest: failed to update webhook health", "error", err, "sourceId", source.ID)
		return apperr.Wrap(apperr.KindInternal, msgIngestFailed, err).WithOp(opIngest)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, source LeadSource, env Envelope, dedupeKey string, out outcome) {
	if s.bus == nil || (!out.eventRecorded && !out.contactMatched) {
		return
	}

	var identityID, leadID *uuid.UUID
	score := 0
	if out.identity != nil {
		identityID = &out.identity.ID
	}
	if out.lead != nil {
		leadID = &out.lead.ID
		score = out.lead.IntentScore
	}

	if out.eventRecorded {
		s.bus.Publish(ctx, events.IntentEventIngested{
			BaseEvent:   events.NewBaseEvent(),
			WorkspaceID: source.WorkspaceID,
			SourceID:    source.ID,
			Provider:    source.Provider,
			EventType:   env.EventType,
			EventKey:    dedupeKey,
			IdentityID:  identityID,
			LeadID:      leadID,
			IntentScore: score,
			LeadCreated: out.leadCreated,
		})
	}

	if out.contactMatched {
		s.bus.Publish(ctx, events.LeadContactMatched{
			BaseEvent:   events.NewBaseEvent(),
			WorkspaceID: source.WorkspaceID,
			SourceID:    source.ID,
			Provider:    source.Provider,
			IdentityID:  out.identity.ID,
			LeadID:      out.lead.ID,
			IntentScore: score,
		})
	}
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
