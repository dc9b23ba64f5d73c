package ingest

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"leadsignal_backend/internal/events"

	"github.com/google/uuid"
)

// memStore emulates the Postgres schema's unique constraints and upsert rules.
type memStore struct {
	mu sync.Mutex

	sources []LeadSource
	state   memState
	health  map[uuid.UUID]WebhookHealth

	healthUpdates   int
	hideExisting    bool
	failEventInsert error
	failHealth      error
	failLedger      error
}

type memState struct {
	identities map[string]Identity
	leads      map[uuid.UUID]Lead
	events     map[string]EventRecord
	ledger     map[string]LedgerEntry
}

func newMemStore(sources ...LeadSource) *memStore {
	return &memStore{
		sources: sources,
		state: memState{
			identities: map[string]Identity{},
			leads:      map[uuid.UUID]Lead{},
			events:     map[string]EventRecord{},
			ledger:     map[string]LedgerEntry{},
		},
		health: map[uuid.UUID]WebhookHealth{},
	}
}

func (s memState) clone() memState {
	return memState{
		identities: maps.Clone(s.identities),
		leads:      maps.Clone(s.leads),
		events:     maps.Clone(s.events),
		ledger:     maps.Clone(s.ledger),
	}
}

func identityKey(workspaceID uuid.UUID, provider, externalID string) string {
	return workspaceID.String() + "|" + provider + "|" + externalID
}

func (m *memStore) FindActiveSourceByAccount(_ context.Context, provider, accountID string) (LeadSource, error) {
	for _, src := range m.sources {
		if src.IsActive && src.Provider == provider && src.ProviderAccountID != nil && *src.ProviderAccountID == accountID {
			return src, nil
		}
	}
	return LeadSource{}, ErrSourceNotFound
}

func (m *memStore) FindActiveSourceByWorkspace(_ context.Context, provider string, workspaceID uuid.UUID) (LeadSource, error) {
	for _, src := range m.sources {
		if src.IsActive && src.Provider == provider && src.WorkspaceID == workspaceID {
			return src, nil
		}
	}
	return LeadSource{}, ErrSourceNotFound
}

func (m *memStore) EventExists(_ context.Context, dedupeKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hideExisting {
		return false, nil
	}
	_, ok := m.state.events[dedupeKey]
	return ok, nil
}

func (m *memStore) UpdateWebhookHealth(_ context.Context, sourceID uuid.UUID, health WebhookHealth) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failHealth != nil {
		return m.failHealth
	}
	m.health[sourceID] = health
	m.healthUpdates++
	return nil
}

func (m *memStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{store: m, state: m.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	m.state = tx.state
	return nil
}

type memTx struct {
	store *memStore
	state memState
}

func (t *memTx) UpsertIdentity(_ context.Context, in IdentityUpsert) (Identity, error) {
	key := identityKey(in.WorkspaceID, in.Provider, in.ExternalID)
	existing, ok := t.state.identities[key]
	if !ok {
		id := Identity{
			ID:            uuid.New(),
			WorkspaceID:   in.WorkspaceID,
			Provider:      in.Provider,
			ExternalID:    in.ExternalID,
			DisplayName:   in.DisplayName,
			ContactFields: maps.Clone(in.ContactFields),
			FirstSeenAt:   in.SeenAt,
			LastSeenAt:    in.SeenAt,
		}
		t.state.identities[key] = id
		return id, nil
	}

	fields := maps.Clone(existing.ContactFields)
	if !in.ContactLevel {
		for _, k := range literalContactKeys {
			delete(fields, k)
		}
		existing.DisplayName = nil
	} else if in.DisplayName != nil {
		existing.DisplayName = in.DisplayName
	}
	maps.Copy(fields, in.ContactFields)
	existing.ContactFields = fields
	existing.LastSeenAt = in.SeenAt
	t.state.identities[key] = existing
	return existing, nil
}

func (t *memTx) UpsertLead(_ context.Context, in LeadUpsert) (Lead, bool, error) {
	lead, ok := t.state.leads[in.IdentityID]
	if !ok {
		lead = Lead{
			ID:             uuid.New(),
			WorkspaceID:    in.WorkspaceID,
			IdentityID:     in.IdentityID,
			IntentScore:    NextIntentScore(0, false),
			Status:         LeadStatusNew,
			FirstSeenAt:    in.OccurredAt,
			LastActivityAt: in.OccurredAt,
		}
		t.state.leads[in.IdentityID] = lead
		return lead, true, nil
	}
	lead.IntentScore = NextIntentScore(lead.IntentScore, true)
	lead.LastActivityAt = in.OccurredAt
	t.state.leads[in.IdentityID] = lead
	return lead, false, nil
}

func (t *memTx) InsertEvent(_ context.Context, rec EventRecord) (uuid.UUID, error) {
	if _, dup := t.state.events[rec.DedupeKey]; dup {
		return uuid.Nil, ErrDuplicateEvent
	}
	if t.store.failEventInsert != nil {
		return uuid.Nil, t.store.failEventInsert
	}
	t.state.events[rec.DedupeKey] = rec
	return uuid.New(), nil
}

func (t *memTx) CountLedgerEntries(_ context.Context, workspaceID, identityID uuid.UUID, billingType string) (int, error) {
	n := 0
	for _, e := range t.state.ledger {
		if e.WorkspaceID == workspaceID && e.IdentityID != nil && *e.IdentityID == identityID && e.EventType == billingType {
			n++
		}
	}
	return n, nil
}

func (t *memTx) AppendLedgerEntry(_ context.Context, e LedgerEntry) (bool, error) {
	if t.store.failLedger != nil {
		return false, t.store.failLedger
	}
	if _, dup := t.state.ledger[e.LedgerKey]; dup {
		return false, nil
	}
	t.state.ledger[e.LedgerKey] = e
	return true, nil
}

func (m *memStore) identities() []Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Collect(maps.Values(m.state.identities))
}

func (m *memStore) leads() []Lead {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Collect(maps.Values(m.state.leads))
}

func (m *memStore) events() []EventRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Collect(maps.Values(m.state.events))
}

func (m *memStore) ledgerUnits(billingType string) (entries, units int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.state.ledger {
		if e.EventType == billingType {
			entries++
			units += e.Units
		}
	}
	return entries, units
}

// recordingBus captures published events synchronously.
type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) count(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.published {
		if e.EventName() == name {
			n++
		}
	}
	return n
}

var _ Store = (*memStore)(nil)
var _ events.Bus = (*recordingBus)(nil)

var errTestStore = errors.New("connection reset by peer")
