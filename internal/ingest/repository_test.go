package ingest

import (
	"strings"
	"testing"
)

func assertFragments(t *testing.T, name, query string, fragments ...string) {
	t.Helper()
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	for _, fragment := range fragments {
		if !strings.Contains(normalized, fragment) {
			t.Fatalf("%s: expected fragment %q in %q", name, fragment, normalized)
		}
	}
}

func TestSourceLookupsOnlyMatchActiveSources(t *testing.T) {
	assertFragments(t, "by account", findSourceByAccountQuery,
		"where provider = $1 and provider_account_id = $2 and is_active",
		"limit 1",
	)
	assertFragments(t, "by workspace", findSourceByWorkspaceQuery,
		"where provider = $1 and workspace_id = $2 and is_active",
	)
}

func TestInsertEventQueryIsIdempotent(t *testing.T) {
	assertFragments(t, "insert event", insertEventQuery,
		"on conflict (dedupe_key) do nothing",
		"returning id",
	)
}

func TestAppendLedgerQueryIsIdempotent(t *testing.T) {
	assertFragments(t, "append ledger", appendLedgerQuery,
		"insert into credit_ledger_entries",
		"on conflict (ledger_key) do nothing",
	)
	if strings.Contains(strings.ToLower(appendLedgerQuery), "do update") {
		t.Fatal("ledger entries are append-only and must never be updated")
	}
}

func TestUpsertLeadQueryClampsScore(t *testing.T) {
	assertFragments(t, "upsert lead", upsertLeadQuery,
		"on conflict (identity_id) do update",
		"intent_score = least(intent_leads.intent_score + $5, $6)",
		"(xmax = 0) as created",
	)
}

func TestUpsertIdentityQueryStripsLiteralsWhenDisabled(t *testing.T) {
	assertFragments(t, "upsert identity", upsertIdentityQuery,
		"on conflict (workspace_id, provider, external_id) do update",
		"else (lead_identities.contact_fields - $8::text[]) || excluded.contact_fields",
		"else null end",
	)
}
