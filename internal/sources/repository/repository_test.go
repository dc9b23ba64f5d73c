package repository

import (
	"strings"
	"testing"
)

func TestSourceQueriesAreWorkspaceScoped(t *testing.T) {
	queries := map[string]string{
		"get":        getSourceQuery,
		"update":     updateSourceQuery,
		"set secret": setSecretQuery,
	}

	for name, query := range queries {
		if !strings.Contains(strings.ToLower(query), "where id = $1 and workspace_id = $2") {
			t.Fatalf("%s query must be scoped to the workspace", name)
		}
	}
	if !strings.Contains(strings.ToLower(listSourcesQuery), "where workspace_id = $1") {
		t.Fatal("list query must be scoped to the workspace")
	}
}

func TestSourceColumnsNeverSelectTheSealedSecret(t *testing.T) {
	columns := strings.ToLower(sourceColumns)
	if !strings.Contains(columns, "webhook_secret_encrypted is not null as has_secret") {
		t.Fatal("expected has_secret projection")
	}
	if strings.Count(columns, "webhook_secret_encrypted") != 1 {
		t.Fatal("sealed secret must only appear in the has_secret projection")
	}
}

func TestUpdateQueryTreatsEmptyStringAsClear(t *testing.T) {
	query := strings.Join(strings.Fields(strings.ToLower(updateSourceQuery)), " ")
	for _, fragment := range []string{
		"provider_account_id = nullif(coalesce($3, provider_account_id), '')",
		"alert_email = nullif(coalesce($6, alert_email), '')",
	} {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected fragment %q", fragment)
		}
	}
}
