package ingest

import (
	"encoding/json"
	"testing"
	"time"
)

var receivedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func TestParseEnvelopeFieldFallbacks(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"form_submit","anonymous_id":"anon-1","url":"https://example.com/a","workspace_id":"ws-9"}`), receivedAt)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if env.EventType != "form_submit" || env.VisitorID != "anon-1" || env.PageURL != "https://example.com/a" || env.AccountID != "ws-9" {
		t.Fatalf("fallback keys not applied: %+v", env)
	}

	env, err = ParseEnvelope([]byte(`{"event":"page_view","type":"ignored","visitor_id":"v1","anonymous_id":"ignored"}`), receivedAt)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if env.EventType != "page_view" || env.VisitorID != "v1" {
		t.Fatalf("primary keys must win: %+v", env)
	}
}

func TestParseEnvelopeDefaults(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{}`), receivedAt)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if env.EventType != "unknown" {
		t.Fatalf("expected unknown event type, got %q", env.EventType)
	}
	if !env.OccurredAt.Equal(receivedAt) || !env.TimestampDefaulted {
		t.Fatalf("expected defaulted receipt time, got %s (defaulted=%v)", env.OccurredAt, env.TimestampDefaulted)
	}
	if env.VisitorID != "" || env.AccountID != "" || !env.Contact.IsEmpty() {
		t.Fatalf("expected empty envelope, got %+v", env)
	}
}

func TestParseEnvelopeTimestamps(t *testing.T) {
	want := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		body string
		want time.Time
	}{
		{name: "rfc3339 with offset", body: `{"occurred_at":"2026-03-01T10:30:00+01:00"}`, want: want},
		{name: "epoch seconds", body: `{"timestamp":1772357400}`, want: want},
		{name: "epoch millis", body: `{"timestamp":1772357400000}`, want: want},
		{name: "epoch string", body: `{"timestamp":"1772357400"}`, want: want},
		{name: "occurred_at wins", body: `{"occurred_at":"2026-03-01T09:30:00Z","timestamp":1}`, want: want},
		{name: "unparseable", body: `{"occurred_at":"yesterday"}`, want: receivedAt},
		{name: "nanoseconds truncated", body: `{"occurred_at":"2026-03-01T09:30:00.123456789Z"}`, want: want.Add(123456 * time.Microsecond)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := ParseEnvelope([]byte(tt.body), receivedAt)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if !env.OccurredAt.Equal(tt.want) {
				t.Fatalf("expected %s, got %s", tt.want, env.OccurredAt)
			}
			if env.OccurredAt.Location() != time.UTC {
				t.Fatalf("expected UTC, got %s", env.OccurredAt.Location())
			}
			if defaulted := tt.want.Equal(receivedAt); env.TimestampDefaulted != defaulted {
				t.Fatalf("expected defaulted=%v, got %v", defaulted, env.TimestampDefaulted)
			}
		})
	}
}

func TestParseEnvelopeRejectsNonObjects(t *testing.T) {
	for _, body := range []string{``, `nope`, `[]`, `"text"`, `null`, `{"a":1}{"b":2}`} {
		if _, err := ParseEnvelope([]byte(body), receivedAt); err == nil {
			t.Fatalf("expected error for %q", body)
		}
	}
}

func TestParseEnvelopeExtractsNestedContact(t *testing.T) {
	body := `{
		"event": "identified",
		"email": "top@example.com",
		"contact": {"email": "nested@example.com", "phone_number": "+31 6 1234 5678", "full_name": "Ada Lovelace"},
		"visitor": {"first_name": "Ada", "postal_address": "Main St 1"}
	}`
	env, err := ParseEnvelope([]byte(body), receivedAt)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := Contact{
		Email:     "top@example.com",
		Phone:     "+31 6 1234 5678",
		FirstName: "Ada",
		FullName:  "Ada Lovelace",
		Address:   "Main St 1",
	}
	if env.Contact != want {
		t.Fatalf("expected %+v, got %+v", want, env.Contact)
	}
	if env.Contact.DisplayName() != "Ada Lovelace" {
		t.Fatalf("expected full name as display name, got %q", env.Contact.DisplayName())
	}
}

func TestSanitizeReplacesContactKeysWithMarkers(t *testing.T) {
	input := map[string]any{
		"event": "identified",
		"Email": "ada@example.com",
		"phone": "",
		"contact": map[string]any{
			"last_name": "Lovelace",
			"company":   "Analytical Engines",
		},
		"meta": map[string]any{"email": "deep@example.com"},
	}

	out := Sanitize(input)

	if _, ok := out["Email"]; ok {
		t.Fatalf("email must be removed")
	}
	if out["email_present"] != true {
		t.Fatalf("expected email_present=true, got %v", out["email_present"])
	}
	if out["phone_present"] != false {
		t.Fatalf("expected phone_present=false for blank value, got %v", out["phone_present"])
	}

	contact := out["contact"].(map[string]any)
	if _, ok := contact["last_name"]; ok || contact["last_name_present"] != true {
		t.Fatalf("nested contact not scrubbed: %+v", contact)
	}
	if contact["company"] != "Analytical Engines" {
		t.Fatalf("non-contact key must survive: %+v", contact)
	}

	if meta := out["meta"].(map[string]any); meta["email"] != "deep@example.com" {
		t.Fatalf("only the contact and visitor sub-objects are scrubbed, got %+v", meta)
	}

	if input["Email"] != "ada@example.com" || input["contact"].(map[string]any)["last_name"] != "Lovelace" {
		t.Fatalf("input must not be modified")
	}
}

func TestParseEnvelopeKeepsNumbersExact(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"session_count":12345678901234567890,"visitor_id":42}`), receivedAt)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if n, ok := env.Payload["session_count"].(json.Number); !ok || n.String() != "12345678901234567890" {
		t.Fatalf("expected exact number, got %#v", env.Payload["session_count"])
	}
	if env.VisitorID != "42" {
		t.Fatalf("expected numeric visitor id as string, got %q", env.VisitorID)
	}
}
