package ingest

import (
	"leadsignal_backend/platform/phone"
	"leadsignal_backend/platform/sanitize"
)

const maxContactFieldLen = 256

// literalContactKeys are the identity contact_fields keys that hold raw PII.
// They are stripped from stored identities whenever the policy is disabled.
var literalContactKeys = []string{"email", "phone", "first_name", "last_name", "full_name", "address"}

// BuildIdentityUpsert maps an envelope onto an identity write, applying the
// source's contact-level policy. It returns nil when no external id can be derived.
func BuildIdentityUpsert(source LeadSource, env Envelope, phoneRegion string) *IdentityUpsert {
	externalID := ExternalID(source.WorkspaceID, env)
	if externalID == "" {
		return nil
	}

	in := &IdentityUpsert{
		WorkspaceID:   source.WorkspaceID,
		Provider:      source.Provider,
		ExternalID:    externalID,
		ContactFields: map[string]any{},
		ContactLevel:  source.ContactLevelEnabled,
		SeenAt:        env.OccurredAt,
	}

	if env.Contact.IsEmpty() {
		return in
	}

	email := NormalizeEmail(env.Contact.Email)
	phoneE164 := phone.NormalizeE164(env.Contact.Phone, phoneRegion)

	if !source.ContactLevelEnabled {
		putNonEmpty(in.ContactFields, "email_hash", HashIdentifier(source.WorkspaceID, email))
		putNonEmpty(in.ContactFields, "phone_hash", HashIdentifier(source.WorkspaceID, phoneE164))
		return in
	}

	putNonEmpty(in.ContactFields, "email", sanitize.Truncate(email, maxContactFieldLen))
	putNonEmpty(in.ContactFields, "phone", sanitize.Truncate(phoneE164, maxContactFieldLen))
	putNonEmpty(in.ContactFields, "first_name", cleanText(env.Contact.FirstName))
	putNonEmpty(in.ContactFields, "last_name", cleanText(env.Contact.LastName))
	putNonEmpty(in.ContactFields, "full_name", cleanText(env.Contact.FullName))
	putNonEmpty(in.ContactFields, "address", cleanText(env.Contact.Address))

	if name := cleanText(env.Contact.DisplayName()); name != "" {
		in.DisplayName = &name
	}
	return in
}

func cleanText(s string) string {
	return sanitize.Truncate(sanitize.Text(s), maxContactFieldLen)
}

func putNonEmpty(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}
