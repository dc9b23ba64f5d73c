package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	identifierHashLen     = 32
	emailExternalIDPrefix = "email:"
)

type eventIdentifiers struct {
	VisitorID string `json:"visitor_id"`
	PageURL   string `json:"page_url"`
	AccountID string `json:"account_id"`
	EmailHash string `json:"email_hash"`
}

// fingerprintTuple is encoded with encoding/json, whose struct field order is
// fixed, so equal tuples always produce equal bytes.
type fingerprintTuple struct {
	WorkspaceID string           `json:"workspace_id"`
	Provider    string           `json:"provider"`
	EventType   string           `json:"event_type"`
	OccurredAt  string           `json:"occurred_at"`
	Identifiers eventIdentifiers `json:"identifiers"`
	PayloadHash string           `json:"payload_hash,omitempty"`
}

// EventFingerprint is the dedupe key of one logical occurrence. A delivery
// without its own timestamp is keyed by its sanitized payload instead of the
// receipt time, so redeliveries of the same body collapse.
func EventFingerprint(workspaceID uuid.UUID, provider string, env Envelope) string {
	tuple := fingerprintTuple{
		WorkspaceID: workspaceID.String(),
		Provider:    provider,
		EventType:   env.EventType,
		Identifiers: eventIdentifiers{
			VisitorID: env.VisitorID,
			PageURL:   env.PageURL,
			AccountID: env.AccountID,
			EmailHash: HashIdentifier(workspaceID, NormalizeEmail(env.Contact.Email)),
		},
	}
	if env.TimestampDefaulted {
		tuple.PayloadHash = digest(env.Payload)
	} else {
		tuple.OccurredAt = env.OccurredAt.UTC().Format(time.RFC3339Nano)
	}
	return digest(tuple)
}

// HashIdentifier pseudonymizes a normalized identifier within a workspace.
// Empty input hashes to empty output.
func HashIdentifier(workspaceID uuid.UUID, value string) string {
	if value == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(workspaceID.String() + "\x00" + value))
	return hex.EncodeToString(sum[:])[:identifierHashLen]
}

// NormalizeEmail lower-cases and trims an address before hashing or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ExternalID derives the identity key: the visitor id, else a hash of the
// email, else empty (no identity).
func ExternalID(workspaceID uuid.UUID, env Envelope) string {
	if env.VisitorID != "" {
		return env.VisitorID
	}
	if email := NormalizeEmail(env.Contact.Email); email != "" {
		return emailExternalIDPrefix + HashIdentifier(workspaceID, email)
	}
	return ""
}

func digest(v any) string {
	// Marshal of strings and decoded JSON values cannot fail.
	b, _ := json.Marshal(v)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
