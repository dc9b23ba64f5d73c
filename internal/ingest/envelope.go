package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEventType = "unknown"
	presentSuffix    = "_present"
)

// piiKeys are removed from the stored payload and replaced with a
// "<key>_present" marker.
var piiKeys = map[string]struct{}{
	"email":          {},
	"phone":          {},
	"phone_number":   {},
	"address":        {},
	"first_name":     {},
	"last_name":      {},
	"full_name":      {},
	"postal_address": {},
}

// nestedContactKeys are the sub-objects that may carry contact data.
var nestedContactKeys = []string{"contact", "visitor"}

var errNotObject = errors.New("payload is not a JSON object")

// Contact is the optional contact block of a delivery.
type Contact struct {
	Email     string
	Phone     string
	FirstName string
	LastName  string
	FullName  string
	Address   string
}

// HasIdentifier reports whether the block carries an email or phone.
func (c Contact) HasIdentifier() bool {
	return c.Email != "" || c.Phone != ""
}

// IsEmpty reports whether no contact field was supplied.
func (c Contact) IsEmpty() bool {
	return c == Contact{}
}

// DisplayName prefers the full name over first and last.
func (c Contact) DisplayName() string {
	if c.FullName != "" {
		return c.FullName
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Envelope is the generic view of a provider payload. Payload is already sanitized.
// TimestampDefaulted is set when the delivery carried no usable timestamp and
// OccurredAt is the receipt time.
type Envelope struct {
	EventType          string
	OccurredAt         time.Time
	TimestampDefaulted bool
	VisitorID          string
	PageURL            string
	AccountID          string
	Contact            Contact
	Payload            map[string]any
}

// ParseEnvelope decodes body and extracts the envelope. Missing timestamps
// default to receivedAt. Times are UTC at microsecond precision to match storage.
func ParseEnvelope(body []byte, receivedAt time.Time) (Envelope, error) {
	raw, err := decodeObject(body)
	if err != nil {
		return Envelope{}, err
	}

	occurredAt, ok := parseTimestamp(firstValue(raw, "occurred_at", "timestamp"))
	if !ok {
		occurredAt = receivedAt
	}

	env := Envelope{
		EventType:          firstString(raw, "event", "type"),
		OccurredAt:         occurredAt.UTC().Truncate(time.Microsecond),
		TimestampDefaulted: !ok,
		VisitorID:          firstString(raw, "visitor_id", "anonymous_id"),
		PageURL:            firstString(raw, "page_url", "url"),
		AccountID:          firstString(raw, "account_id", "workspace_id"),
		Contact:            extractContact(raw),
		Payload:            Sanitize(raw),
	}
	if env.EventType == "" {
		env.EventType = defaultEventType
	}
	return env, nil
}

func decodeObject(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errNotObject
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON object")
	}
	return raw, nil
}

// Sanitize returns a copy of payload with contact-shaped keys replaced by
// presence markers, at the top level and one level under contact/visitor.
// The input map is not modified.
func Sanitize(payload map[string]any) map[string]any {
	out := scrubLevel(payload)
	for _, key := range nestedContactKeys {
		if nested, ok := out[key].(map[string]any); ok {
			out[key] = scrubLevel(nested)
		}
	}
	return out
}

func scrubLevel(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	markers := make(map[string]bool)

	for key, value := range in {
		lower := strings.ToLower(key)
		if _, pii := piiKeys[lower]; pii {
			markers[lower+presentSuffix] = markers[lower+presentSuffix] || hasValue(value)
			continue
		}
		out[key] = value
	}
	for marker, present := range markers {
		out[marker] = present
	}
	return out
}

func hasValue(v any) bool {
	switch typed := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(typed) != ""
	case map[string]any:
		return len(typed) > 0
	case []any:
		return len(typed) > 0
	default:
		return true
	}
}

func extractContact(raw map[string]any) Contact {
	scopes := []map[string]any{raw}
	for _, key := range nestedContactKeys {
		if nested, ok := raw[key].(map[string]any); ok {
			scopes = append(scopes, nested)
		}
	}

	pick := func(keys ...string) string {
		for _, scope := range scopes {
			if v := firstString(scope, keys...); v != "" {
				return v
			}
		}
		return ""
	}

	return Contact{
		Email:     pick("email"),
		Phone:     pick("phone", "phone_number"),
		FirstName: pick("first_name"),
		LastName:  pick("last_name"),
		FullName:  pick("full_name"),
		Address:   pick("address", "postal_address"),
	}
}

func firstValue(m map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

// firstString returns the first key holding a non-empty scalar, as a string.
func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := scalarString(m[key]); s != "" {
			return s
		}
	}
	return ""
}

func scalarString(v any) string {
	switch typed := v.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return typed.String()
	case bool:
		return strconv.FormatBool(typed)
	default:
		return ""
	}
}

// parseTimestamp accepts RFC 3339 strings and unix epochs in seconds or
// milliseconds, as numbers or numeric strings.
func parseTimestamp(v any) (time.Time, bool) {
	var text string
	switch typed := v.(type) {
	case string:
		text = strings.TrimSpace(typed)
	case json.Number:
		text = typed.String()
	default:
		return time.Time{}, false
	}
	if text == "" {
		return time.Time{}, false
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return time.Time{}, false
	}
	if f >= 1e12 {
		return time.UnixMilli(int64(f)), true
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)), true
}
