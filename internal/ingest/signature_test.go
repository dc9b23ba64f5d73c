package ingest

import (
	"net/http"
	"strings"
	"testing"
)

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"page_view","visitor_id":"v1"}`)
	secret := "whsec_test"
	valid := Sign(body, secret)

	cases := []struct {
		name      string
		signature string
		secret    string
		want      bool
	}{
		{name: "bare hex", signature: valid, secret: secret, want: true},
		{name: "prefixed", signature: "sha256=" + valid, secret: secret, want: true},
		{name: "upper-case hex and prefix", signature: "SHA256=" + strings.ToUpper(valid), secret: secret, want: true},
		{name: "wrong digest", signature: Sign([]byte("other"), secret), secret: secret, want: false},
		{name: "not hex", signature: "sha256=zzzz", secret: secret, want: false},
		{name: "no secret configured", signature: "garbage", secret: "", want: true},
		{name: "no signature supplied", signature: "", secret: secret, want: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := VerifySignature(body, tc.signature, tc.secret); got != tc.want {
				t.Fatalf("VerifySignature() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSignatureFromHeadersPrefersPrimaryHeader(t *testing.T) {
	h := http.Header{}
	h.Set(LegacySignatureHeader, "legacy")
	if got := SignatureFromHeaders(h); got != "legacy" {
		t.Fatalf("expected legacy fallback, got %q", got)
	}

	h.Set(SignatureHeader, " primary ")
	if got := SignatureFromHeaders(h); got != "primary" {
		t.Fatalf("expected primary header, got %q", got)
	}
}
