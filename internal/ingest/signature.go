package ingest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

const (
	// SignatureHeader carries the HMAC-SHA256 of the raw body.
	SignatureHeader = "X-Webhook-Signature"
	// LegacySignatureHeader is accepted when SignatureHeader is absent.
	LegacySignatureHeader = "X-Signature"

	signaturePrefix = "sha256="
)

// SignatureFromHeaders returns the first non-empty signature header value.
func SignatureFromHeaders(h http.Header) string {
	if sig := strings.TrimSpace(h.Get(SignatureHeader)); sig != "" {
		return sig
	}
	return strings.TrimSpace(h.Get(LegacySignatureHeader))
}

// Sign returns the hex HMAC-SHA256 of body keyed by secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks signature against body. An empty secret or an
// empty signature skips verification and is accepted.
func VerifySignature(body []byte, signature, secret string) bool {
	signature = strings.TrimSpace(signature)
	if secret == "" || signature == "" {
		return true
	}

	if len(signature) >= len(signaturePrefix) && strings.EqualFold(signature[:len(signaturePrefix)], signaturePrefix) {
		signature = signature[len(signaturePrefix):]
	}

	provided, err := hex.DecodeString(strings.ToLower(signature))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(provided, mac.Sum(nil))
}
