// Package signature authenticates inbound webhook payloads with
// HMAC-SHA256 over the raw request body.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const prefix = "sha256="

// Verifier signs and verifies webhook payloads with a shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for the given shared webhook secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Sign returns "sha256=" + hex(HMAC-SHA256(secret, payload)).
func (v *Verifier) Sign(payload []byte) string {
	return prefix + hex.EncodeToString(v.mac(payload))
}

// Verify checks the provided header against the HMAC of the exact raw body.
// The body must not be re-serialized before verification; that would change
// its byte layout and break the signature. A missing, empty or malformed
// header verifies false; Verify never returns an error.
func (v *Verifier) Verify(payload []byte, header string) bool {
	if header == "" {
		return false
	}
	provided, err := hex.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return false
	}
	return hmac.Equal(provided, v.mac(payload))
}

func (v *Verifier) mac(payload []byte) []byte {
	h := hmac.New(sha256.New, v.secret)
	h.Write(payload)
	return h.Sum(nil)
}
