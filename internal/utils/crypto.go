// internal/utils/crypto.go
package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const signaturePrefix = "sha256="

// SignWebhookPayload returns the "sha256=<hex>" HMAC of "{timestamp}.{event_id}.{body}".
func SignWebhookPayload(secret string, timestamp int64, eventID string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(h, "%d.%s.", timestamp, eventID)
	h.Write(body)
	return signaturePrefix + hex.EncodeToString(h.Sum(nil))
}

// VerifyWebhookSignature checks a signature produced by SignWebhookPayload in
// constant time.
func VerifyWebhookSignature(secret string, timestamp int64, eventID string, body []byte, signature string) bool {
	if !strings.HasPrefix(signature, signaturePrefix) {
		return false
	}
	expected := SignWebhookPayload(secret, timestamp, eventID, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
