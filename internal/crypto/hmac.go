// Package crypto provides API-secret management and HMAC request signing for
// the venue's authenticated REST endpoints.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HMACAuth holds venue API credentials. Signed endpoints receive the API key
// in a header and an HMAC-SHA256 signature over the query string.
type HMACAuth struct {
	Key    string // API key, sent as a request header
	Secret string // API secret, the HMAC key
}

// Sign computes HMAC-SHA256 over the canonical query string and returns the
// signature hex-encoded, ready to append as the signature parameter.
func (h *HMACAuth) Sign(query string) string {
	mac := hmac.New(sha256.New, []byte(h.Secret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

// String returns a redacted representation suitable for logging.
func (h *HMACAuth) String() string {
	redact := func(s string) string {
		if len(s) <= 4 {
			return "****"
		}
		return s[:4] + "****"
	}
	return fmt.Sprintf("HMACAuth{key=%s, secret=%s}", redact(h.Key), redact(h.Secret))
}
