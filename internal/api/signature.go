package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifySignature checks a GitHub webhook signature against the raw request
// body. The header carries "sha256=<hex digest>" computed with HMAC-SHA256
// over the exact bytes received. An absent or malformed header fails closed.
// Comparison is constant time.
func VerifySignature(body []byte, signatureHeader, secret string) bool {
	digest, ok := strings.CutPrefix(signatureHeader, "sha256=")
	if !ok || digest == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(digest))
}
