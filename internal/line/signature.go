// Package line implements the LINE Messaging API integration: webhook
// signature verification and decoding, and the outbound API client.
package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// ValidateSignature checks an X-Line-Signature header against the raw
// request body using the channel secret (base64 HMAC-SHA256, as LINE
// documents for webhook verification).
func ValidateSignature(channelSecret, signature string, body []byte) bool {
	if channelSecret == "" || signature == "" {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	return hmac.Equal(decoded, mac.Sum(nil))
}

// SignBody computes the signature LINE would send for body.
// Exported for tests and local tooling.
func SignBody(channelSecret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
