package util

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// SignatureVersion is the Slack signing scheme version prefix.
const SignatureVersion = "v0"

func HmacSHA256(secret, data string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// SlackSignature computes the expected X-Slack-Signature value for a
// request: "v0=" + HMAC-SHA256(secret, "v0:{timestamp}:{body}").
func SlackSignature(secret, timestamp, body string) string {
	base := fmt.Sprintf("%s:%s:%s", SignatureVersion, timestamp, body)
	return SignatureVersion + "=" + HmacSHA256(secret, base)
}

func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
