package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// validSignature checks a Mailgun webhook signature: the hex encoding of
// HMAC-SHA256 over timestamp concatenated with token, keyed by the account
// signing key. Comparison is constant time.
func validSignature(signingKey, timestamp, token, signature string) bool {
	mac := hmac.New(sha256.New, []byte(signingKey))
	mac.Write([]byte(timestamp + token))

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	return hmac.Equal(provided, mac.Sum(nil))
}
