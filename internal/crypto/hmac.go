package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"
)

// HMACAuth holds the shared-secret credentials for operator API requests.
// The fee withdrawal endpoint requires these headers in addition to the
// bearer token.
type HMACAuth struct {
	Key    string // operator API key
	Secret string // operator API secret
}

// Headers returns the HTTP headers for an operator API request. The
// signature is HMAC-SHA256(secret, timestamp+method+path+body) encoded as
// base64.
//
// Returned header keys:
//   - X-Arena-Key
//   - X-Arena-Timestamp
//   - X-Arena-Signature
func (h *HMACAuth) Headers(method, path, body string) map[string]string {
	return h.HeadersAt(method, path, body, time.Now().Unix())
}

// HeadersAt is like Headers but lets the caller supply the Unix timestamp
// (useful for deterministic testing).
func (h *HMACAuth) HeadersAt(method, path, body string, unixTS int64) map[string]string {
	ts := strconv.FormatInt(unixTS, 10)

	message := ts + method + path + body
	sig := hmacSHA256Base64([]byte(h.Secret), message)

	return map[string]string{
		"X-Arena-Key":       h.Key,
		"X-Arena-Timestamp": ts,
		"X-Arena-Signature": sig,
	}
}

// Verify checks a presented signature against the expected one for the given
// request parts. It uses a constant-time comparison and bounds the timestamp
// skew.
func (h *HMACAuth) Verify(method, path, body, ts, sig string, maxSkew time.Duration) bool {
	unixTS, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	skew := time.Since(time.Unix(unixTS, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > maxSkew {
		return false
	}

	expected := hmacSHA256Base64([]byte(h.Secret), ts+method+path+body)
	return hmac.Equal([]byte(expected), []byte(sig))
}

// hmacSHA256Base64 computes HMAC-SHA256 of message using key and returns the
// result as a base64 standard-encoded string.
func hmacSHA256Base64(key []byte, message string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
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
