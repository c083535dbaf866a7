package middleware

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/coinarena/arenad/internal/crypto"
)

// maxOperatorBodySize bounds request bodies on operator endpoints.
const maxOperatorBodySize = 1 << 20

// operatorMaxSkew bounds how old an operator request signature may be.
const operatorMaxSkew = 5 * time.Minute

// OperatorAuth returns middleware that verifies the signed operator headers
// (X-Arena-Key, X-Arena-Timestamp, X-Arena-Signature) on sensitive routes.
// If auth is nil, the middleware passes all requests through (disabled).
func OperatorAuth(auth *crypto.HMACAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("X-Arena-Key")
			ts := r.Header.Get("X-Arena-Timestamp")
			sig := r.Header.Get("X-Arena-Signature")
			if key == "" || ts == "" || sig == "" {
				writeForbidden(w, "missing operator signature")
				return
			}
			if key != auth.Key {
				writeForbidden(w, "unknown operator key")
				return
			}

			// The body participates in the signature; read it and hand the
			// handler a replacement reader.
			body, err := io.ReadAll(io.LimitReader(r.Body, maxOperatorBodySize))
			if err != nil {
				writeForbidden(w, "unreadable request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			if !auth.Verify(r.Method, r.URL.Path, string(body), ts, sig, operatorMaxSkew) {
				writeForbidden(w, "invalid operator signature")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeForbidden sends a 403 response with a JSON error body.
func writeForbidden(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
