package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/careline/careline/internal/logging"
)

// authMiddleware guards the API routes with a static Bearer token. An empty
// apiKey disables auth entirely (the server logs one warning at startup).
// Token values never reach the logs; failures record presence only.
//
// Clients authenticate with:
//
//	Authorization: Bearer <apiKey>
func authMiddleware(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logging.FromContext(r.Context())

		token := bearerToken(r)
		if token == "" {
			log.Warn("auth: no bearer token", slog.String("path", r.URL.Path))
			w.Header().Set("WWW-Authenticate", `Bearer realm="careline"`)
			http.Error(w, "authorization required", http.StatusUnauthorized)
			return
		}

		// Constant-time compare keeps response timing from leaking how much
		// of the key matched.
		if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			log.Warn("auth: token rejected", slog.String("path", r.URL.Path))
			w.Header().Set("WWW-Authenticate", `Bearer realm="careline" error="invalid_token"`)
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// bearerToken pulls the credential out of the Authorization header, tolerating
// any casing of the "Bearer" scheme. Absent or malformed headers yield "".
func bearerToken(r *http.Request) string {
	scheme, credential, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(credential)
}
