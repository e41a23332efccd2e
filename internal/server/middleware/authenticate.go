package middleware

import (
	"net/http"

	"ecomconsole/backend/internal/security"
)

// Authenticate verifies the access token from the Authorization header or the
// auth_token cookie and stores the claims on the request context. Requests
// without a valid token proceed as anonymous; rejecting them is the gate's or
// the handler's call, not this stage's.
func Authenticate(tokens *security.TokenProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := ExtractAccessToken(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := tokens.ParseAccess(raw)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), claims, raw)))
		})
	}
}
