package chi

import (
	"net/http"

	"github.com/kailas-cloud/resumatch/internal/auth"
)

// Identifier resolves the caller of a request. It never fails: an invalid
// token is an anonymous caller.
type Identifier interface {
	Identify(r *http.Request) auth.Identity
}

// exemptPaths are routes that skip identity resolution (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// OptionalAuthMiddleware stores the caller identity in the request context.
// A nil identifier disables authentication: every caller is anonymous.
func OptionalAuthMiddleware(id Identifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if id == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}
			ctx := auth.WithIdentity(r.Context(), id.Identify(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous callers with 401. It must run after
// OptionalAuthMiddleware.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.FromContext(r.Context()).Authenticated {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
