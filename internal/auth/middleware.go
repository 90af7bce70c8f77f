package auth

import (
	"net/http"
	"strings"

	"github.com/mind-engage/examhall/internal/exam"
	"github.com/mind-engage/examhall/internal/rbac"
)

// JWTMiddleware attaches the bearer token's user to the request context.
// Requests without an Authorization header pass through anonymously;
// a header that does not verify, or names a deleted user, is rejected.
func JWTMiddleware(a *AuthService, users exam.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if h == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !strings.HasPrefix(h, "Bearer ") {
				unauthorized(w, "missing bearer")
				return
			}
			claims, err := a.Parse(strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")))
			if err != nil {
				unauthorized(w, "bad token")
				return
			}
			id, err := claims.UserID()
			if err != nil {
				unauthorized(w, "bad token")
				return
			}
			u, err := users.GetUser(r.Context(), id)
			if err != nil {
				unauthorized(w, "unknown user")
				return
			}
			ctx := rbac.WithCaller(r.Context(), rbac.Caller{ID: u.ID, Username: u.Username})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}` + "\n"))
}
