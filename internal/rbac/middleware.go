package rbac

import (
	"net/http"
)

// RequireCaller rejects requests that carry no authenticated caller.
func RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CallerFromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthenticated"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
