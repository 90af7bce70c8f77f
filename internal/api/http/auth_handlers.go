package http

import (
	"net/http"

	"github.com/mind-engage/examhall/internal/auth"
	"github.com/mind-engage/examhall/internal/exam"
	"github.com/mind-engage/examhall/internal/platform/logger"
)

// POST /api/auth/register  { "username", "name", "email", "password" }
func RegisterHandler(creds *auth.Credentials, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in auth.RegisterInput
		if err := decodeJSON(r, &in); err != nil {
			respondErr(w, r, log, err)
			return
		}
		s, err := creds.Register(r.Context(), in)
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusCreated, s)
	}
}

// POST /api/auth/login  { "username": "<username or email>", "password" }
func LoginHandler(creds *auth.Credentials, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondErr(w, r, log, err)
			return
		}
		s, err := creds.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, s)
	}
}

// GET /api/user
func CurrentUserHandler(store exam.Store, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := store.GetUser(r.Context(), callerID(r))
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, u)
	}
}
