package http

import (
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/examhall/internal/platform/logger"
	"github.com/mind-engage/examhall/internal/storage"
)

// MountUploads serves stored blobs read-only: GET /uploads/*
func MountUploads(r chi.Router, bs storage.BlobStore, log *logger.Logger) {
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		rc, err := bs.Get(key)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) || errors.Is(err, storage.ErrInvalidKey) {
				respondJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
				return
			}
			respondErr(w, r, log, err)
			return
		}
		defer rc.Close()
		ct := mime.TypeByExtension(path.Ext(key))
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		_, _ = io.Copy(w, rc)
	})
}
