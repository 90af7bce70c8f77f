package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/examhall/internal/authoring"
	"github.com/mind-engage/examhall/internal/exam"
	"github.com/mind-engage/examhall/internal/platform/logger"
)

// POST /api/exams
func CreateExamHandler(svc *authoring.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in authoring.ExamInput
		if err := decodeJSON(r, &in); err != nil {
			respondErr(w, r, log, err)
			return
		}
		e, err := svc.CreateExam(r.Context(), callerID(r), in)
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusCreated, e)
	}
}

// GET /api/exams  (exams created by the caller)
func ListMyExamsHandler(svc *authoring.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListMyExams(r.Context(), callerID(r))
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

// GET /api/exams/{id}
func GetExamHandler(svc *authoring.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		v, err := svc.GetExam(r.Context(), callerID(r), id)
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, v)
	}
}

// GET /api/exams/code/{code}
func GetExamByCodeHandler(svc *authoring.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := svc.GetExamByCode(r.Context(), callerID(r), chi.URLParam(r, "code"))
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, v)
	}
}

// PUT /api/exams/{id}
func UpdateExamHandler(svc *authoring.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		var p exam.ExamPatch
		if err := decodeJSON(r, &p); err != nil {
			respondErr(w, r, log, err)
			return
		}
		// attachments change only through the upload route
		p.Attachment = nil
		e, err := svc.UpdateExam(r.Context(), callerID(r), id, p)
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, e)
	}
}

// DELETE /api/exams/{id}
func DeleteExamHandler(svc *authoring.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		if err := svc.DeleteExam(r.Context(), callerID(r), id); err != nil {
			respondErr(w, r, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /api/exams/{id}/attachment  multipart field "file"
func UploadAttachmentHandler(svc *authoring.Service, maxBytes int64, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		f, hdr, err := r.FormFile("file")
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large") {
				respondJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file too large"})
				return
			}
			respondErr(w, r, log, fmt.Errorf("%w: file required", exam.ErrValidation))
			return
		}
		defer f.Close()

		e, err := svc.SetAttachment(r.Context(), callerID(r), id, hdr.Filename, f)
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, e)
	}
}
