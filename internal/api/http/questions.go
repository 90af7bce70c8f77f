package http

import (
	"net/http"

	"github.com/mind-engage/examhall/internal/authoring"
	"github.com/mind-engage/examhall/internal/exam"
	"github.com/mind-engage/examhall/internal/platform/logger"
)

// POST /api/exams/{id}/questions
func AddQuestionHandler(svc *authoring.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID, err := idParam(r, "id")
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		var q exam.Question
		if err := decodeJSON(r, &q); err != nil {
			respondErr(w, r, log, err)
			return
		}
		created, err := svc.AddQuestion(r.Context(), callerID(r), examID, q)
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusCreated, created)
	}
}

// GET /api/exams/{id}/questions
func ListQuestionsHandler(svc *authoring.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID, err := idParam(r, "id")
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		list, err := svc.ListQuestions(r.Context(), callerID(r), examID)
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

// PUT /api/questions/{id}
func UpdateQuestionHandler(svc *authoring.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		var u authoring.QuestionUpdate
		if err := decodeJSON(r, &u); err != nil {
			respondErr(w, r, log, err)
			return
		}
		q, err := svc.UpdateQuestion(r.Context(), callerID(r), id, u)
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, q)
	}
}

// DELETE /api/questions/{id}
func DeleteQuestionHandler(svc *authoring.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		if err := svc.DeleteQuestion(r.Context(), callerID(r), id); err != nil {
			respondErr(w, r, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
