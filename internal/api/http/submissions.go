package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mind-engage/examhall/internal/attempt"
	"github.com/mind-engage/examhall/internal/exam"
	"github.com/mind-engage/examhall/internal/platform/logger"
)

// POST /api/exams/{id}/submissions  starts or resumes the caller's attempt
func StartSubmissionHandler(svc *attempt.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID, err := idParam(r, "id")
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		sub, err := svc.Start(r.Context(), callerID(r), examID)
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		v, err := svc.Get(r.Context(), callerID(r), sub.ID)
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusCreated, v)
	}
}

// GET /api/exams/{id}/submissions  exam creator only
func ListExamSubmissionsHandler(svc *attempt.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID, err := idParam(r, "id")
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		list, err := svc.ListForExam(r.Context(), callerID(r), examID)
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

// GET /api/user/submissions
func MySubmissionsHandler(svc *attempt.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListMine(r.Context(), callerID(r))
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

// GET /api/submissions/{id}
func GetSubmissionHandler(svc *attempt.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		v, err := svc.Get(r.Context(), callerID(r), id)
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, v)
	}
}

// POST /api/submissions/{id}/complete
func CompleteSubmissionHandler(svc *attempt.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		if _, err := svc.Complete(r.Context(), callerID(r), id); err != nil {
			respondErr(w, r, log, err)
			return
		}
		v, err := svc.Get(r.Context(), callerID(r), id)
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, v)
	}
}

// POST /api/submissions/{id}/answers  { "questionId": 3, "answer": <value> }
func SubmitAnswerHandler(svc *attempt.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		var req struct {
			QuestionID int64           `json:"questionId"`
			Answer     json.RawMessage `json:"answer"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondErr(w, r, log, err)
			return
		}
		if req.QuestionID <= 0 || len(req.Answer) == 0 {
			respondErr(w, r, log, fmt.Errorf("%w: questionId and answer are required", exam.ErrValidation))
			return
		}
		a, err := svc.SubmitAnswer(r.Context(), callerID(r), id, req.QuestionID, req.Answer)
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, a)
	}
}

// GET /api/submissions/{id}/answers
func ListAnswersHandler(svc *attempt.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		list, err := svc.ListAnswers(r.Context(), callerID(r), id)
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}
