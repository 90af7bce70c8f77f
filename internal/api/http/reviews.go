package http

import (
	"fmt"
	"net/http"

	"github.com/mind-engage/examhall/internal/exam"
	"github.com/mind-engage/examhall/internal/platform/logger"
	"github.com/mind-engage/examhall/internal/review"
)

// POST /api/answers/{id}/review-request  { "reason" }
func RequestReviewHandler(svc *review.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		var req struct {
			Reason string `json:"reason"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondErr(w, r, log, err)
			return
		}
		rr, err := svc.RequestReview(r.Context(), callerID(r), id, req.Reason)
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusCreated, rr)
	}
}

// POST /api/answers/{id}/review  { "score", "comment" }
func ReviewAnswerHandler(svc *review.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		var req struct {
			Score   *int    `json:"score"`
			Comment *string `json:"comment"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondErr(w, r, log, err)
			return
		}
		if req.Score == nil || req.Comment == nil {
			respondErr(w, r, log, fmt.Errorf("%w: score and comment are required", exam.ErrValidation))
			return
		}
		a, err := svc.ReviewAnswer(r.Context(), callerID(r), id, *req.Score, *req.Comment)
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, a)
	}
}

// GET /api/answers/{id}/review-requests
func ListReviewRequestsHandler(svc *review.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		list, err := svc.ListRequests(r.Context(), callerID(r), id)
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

// POST /api/review-requests/{id}/reject
func RejectReviewHandler(svc *review.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		rr, err := svc.RejectReview(r.Context(), callerID(r), id)
		if err != nil {
			respondErr(w, r, log, err)
			return
		}
		respondJSON(w, http.StatusOK, rr)
	}
}
