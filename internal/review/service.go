package review

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mind-engage/examhall/internal/exam"
	"github.com/mind-engage/examhall/internal/grading"
	"github.com/mind-engage/examhall/internal/platform/logger"
	"github.com/mind-engage/examhall/internal/rbac"
	syncx "github.com/mind-engage/examhall/internal/sync"
)

// Locker serializes work on a submission with the attempt lifecycle.
type Locker interface {
	LockSubmission(id int64) (unlock func())
}

// Service handles disputes raised by test-takers and grades set by exam creators.
type Service struct {
	store  exam.Store
	events syncx.Sink
	log    *logger.Logger
	now    func() time.Time
	locker Locker
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }
func WithEvents(sink syncx.Sink) Option     { return func(s *Service) { s.events = sink } }
func WithLogger(l *logger.Logger) Option    { return func(s *Service) { s.log = l } }
func WithLocker(l Locker) Option            { return func(s *Service) { s.locker = l } }

func NewService(store exam.Store, opts ...Option) *Service {
	s := &Service{store: store, log: logger.Nop(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) lock(submissionID int64) func() {
	if s.locker == nil {
		return func() {}
	}
	return s.locker.LockSubmission(submissionID)
}

// RequestReview opens a pending dispute on one of the caller's answers and
// flags the answer for review.
func (s *Service) RequestReview(ctx context.Context, callerID, answerID int64, reason string) (exam.ReviewRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return exam.ReviewRequest{}, fmt.Errorf("%w: reason is required", exam.ErrValidation)
	}
	a, err := s.store.GetAnswer(ctx, answerID)
	if err != nil {
		return exam.ReviewRequest{}, err
	}
	sub, err := s.store.GetSubmission(ctx, a.SubmissionID)
	if err != nil {
		return exam.ReviewRequest{}, err
	}
	if err := rbac.RequireSubmissionOwner(callerID, sub); err != nil {
		return exam.ReviewRequest{}, err
	}

	unlock := s.lock(sub.ID)
	defer unlock()
	rr, err := s.store.OpenReviewRequest(ctx, exam.ReviewRequest{
		AnswerID:  a.ID,
		UserID:    callerID,
		Reason:    reason,
		CreatedAt: s.now(),
	})
	if err != nil {
		return exam.ReviewRequest{}, err
	}
	s.log.Info("review requested", "review_request_id", rr.ID, "answer_id", a.ID, "user_id", callerID)
	return rr, nil
}

// ReviewAnswer sets a manual score and comment on an answer. Every pending
// request on the answer is resolved, and a completed submission's score is
// recomputed from its answers.
func (s *Service) ReviewAnswer(ctx context.Context, callerID, answerID int64, score int, comment string) (exam.Answer, error) {
	a, q, e, err := s.load(ctx, answerID)
	if err != nil {
		return exam.Answer{}, err
	}
	if err := rbac.RequireReviewer(callerID, e); err != nil {
		return exam.Answer{}, err
	}
	if _, err := grading.Review(q, a, score, comment); err != nil {
		return exam.Answer{}, err
	}

	unlock := s.lock(a.SubmissionID)
	defer unlock()
	reviewed, err := s.store.ApplyReview(ctx, exam.AnswerReview{
		AnswerID:   a.ID,
		Score:      score,
		Comment:    comment,
		ReviewerID: callerID,
		At:         s.now(),
	})
	if err != nil {
		return exam.Answer{}, err
	}
	s.log.Info("answer reviewed", "answer_id", a.ID, "submission_id", a.SubmissionID, "score", score, "reviewer_id", callerID)
	s.emit(ctx, reviewed, callerID)
	return reviewed, nil
}

// RejectReview closes a pending request without changing the answer's score.
func (s *Service) RejectReview(ctx context.Context, callerID, requestID int64) (exam.ReviewRequest, error) {
	rr, err := s.store.GetReviewRequest(ctx, requestID)
	if err != nil {
		return exam.ReviewRequest{}, err
	}
	_, _, e, err := s.load(ctx, rr.AnswerID)
	if err != nil {
		return exam.ReviewRequest{}, err
	}
	if err := rbac.RequireReviewer(callerID, e); err != nil {
		return exam.ReviewRequest{}, err
	}
	out, err := s.store.RejectReviewRequest(ctx, rr.ID, callerID, s.now())
	if err != nil {
		return exam.ReviewRequest{}, err
	}
	s.log.Info("review request rejected", "review_request_id", rr.ID, "reviewer_id", callerID)
	return out, nil
}

// ListRequests returns an answer's review requests to the test-taker or the exam's creator.
func (s *Service) ListRequests(ctx context.Context, callerID, answerID int64) ([]exam.ReviewRequest, error) {
	a, _, e, err := s.load(ctx, answerID)
	if err != nil {
		return nil, err
	}
	sub, err := s.store.GetSubmission(ctx, a.SubmissionID)
	if err != nil {
		return nil, err
	}
	if err := rbac.RequireViewSubmission(callerID, sub, e); err != nil {
		return nil, err
	}
	return s.store.ListReviewRequests(ctx, a.ID)
}

func (s *Service) load(ctx context.Context, answerID int64) (exam.Answer, exam.Question, exam.Exam, error) {
	a, err := s.store.GetAnswer(ctx, answerID)
	if err != nil {
		return exam.Answer{}, exam.Question{}, exam.Exam{}, err
	}
	q, err := s.store.GetQuestion(ctx, a.QuestionID)
	if err != nil {
		return exam.Answer{}, exam.Question{}, exam.Exam{}, err
	}
	e, err := s.store.GetExam(ctx, q.ExamID)
	if err != nil {
		return exam.Answer{}, exam.Question{}, exam.Exam{}, err
	}
	return a, q, e, nil
}

func (s *Service) emit(ctx context.Context, a exam.Answer, reviewerID int64) {
	if s.events == nil {
		return
	}
	ev, err := syncx.NewEvent(syncx.TypeAnswerReviewed, a.ID, map[string]any{
		"answerId":     a.ID,
		"submissionId": a.SubmissionID,
		"questionId":   a.QuestionID,
		"score":        a.Score,
		"reviewerId":   reviewerID,
	})
	if err == nil {
		err = s.events.Append(ctx, ev)
	}
	if err != nil {
		s.log.Warn("event log append failed", "answer_id", a.ID, "error", err)
	}
}
