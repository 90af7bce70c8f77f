package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mind-engage/examhall/internal/exam"
	"github.com/mind-engage/examhall/internal/grading"
	"github.com/mind-engage/examhall/internal/platform/logger"
	"github.com/mind-engage/examhall/internal/rbac"
	syncx "github.com/mind-engage/examhall/internal/sync"
)

// Reasons recorded when a submission reaches Completed.
const (
	ReasonSubmitted = "submitted"
	ReasonTimeout   = "timeout"
)

// Service runs the submission lifecycle: Start, SubmitAnswer, Complete.
// Mutations of one submission are serialized in-process; the store's
// conditional completion guards against other processes.
type Service struct {
	store  exam.Store
	grader grading.Grader
	events syncx.Sink
	log    *logger.Logger
	now    func() time.Time
	grace  time.Duration
	locks  *KeyedLocks
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }
func WithGrace(d time.Duration) Option      { return func(s *Service) { s.grace = d } }
func WithEvents(sink syncx.Sink) Option     { return func(s *Service) { s.events = sink } }
func WithLogger(l *logger.Logger) Option    { return func(s *Service) { s.log = l } }

func NewService(store exam.Store, grader grading.Grader, opts ...Option) *Service {
	s := &Service{
		store:  store,
		grader: grader,
		log:    logger.Nop(),
		now:    time.Now,
		locks:  NewKeyedLocks(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.grader == nil {
		s.grader = grading.NewDefaultGrader()
	}
	return s
}

// LockSubmission serializes work on one submission with this service's
// own mutations. Callers must invoke the returned func.
func (s *Service) LockSubmission(id int64) (unlock func()) {
	return s.locks.Lock("submission:" + strconv.FormatInt(id, 10))
}

// Start opens an attempt for callerID on examID. If the caller already has an
// active attempt it is returned as is; an active attempt whose deadline has
// passed is completed first and a fresh one is opened.
func (s *Service) Start(ctx context.Context, callerID, examID int64) (exam.Submission, error) {
	if callerID == 0 {
		return exam.Submission{}, fmt.Errorf("%w: authentication required", exam.ErrForbidden)
	}
	e, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return exam.Submission{}, err
	}

	unlock := s.locks.Lock(fmt.Sprintf("start:%d:%d", examID, callerID))
	defer unlock()

	active, err := s.store.FindActiveSubmission(ctx, examID, callerID)
	switch {
	case err == nil:
		if !s.expired(e, active) {
			return active, nil
		}
		unlockSub := s.LockSubmission(active.ID)
		_, err := s.finalizeLocked(ctx, active, ReasonTimeout)
		unlockSub()
		if err != nil && !errors.Is(err, exam.ErrAlreadyCompleted) {
			return exam.Submission{}, err
		}
	case !errors.Is(err, exam.ErrNotFound):
		return exam.Submission{}, err
	}

	sub, err := s.store.CreateSubmission(ctx, exam.Submission{
		ExamID:    examID,
		UserID:    callerID,
		StartTime: s.now(),
	})
	if err != nil {
		return exam.Submission{}, err
	}
	s.log.Info("submission started", "submission_id", sub.ID, "exam_id", examID, "user_id", callerID)
	return sub, nil
}

// SubmitAnswer grades raw against the question and stores it, replacing any
// earlier answer to the same question. Past the deadline the submission is
// completed and ErrTimeExpired is returned.
func (s *Service) SubmitAnswer(ctx context.Context, callerID, submissionID, questionID int64, raw json.RawMessage) (exam.Answer, error) {
	unlock := s.LockSubmission(submissionID)
	defer unlock()

	sub, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return exam.Answer{}, err
	}
	if err := rbac.RequireSubmissionOwner(callerID, sub); err != nil {
		return exam.Answer{}, err
	}
	if sub.Completed {
		return exam.Answer{}, exam.ErrAlreadyCompleted
	}
	e, err := s.store.GetExam(ctx, sub.ExamID)
	if err != nil {
		return exam.Answer{}, err
	}
	if s.expired(e, sub) {
		if _, err := s.finalizeLocked(ctx, sub, ReasonTimeout); err != nil && !errors.Is(err, exam.ErrAlreadyCompleted) {
			return exam.Answer{}, err
		}
		return exam.Answer{}, exam.ErrTimeExpired
	}

	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return exam.Answer{}, err
	}
	if q.ExamID != sub.ExamID {
		return exam.Answer{}, fmt.Errorf("%w: question %d is not part of exam %d", exam.ErrValidation, q.ID, sub.ExamID)
	}
	resp, err := exam.ParseResponse(q.Type, raw)
	if err != nil {
		return exam.Answer{}, err
	}
	res, err := s.grader.Grade(q, resp)
	if err != nil {
		return exam.Answer{}, err
	}
	a := res.Apply(exam.Answer{SubmissionID: sub.ID, QuestionID: q.ID, Answer: resp})
	disputed, err := s.disputed(ctx, sub.ID, q.ID)
	if err != nil {
		return exam.Answer{}, err
	}
	if disputed {
		// an open review request keeps the answer in the review queue
		a.NeedsReview = true
	}
	saved, err := s.store.UpsertAnswer(ctx, a)
	if err != nil {
		return exam.Answer{}, err
	}
	s.log.Debug("answer saved", "submission_id", sub.ID, "question_id", q.ID, "needs_review", saved.NeedsReview)
	return saved, nil
}

// disputed reports whether the stored answer to questionID has a pending
// review request.
func (s *Service) disputed(ctx context.Context, submissionID, questionID int64) (bool, error) {
	answers, err := s.store.ListAnswers(ctx, submissionID)
	if err != nil {
		return false, err
	}
	for _, a := range answers {
		if a.QuestionID != questionID {
			continue
		}
		reqs, err := s.store.ListReviewRequests(ctx, a.ID)
		if err != nil {
			return false, err
		}
		for _, rr := range reqs {
			if rr.Status == exam.ReviewPending {
				return true, nil
			}
		}
	}
	return false, nil
}

// Complete sums the current answer scores into the submission and closes it.
// A second call fails with ErrAlreadyCompleted.
func (s *Service) Complete(ctx context.Context, callerID, submissionID int64) (exam.Submission, error) {
	unlock := s.LockSubmission(submissionID)
	defer unlock()

	sub, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return exam.Submission{}, err
	}
	if err := rbac.RequireSubmissionOwner(callerID, sub); err != nil {
		return exam.Submission{}, err
	}
	if sub.Completed {
		return exam.Submission{}, exam.ErrAlreadyCompleted
	}
	return s.finalizeLocked(ctx, sub, ReasonSubmitted)
}

// finalizeLocked requires the submission lock to be held.
func (s *Service) finalizeLocked(ctx context.Context, sub exam.Submission, reason string) (exam.Submission, error) {
	answers, err := s.store.ListAnswers(ctx, sub.ID)
	if err != nil {
		return exam.Submission{}, err
	}
	score := exam.SumScores(answers)
	done, err := s.store.CompleteSubmission(ctx, sub.ID, score, s.now())
	if err != nil {
		return exam.Submission{}, err
	}
	s.log.Info("submission completed",
		"submission_id", done.ID, "exam_id", done.ExamID, "user_id", done.UserID,
		"score", score, "reason", reason)
	s.emit(ctx, done, reason)
	return done, nil
}

func (s *Service) emit(ctx context.Context, sub exam.Submission, reason string) {
	if s.events == nil {
		return
	}
	ev, err := syncx.NewEvent(syncx.TypeSubmissionCompleted, sub.ID, map[string]any{
		"submissionId": sub.ID,
		"examId":       sub.ExamID,
		"userId":       sub.UserID,
		"score":        sub.Score,
		"endTime":      sub.EndTime,
		"reason":       reason,
	})
	if err == nil {
		err = s.events.Append(ctx, ev)
	}
	if err != nil {
		s.log.Warn("event log append failed", "submission_id", sub.ID, "error", err)
	}
}

func (s *Service) deadline(e exam.Exam, sub exam.Submission) time.Time {
	return e.Deadline(sub.StartTime, s.grace)
}

func (s *Service) expired(e exam.Exam, sub exam.Submission) bool {
	return s.now().After(s.deadline(e, sub))
}
