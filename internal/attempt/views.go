package attempt

import (
	"context"
	"time"

	"github.com/mind-engage/examhall/internal/exam"
	"github.com/mind-engage/examhall/internal/rbac"
)

// View is a submission with the figures a client needs to render it.
type View struct {
	exam.Submission
	Deadline     time.Time         `json:"deadline"`
	CurrentTotal int               `json:"currentTotal"`
	MaxScore     int               `json:"maxScore"`
	Exam         *exam.ExamSummary `json:"exam,omitempty"`
	User         *exam.UserSummary `json:"user,omitempty"`
}

// Get returns one submission to its owner or the exam's creator.
func (s *Service) Get(ctx context.Context, callerID, submissionID int64) (View, error) {
	sub, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return View{}, err
	}
	e, err := s.store.GetExam(ctx, sub.ExamID)
	if err != nil {
		return View{}, err
	}
	if err := rbac.RequireViewSubmission(callerID, sub, e); err != nil {
		return View{}, err
	}
	questions, err := s.store.ListQuestions(ctx, e.ID)
	if err != nil {
		return View{}, err
	}
	v, err := s.view(ctx, sub, e, exam.MaxScore(questions))
	if err != nil {
		return View{}, err
	}
	summary := e.Summary()
	v.Exam = &summary
	return v, nil
}

// ListAnswers returns a submission's answers to its owner or the exam's creator.
func (s *Service) ListAnswers(ctx context.Context, callerID, submissionID int64) ([]exam.Answer, error) {
	sub, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	e, err := s.store.GetExam(ctx, sub.ExamID)
	if err != nil {
		return nil, err
	}
	if err := rbac.RequireViewSubmission(callerID, sub, e); err != nil {
		return nil, err
	}
	return s.store.ListAnswers(ctx, sub.ID)
}

// ListForExam returns every submission of an exam to its creator.
func (s *Service) ListForExam(ctx context.Context, callerID, examID int64) ([]View, error) {
	e, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if err := rbac.RequireExamOwner(callerID, e); err != nil {
		return nil, err
	}
	questions, err := s.store.ListQuestions(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	total := exam.MaxScore(questions)
	subs, err := s.store.ListSubmissions(ctx, exam.SubmissionFilter{ExamID: examID})
	if err != nil {
		return nil, err
	}
	users := map[int64]exam.UserSummary{}
	out := make([]View, 0, len(subs))
	for _, sub := range subs {
		v, err := s.view(ctx, sub, e, total)
		if err != nil {
			return nil, err
		}
		u, ok := users[sub.UserID]
		if !ok {
			full, err := s.store.GetUser(ctx, sub.UserID)
			if err != nil {
				return nil, err
			}
			u = full.Summary()
			users[sub.UserID] = u
		}
		v.User = &u
		out = append(out, v)
	}
	return out, nil
}

// ListMine returns the caller's submissions across exams.
func (s *Service) ListMine(ctx context.Context, callerID int64) ([]View, error) {
	subs, err := s.store.ListSubmissions(ctx, exam.SubmissionFilter{UserID: callerID})
	if err != nil {
		return nil, err
	}
	type examInfo struct {
		exam  exam.Exam
		total int
	}
	exams := map[int64]examInfo{}
	out := make([]View, 0, len(subs))
	for _, sub := range subs {
		info, ok := exams[sub.ExamID]
		if !ok {
			e, err := s.store.GetExam(ctx, sub.ExamID)
			if err != nil {
				return nil, err
			}
			questions, err := s.store.ListQuestions(ctx, e.ID)
			if err != nil {
				return nil, err
			}
			info = examInfo{exam: e, total: exam.MaxScore(questions)}
			exams[sub.ExamID] = info
		}
		v, err := s.view(ctx, sub, info.exam, info.total)
		if err != nil {
			return nil, err
		}
		summary := info.exam.Summary()
		v.Exam = &summary
		out = append(out, v)
	}
	return out, nil
}

func (s *Service) view(ctx context.Context, sub exam.Submission, e exam.Exam, maxScore int) (View, error) {
	answers, err := s.store.ListAnswers(ctx, sub.ID)
	if err != nil {
		return View{}, err
	}
	return View{
		Submission:   sub,
		Deadline:     s.deadline(e, sub),
		CurrentTotal: exam.SumScores(answers),
		MaxScore:     maxScore,
	}, nil
}
