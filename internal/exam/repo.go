package exam

import (
	"context"
	"time"
)

type ExamPatch struct {
	Title        *string `json:"title,omitempty"`
	Subject      *string `json:"subject,omitempty"`
	Description  *string `json:"description,omitempty"`
	Instructions *string `json:"instructions,omitempty"`
	Duration     *int    `json:"duration,omitempty"`
	Attachment   *string `json:"attachment,omitempty"`
}

func (p ExamPatch) Apply(e Exam) Exam {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Subject != nil {
		e.Subject = *p.Subject
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Instructions != nil {
		e.Instructions = *p.Instructions
	}
	if p.Duration != nil {
		e.Duration = *p.Duration
	}
	if p.Attachment != nil {
		e.Attachment = *p.Attachment
	}
	return e
}

type QuestionPatch struct {
	Type           *QuestionType `json:"type,omitempty"`
	Text           *string       `json:"text,omitempty"`
	Options        *[]string     `json:"options,omitempty"`
	CorrectAnswers *AnswerKey    `json:"-"`
	Marks          *int          `json:"marks,omitempty"`
	Order          *int          `json:"order,omitempty"`
}

func (p QuestionPatch) Apply(q Question) Question {
	if p.Type != nil {
		q.Type = *p.Type
	}
	if p.Text != nil {
		q.Text = *p.Text
	}
	if p.Options != nil {
		q.Options = append([]string(nil), (*p.Options)...)
	}
	if p.CorrectAnswers != nil {
		k := *p.CorrectAnswers
		q.CorrectAnswers = &k
	}
	if p.Marks != nil {
		q.Marks = *p.Marks
	}
	if p.Order != nil {
		q.Order = *p.Order
	}
	return q
}

// SubmissionFilter selects submissions by foreign key. Zero fields are ignored.
type SubmissionFilter struct {
	ExamID int64
	UserID int64
}

// AnswerReview is a creator's manual grade for one answer.
type AnswerReview struct {
	AnswerID   int64
	Score      int
	Comment    string
	ReviewerID int64
	At         time.Time
}

// Store is the entity store. Get-by-id on a missing id returns an error
// wrapping ErrNotFound; ids are assigned on create and never reused.
type Store interface {
	CreateUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)

	// CreateExam requires e.Code to be set and fails with ErrCodeTaken on collision.
	CreateExam(ctx context.Context, e Exam) (Exam, error)
	GetExam(ctx context.Context, id int64) (Exam, error)
	GetExamByCode(ctx context.Context, code string) (Exam, error)
	ListExamsByCreator(ctx context.Context, creatorID int64) ([]Exam, error)
	UpdateExam(ctx context.Context, id int64, p ExamPatch) (Exam, error)
	// DeleteExam cascades to questions, submissions, answers and review requests.
	DeleteExam(ctx context.Context, id int64) error

	CreateQuestion(ctx context.Context, q Question) (Question, error)
	GetQuestion(ctx context.Context, id int64) (Question, error)
	// ListQuestions returns an exam's questions ordered by Order.
	ListQuestions(ctx context.Context, examID int64) ([]Question, error)
	UpdateQuestion(ctx context.Context, id int64, p QuestionPatch) (Question, error)
	DeleteQuestion(ctx context.Context, id int64) error

	CreateSubmission(ctx context.Context, s Submission) (Submission, error)
	GetSubmission(ctx context.Context, id int64) (Submission, error)
	ListSubmissions(ctx context.Context, f SubmissionFilter) ([]Submission, error)
	FindActiveSubmission(ctx context.Context, examID, userID int64) (Submission, error)
	// CompleteSubmission sets score, end time and completed exactly once;
	// later calls fail with ErrAlreadyCompleted.
	CompleteSubmission(ctx context.Context, id int64, score int, end time.Time) (Submission, error)

	// UpsertAnswer replaces any answer for (SubmissionID, QuestionID).
	UpsertAnswer(ctx context.Context, a Answer) (Answer, error)
	GetAnswer(ctx context.Context, id int64) (Answer, error)
	ListAnswers(ctx context.Context, submissionID int64) ([]Answer, error)

	// OpenReviewRequest stores a pending request and flags its answer for review.
	OpenReviewRequest(ctx context.Context, rr ReviewRequest) (ReviewRequest, error)
	GetReviewRequest(ctx context.Context, id int64) (ReviewRequest, error)
	ListReviewRequests(ctx context.Context, answerID int64) ([]ReviewRequest, error)
	// ApplyReview grades the answer, resolves its pending requests and, when
	// the submission is completed, recomputes its score as the sum of answers.
	ApplyReview(ctx context.Context, r AnswerReview) (Answer, error)
	RejectReviewRequest(ctx context.Context, id, by int64, at time.Time) (ReviewRequest, error)
}
