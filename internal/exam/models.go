package exam

import (
	"encoding/json"
	"time"
)

type QuestionType string

const (
	TypeEssay          QuestionType = "essay"
	TypeMultipleChoice QuestionType = "multipleChoice"
	TypeTrueFalse      QuestionType = "trueFalse"
)

func (t QuestionType) Valid() bool {
	switch t {
	case TypeEssay, TypeMultipleChoice, TypeTrueFalse:
		return true
	}
	return false
}

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserSummary is the part of a User shown to other users.
type UserSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Name: u.Name}
}

type Exam struct {
	ID           int64     `json:"id"`
	Code         string    `json:"code"`
	Title        string    `json:"title"`
	Subject      string    `json:"subject"`
	Description  string    `json:"description,omitempty"`
	Instructions string    `json:"instructions,omitempty"`
	Duration     int       `json:"duration"` // minutes
	Attachment   string    `json:"attachment,omitempty"`
	CreatorID    int64     `json:"creatorId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ExamSummary is the part of an Exam listed next to a user's submissions.
type ExamSummary struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Title    string `json:"title"`
	Subject  string `json:"subject"`
	Duration int    `json:"duration"`
}

func (e Exam) Summary() ExamSummary {
	return ExamSummary{ID: e.ID, Code: e.Code, Title: e.Title, Subject: e.Subject, Duration: e.Duration}
}

// Deadline is the latest instant an attempt started at start may still be answered.
func (e Exam) Deadline(start time.Time, grace time.Duration) time.Time {
	return start.Add(time.Duration(e.Duration)*time.Minute + grace)
}

type Question struct {
	ID     int64        `json:"id"`
	ExamID int64        `json:"examId"`
	Type   QuestionType `json:"type"`
	Text   string       `json:"text"`
	// Options is required iff Type is multipleChoice.
	Options []string `json:"options,omitempty"`
	// CorrectAnswers is nil on views served to test-takers.
	CorrectAnswers *AnswerKey `json:"correctAnswers,omitempty"`
	Marks          int        `json:"marks"`
	Order          int        `json:"order"`
}

// Public returns a copy without the answer key.
func (q Question) Public() Question {
	q.CorrectAnswers = nil
	return q
}

func (q *Question) UnmarshalJSON(b []byte) error {
	type alias Question
	var raw struct {
		alias
		CorrectAnswers json.RawMessage `json:"correctAnswers"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*q = Question(raw.alias)
	q.CorrectAnswers = nil
	if len(raw.CorrectAnswers) == 0 || string(raw.CorrectAnswers) == "null" {
		return nil
	}
	key, err := ParseAnswerKey(q.Type, raw.CorrectAnswers)
	if err != nil {
		return err
	}
	q.CorrectAnswers = &key
	return nil
}

type Submission struct {
	ID        int64      `json:"id"`
	ExamID    int64      `json:"examId"`
	UserID    int64      `json:"userId"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
	Score     *int       `json:"score"`
	Completed bool       `json:"completed"`
}

type Answer struct {
	ID            int64    `json:"id"`
	SubmissionID  int64    `json:"submissionId"`
	QuestionID    int64    `json:"questionId"`
	Answer        Response `json:"answer"`
	IsCorrect     *bool    `json:"isCorrect"`
	Score         *int     `json:"score"`
	NeedsReview   bool     `json:"needsReview"`
	ReviewComment *string  `json:"reviewComment"`
}

// Points is the answer's score with unset treated as zero.
func (a Answer) Points() int {
	if a.Score == nil {
		return 0
	}
	return *a.Score
}

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewResolved ReviewStatus = "resolved"
	ReviewRejected ReviewStatus = "rejected"
)

type ReviewRequest struct {
	ID         int64        `json:"id"`
	AnswerID   int64        `json:"answerId"`
	UserID     int64        `json:"userId"`
	Reason     string       `json:"reason"`
	Status     ReviewStatus `json:"status"`
	CreatedAt  time.Time    `json:"createdAt"`
	ResolvedAt *time.Time   `json:"resolvedAt"`
	ResolvedBy *int64       `json:"resolvedBy"`
}

// MaxScore is the sum of marks over questions.
func MaxScore(questions []Question) int {
	total := 0
	for _, q := range questions {
		total += q.Marks
	}
	return total
}

// SumScores totals answer scores, counting unscored answers as zero.
func SumScores(answers []Answer) int {
	total := 0
	for _, a := range answers {
		total += a.Points()
	}
	return total
}
