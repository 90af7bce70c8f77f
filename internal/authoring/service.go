package authoring

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/mind-engage/examhall/internal/exam"
	"github.com/mind-engage/examhall/internal/platform/logger"
	"github.com/mind-engage/examhall/internal/rbac"
	"github.com/mind-engage/examhall/internal/storage"
)

// Service is the instructor-facing exam and question CRUD.
type Service struct {
	store   exam.Store
	blobs   storage.BlobStore
	log     *logger.Logger
	newCode func() (string, error)
}

type Option func(*Service)

func WithBlobs(b storage.BlobStore) Option { return func(s *Service) { s.blobs = b } }
func WithLogger(l *logger.Logger) Option   { return func(s *Service) { s.log = l } }

// WithCodeGenerator replaces the random exam code source.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.newCode = gen }
}

func NewService(store exam.Store, opts ...Option) *Service {
	s := &Service{store: store, log: logger.Nop(), newCode: exam.NewCode}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ExamInput is the body of a create request. Code and creator are assigned here.
type ExamInput struct {
	Title        string `json:"title"`
	Subject      string `json:"subject"`
	Description  string `json:"description"`
	Instructions string `json:"instructions"`
	Duration     int    `json:"duration"`
}

// ExamView is an exam with its questions. Answer keys are present only for the owner.
type ExamView struct {
	exam.Exam
	Questions []exam.Question `json:"questions"`
	IsOwner   bool            `json:"isOwner"`
}

// QuestionUpdate is a partial question edit. CorrectAnswers is decoded
// against the question's type after the patch is applied.
type QuestionUpdate struct {
	exam.QuestionPatch
	CorrectAnswers json.RawMessage `json:"correctAnswers,omitempty"`
}

func (s *Service) CreateExam(ctx context.Context, callerID int64, in ExamInput) (exam.Exam, error) {
	if callerID == 0 {
		return exam.Exam{}, fmt.Errorf("%w: authentication required", exam.ErrForbidden)
	}
	e := exam.Exam{
		Title:        strings.TrimSpace(in.Title),
		Subject:      strings.TrimSpace(in.Subject),
		Description:  in.Description,
		Instructions: in.Instructions,
		Duration:     in.Duration,
		CreatorID:    callerID,
	}
	if err := validateExam(e); err != nil {
		return exam.Exam{}, err
	}
	created, err := exam.CreateWithCode(ctx, s.store, e, s.newCode)
	if err != nil {
		return exam.Exam{}, err
	}
	s.log.Info("exam created", "exam_id", created.ID, "creator_id", callerID, "code", created.Code)
	return created, nil
}

func (s *Service) GetExam(ctx context.Context, callerID, examID int64) (ExamView, error) {
	e, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return ExamView{}, err
	}
	return s.view(ctx, callerID, e)
}

// GetExamByCode locates an exam by its public code. callerID may be zero.
func (s *Service) GetExamByCode(ctx context.Context, callerID int64, code string) (ExamView, error) {
	e, err := s.store.GetExamByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return ExamView{}, err
	}
	return s.view(ctx, callerID, e)
}

func (s *Service) ListMyExams(ctx context.Context, callerID int64) ([]exam.Exam, error) {
	return s.store.ListExamsByCreator(ctx, callerID)
}

func (s *Service) UpdateExam(ctx context.Context, callerID, examID int64, p exam.ExamPatch) (exam.Exam, error) {
	e, err := s.ownedExam(ctx, callerID, examID)
	if err != nil {
		return exam.Exam{}, err
	}
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		p.Title = &t
	}
	if p.Subject != nil {
		t := strings.TrimSpace(*p.Subject)
		p.Subject = &t
	}
	if err := validateExam(p.Apply(e)); err != nil {
		return exam.Exam{}, err
	}
	return s.store.UpdateExam(ctx, examID, p)
}

func (s *Service) DeleteExam(ctx context.Context, callerID, examID int64) error {
	e, err := s.ownedExam(ctx, callerID, examID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteExam(ctx, examID); err != nil {
		return err
	}
	s.dropAttachment(e)
	s.log.Info("exam deleted", "exam_id", examID, "creator_id", callerID)
	return nil
}

// SetAttachment stores an uploaded file and points the exam at it,
// replacing any earlier attachment.
func (s *Service) SetAttachment(ctx context.Context, callerID, examID int64, filename string, r io.Reader) (exam.Exam, error) {
	if s.blobs == nil {
		return exam.Exam{}, fmt.Errorf("%w: attachments are not enabled", exam.ErrValidation)
	}
	e, err := s.ownedExam(ctx, callerID, examID)
	if err != nil {
		return exam.Exam{}, err
	}
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	key := fmt.Sprintf("exams/%d/%s%s", examID, uuid.NewString(), ext)
	key, err = s.blobs.Put(key, r)
	if err != nil {
		return exam.Exam{}, err
	}
	url := s.blobs.URL(key)
	updated, err := s.store.UpdateExam(ctx, examID, exam.ExamPatch{Attachment: &url})
	if err != nil {
		_ = s.blobs.Delete(key)
		return exam.Exam{}, err
	}
	s.dropAttachment(e)
	return updated, nil
}

func (s *Service) dropAttachment(e exam.Exam) {
	if s.blobs == nil || e.Attachment == "" {
		return
	}
	type keyed interface {
		KeyFromURL(string) (string, bool)
	}
	kb, ok := s.blobs.(keyed)
	if !ok {
		return
	}
	if key, ok := kb.KeyFromURL(e.Attachment); ok {
		if err := s.blobs.Delete(key); err != nil {
			s.log.Warn("attachment delete failed", "exam_id", e.ID, "error", err)
		}
	}
}

// ---- questions ----

// AddQuestion appends q to an owned exam. A zero Order places it last.
func (s *Service) AddQuestion(ctx context.Context, callerID, examID int64, q exam.Question) (exam.Question, error) {
	e, err := s.ownedExam(ctx, callerID, examID)
	if err != nil {
		return exam.Question{}, err
	}
	q.ID = 0
	q.ExamID = e.ID
	q.Text = strings.TrimSpace(q.Text)
	if q.Order == 0 {
		existing, err := s.store.ListQuestions(ctx, e.ID)
		if err != nil {
			return exam.Question{}, err
		}
		q.Order = 1
		if n := len(existing); n > 0 {
			q.Order = existing[n-1].Order + 1
		}
	}
	if err := ValidateQuestion(q); err != nil {
		return exam.Question{}, err
	}
	return s.store.CreateQuestion(ctx, q)
}

func (s *Service) UpdateQuestion(ctx context.Context, callerID, questionID int64, u QuestionUpdate) (exam.Question, error) {
	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return exam.Question{}, err
	}
	if _, err := s.ownedExam(ctx, callerID, q.ExamID); err != nil {
		return exam.Question{}, err
	}
	p := u.QuestionPatch
	if p.Text != nil {
		t := strings.TrimSpace(*p.Text)
		p.Text = &t
	}
	merged := p.Apply(q)
	if len(u.CorrectAnswers) > 0 && string(u.CorrectAnswers) != "null" {
		key, err := exam.ParseAnswerKey(merged.Type, u.CorrectAnswers)
		if err != nil {
			return exam.Question{}, err
		}
		p.CorrectAnswers = &key
		merged = p.Apply(q)
	}
	if err := ValidateQuestion(merged); err != nil {
		return exam.Question{}, err
	}
	if gradingChanged(q, merged) {
		if err := s.requireNoSubmissions(ctx, q.ExamID); err != nil {
			return exam.Question{}, err
		}
	}
	return s.store.UpdateQuestion(ctx, questionID, p)
}

func (s *Service) DeleteQuestion(ctx context.Context, callerID, questionID int64) error {
	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return err
	}
	if _, err := s.ownedExam(ctx, callerID, q.ExamID); err != nil {
		return err
	}
	if err := s.requireNoSubmissions(ctx, q.ExamID); err != nil {
		return err
	}
	return s.store.DeleteQuestion(ctx, questionID)
}

func (s *Service) ListQuestions(ctx context.Context, callerID, examID int64) ([]exam.Question, error) {
	v, err := s.GetExam(ctx, callerID, examID)
	if err != nil {
		return nil, err
	}
	return v.Questions, nil
}

// ---- helpers ----

func (s *Service) ownedExam(ctx context.Context, callerID, examID int64) (exam.Exam, error) {
	e, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return exam.Exam{}, err
	}
	if err := rbac.RequireExamOwner(callerID, e); err != nil {
		return exam.Exam{}, err
	}
	return e, nil
}

// requireNoSubmissions guards edits that would change how stored answers
// were graded. Once an exam has been attempted its scoring is frozen.
func (s *Service) requireNoSubmissions(ctx context.Context, examID int64) error {
	subs, err := s.store.ListSubmissions(ctx, exam.SubmissionFilter{ExamID: examID})
	if err != nil {
		return err
	}
	if len(subs) > 0 {
		return fmt.Errorf("%w: exam %d already has submissions", exam.ErrConflict, examID)
	}
	return nil
}

func gradingChanged(old, updated exam.Question) bool {
	if old.Type != updated.Type || old.Marks != updated.Marks || !slices.Equal(old.Options, updated.Options) {
		return true
	}
	a, b := old.CorrectAnswers, updated.CorrectAnswers
	if a == nil || b == nil {
		return a != b
	}
	return a.Type != b.Type || a.Option != b.Option || a.Truth != b.Truth || !slices.Equal(a.References, b.References)
}

func (s *Service) view(ctx context.Context, callerID int64, e exam.Exam) (ExamView, error) {
	questions, err := s.store.ListQuestions(ctx, e.ID)
	if err != nil {
		return ExamView{}, err
	}
	owner := rbac.IsExamOwner(callerID, e)
	if !owner {
		for i := range questions {
			questions[i] = questions[i].Public()
		}
	}
	return ExamView{Exam: e, Questions: questions, IsOwner: owner}, nil
}

func validateExam(e exam.Exam) error {
	switch {
	case e.Title == "":
		return fmt.Errorf("%w: title is required", exam.ErrValidation)
	case e.Subject == "":
		return fmt.Errorf("%w: subject is required", exam.ErrValidation)
	case e.Duration <= 0:
		return fmt.Errorf("%w: duration must be a positive number of minutes", exam.ErrValidation)
	}
	return nil
}

// ValidateQuestion checks the shape rules a question must meet before it is stored.
func ValidateQuestion(q exam.Question) error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{exam.ErrValidation}, args...)...)
	}
	if !q.Type.Valid() {
		return invalid("unknown question type %q", q.Type)
	}
	if strings.TrimSpace(q.Text) == "" {
		return invalid("question text is required")
	}
	if q.Marks <= 0 {
		return invalid("marks must be positive")
	}
	if q.Order <= 0 {
		return invalid("order must be positive")
	}
	if q.Type == exam.TypeMultipleChoice {
		if len(q.Options) == 0 {
			return invalid("multipleChoice questions need options")
		}
		for i, o := range q.Options {
			if strings.TrimSpace(o) == "" {
				return invalid("option %d is empty", i)
			}
		}
	} else if len(q.Options) > 0 {
		return invalid("only multipleChoice questions take options")
	}

	k := q.CorrectAnswers
	if k == nil {
		return invalid("correctAnswers is required")
	}
	if k.Type != q.Type {
		return invalid("correctAnswers do not match question type %s", q.Type)
	}
	switch q.Type {
	case exam.TypeMultipleChoice:
		idx, err := strconv.Atoi(k.Option)
		if err != nil || idx < 0 || idx >= len(q.Options) || strconv.Itoa(idx) != k.Option {
			return invalid("correct option %q is not an index into options", k.Option)
		}
	case exam.TypeEssay:
		ok := false
		for _, r := range k.References {
			if strings.TrimSpace(r) != "" {
				ok = true
				break
			}
		}
		if !ok {
			return invalid("essay questions need at least one reference answer")
		}
	}
	return nil
}
