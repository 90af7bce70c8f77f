package exam

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryStore struct {
	mu        sync.RWMutex
	users     map[int64]User
	exams     map[int64]Exam
	questions map[int64]Question
	subs      map[int64]Submission
	answers   map[int64]Answer
	reviews   map[int64]ReviewRequest
	seq       map[string]int64
}

func NewInMemoryStore() Store {
	return &memoryStore{
		users:     map[int64]User{},
		exams:     map[int64]Exam{},
		questions: map[int64]Question{},
		subs:      map[int64]Submission{},
		answers:   map[int64]Answer{},
		reviews:   map[int64]ReviewRequest{},
		seq:       map[string]int64{},
	}
}

func (m *memoryStore) next(kind string) int64 {
	m.seq[kind]++
	return m.seq[kind]
}

// ---- users ----

func (m *memoryStore) CreateUser(_ context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.users {
		if x.Username == u.Username {
			return User{}, fmt.Errorf("%w: username already in use", ErrValidation)
		}
		if strings.EqualFold(x.Email, u.Email) {
			return User{}, fmt.Errorf("%w: email already in use", ErrValidation)
		}
	}
	u.ID = m.next("user")
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *memoryStore) GetUser(_ context.Context, id int64) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, notFound("user", id)
	}
	return u, nil
}

func (m *memoryStore) GetUserByUsername(_ context.Context, username string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, notFound("user", username)
}

func (m *memoryStore) GetUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, notFound("user", email)
}

// ---- exams ----

func (m *memoryStore) CreateExam(_ context.Context, e Exam) (Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.exams {
		if x.Code == e.Code {
			return Exam{}, ErrCodeTaken
		}
	}
	e.ID = m.next("exam")
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	m.exams[e.ID] = e
	return e, nil
}

func (m *memoryStore) GetExam(_ context.Context, id int64) (Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.exams[id]
	if !ok {
		return Exam{}, notFound("exam", id)
	}
	return e, nil
}

func (m *memoryStore) GetExamByCode(_ context.Context, code string) (Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.exams {
		if e.Code == code {
			return e, nil
		}
	}
	return Exam{}, notFound("exam code", code)
}

func (m *memoryStore) ListExamsByCreator(_ context.Context, creatorID int64) ([]Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Exam{}
	for _, e := range m.exams {
		if e.CreatorID == creatorID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) UpdateExam(_ context.Context, id int64, p ExamPatch) (Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exams[id]
	if !ok {
		return Exam{}, notFound("exam", id)
	}
	e = p.Apply(e)
	m.exams[id] = e
	return e, nil
}

func (m *memoryStore) DeleteExam(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exams[id]; !ok {
		return notFound("exam", id)
	}
	for qid, q := range m.questions {
		if q.ExamID == id {
			m.deleteQuestionLocked(qid)
		}
	}
	for sid, s := range m.subs {
		if s.ExamID == id {
			delete(m.subs, sid)
		}
	}
	delete(m.exams, id)
	return nil
}

// ---- questions ----

func (m *memoryStore) orderTakenLocked(examID int64, order int, except int64) bool {
	for _, q := range m.questions {
		if q.ExamID == examID && q.Order == order && q.ID != except {
			return true
		}
	}
	return false
}

func (m *memoryStore) CreateQuestion(_ context.Context, q Question) (Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exams[q.ExamID]; !ok {
		return Question{}, notFound("exam", q.ExamID)
	}
	if m.orderTakenLocked(q.ExamID, q.Order, 0) {
		return Question{}, fmt.Errorf("%w: order %d already used in exam", ErrValidation, q.Order)
	}
	q.ID = m.next("question")
	m.questions[q.ID] = cloneQuestion(q)
	return cloneQuestion(q), nil
}

func (m *memoryStore) GetQuestion(_ context.Context, id int64) (Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return Question{}, notFound("question", id)
	}
	return cloneQuestion(q), nil
}

func (m *memoryStore) ListQuestions(_ context.Context, examID int64) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Question{}
	for _, q := range m.questions {
		if q.ExamID == examID {
			out = append(out, cloneQuestion(q))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (m *memoryStore) UpdateQuestion(_ context.Context, id int64, p QuestionPatch) (Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return Question{}, notFound("question", id)
	}
	q = p.Apply(q)
	if m.orderTakenLocked(q.ExamID, q.Order, q.ID) {
		return Question{}, fmt.Errorf("%w: order %d already used in exam", ErrValidation, q.Order)
	}
	m.questions[id] = cloneQuestion(q)
	return cloneQuestion(q), nil
}

func (m *memoryStore) DeleteQuestion(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[id]; !ok {
		return notFound("question", id)
	}
	m.deleteQuestionLocked(id)
	return nil
}

// deleteQuestionLocked drops a question with its answers and their review requests.
func (m *memoryStore) deleteQuestionLocked(id int64) {
	for aid, a := range m.answers {
		if a.QuestionID != id {
			continue
		}
		for rid, rr := range m.reviews {
			if rr.AnswerID == aid {
				delete(m.reviews, rid)
			}
		}
		delete(m.answers, aid)
	}
	delete(m.questions, id)
}

// ---- submissions ----

func (m *memoryStore) CreateSubmission(_ context.Context, s Submission) (Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exams[s.ExamID]; !ok {
		return Submission{}, notFound("exam", s.ExamID)
	}
	if _, ok := m.users[s.UserID]; !ok {
		return Submission{}, notFound("user", s.UserID)
	}
	s.ID = m.next("submission")
	s.Completed, s.EndTime, s.Score = false, nil, nil
	m.subs[s.ID] = s
	return s, nil
}

func (m *memoryStore) GetSubmission(_ context.Context, id int64) (Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subs[id]
	if !ok {
		return Submission{}, notFound("submission", id)
	}
	return s, nil
}

func (m *memoryStore) ListSubmissions(_ context.Context, f SubmissionFilter) ([]Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Submission{}
	for _, s := range m.subs {
		if f.ExamID != 0 && s.ExamID != f.ExamID {
			continue
		}
		if f.UserID != 0 && s.UserID != f.UserID {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) FindActiveSubmission(_ context.Context, examID, userID int64) (Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found *Submission
	for _, s := range m.subs {
		if s.ExamID == examID && s.UserID == userID && !s.Completed {
			if found == nil || s.ID > found.ID {
				s := s
				found = &s
			}
		}
	}
	if found == nil {
		return Submission{}, notFound("active submission for exam", examID)
	}
	return *found, nil
}

func (m *memoryStore) CompleteSubmission(_ context.Context, id int64, score int, end time.Time) (Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return Submission{}, notFound("submission", id)
	}
	if s.Completed {
		return Submission{}, ErrAlreadyCompleted
	}
	s.Completed = true
	s.Score = &score
	s.EndTime = &end
	m.subs[id] = s
	return s, nil
}

// ---- answers ----

func (m *memoryStore) UpsertAnswer(_ context.Context, a Answer) (Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[a.SubmissionID]; !ok {
		return Answer{}, notFound("submission", a.SubmissionID)
	}
	if _, ok := m.questions[a.QuestionID]; !ok {
		return Answer{}, notFound("question", a.QuestionID)
	}
	for id, x := range m.answers {
		if x.SubmissionID == a.SubmissionID && x.QuestionID == a.QuestionID {
			a.ID = id
			m.answers[id] = cloneAnswer(a)
			return cloneAnswer(a), nil
		}
	}
	a.ID = m.next("answer")
	m.answers[a.ID] = cloneAnswer(a)
	return cloneAnswer(a), nil
}

func (m *memoryStore) GetAnswer(_ context.Context, id int64) (Answer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.answers[id]
	if !ok {
		return Answer{}, notFound("answer", id)
	}
	return cloneAnswer(a), nil
}

func (m *memoryStore) ListAnswers(_ context.Context, submissionID int64) ([]Answer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.answersLocked(submissionID), nil
}

func (m *memoryStore) answersLocked(submissionID int64) []Answer {
	out := []Answer{}
	for _, a := range m.answers {
		if a.SubmissionID == submissionID {
			out = append(out, cloneAnswer(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ---- review requests ----

func (m *memoryStore) OpenReviewRequest(_ context.Context, rr ReviewRequest) (ReviewRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.answers[rr.AnswerID]
	if !ok {
		return ReviewRequest{}, notFound("answer", rr.AnswerID)
	}
	a.NeedsReview = true
	m.answers[a.ID] = a

	rr.ID = m.next("review")
	if rr.CreatedAt.IsZero() {
		rr.CreatedAt = time.Now()
	}
	rr.Status = ReviewPending
	rr.ResolvedAt, rr.ResolvedBy = nil, nil
	m.reviews[rr.ID] = rr
	return rr, nil
}

func (m *memoryStore) GetReviewRequest(_ context.Context, id int64) (ReviewRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rr, ok := m.reviews[id]
	if !ok {
		return ReviewRequest{}, notFound("review request", id)
	}
	return rr, nil
}

func (m *memoryStore) ListReviewRequests(_ context.Context, answerID int64) ([]ReviewRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []ReviewRequest{}
	for _, rr := range m.reviews {
		if rr.AnswerID == answerID {
			out = append(out, rr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) ApplyReview(_ context.Context, r AnswerReview) (Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.answers[r.AnswerID]
	if !ok {
		return Answer{}, notFound("answer", r.AnswerID)
	}
	score, comment := r.Score, r.Comment
	a.Score = &score
	a.ReviewComment = &comment
	a.NeedsReview = false
	m.answers[a.ID] = a

	for id, rr := range m.reviews {
		if rr.AnswerID == a.ID && rr.Status == ReviewPending {
			at, by := r.At, r.ReviewerID
			rr.Status = ReviewResolved
			rr.ResolvedAt = &at
			rr.ResolvedBy = &by
			m.reviews[id] = rr
		}
	}

	if s, ok := m.subs[a.SubmissionID]; ok && s.Completed {
		total := SumScores(m.answersLocked(s.ID))
		s.Score = &total
		m.subs[s.ID] = s
	}
	return cloneAnswer(a), nil
}

func (m *memoryStore) RejectReviewRequest(_ context.Context, id, by int64, at time.Time) (ReviewRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rr, ok := m.reviews[id]
	if !ok {
		return ReviewRequest{}, notFound("review request", id)
	}
	if rr.Status != ReviewPending {
		return ReviewRequest{}, fmt.Errorf("%w: review request is %s", ErrConflict, rr.Status)
	}
	rr.Status = ReviewRejected
	rr.ResolvedAt = &at
	rr.ResolvedBy = &by
	m.reviews[id] = rr
	return rr, nil
}

func cloneQuestion(q Question) Question {
	if q.Options != nil {
		q.Options = append([]string(nil), q.Options...)
	}
	if q.CorrectAnswers != nil {
		k := *q.CorrectAnswers
		k.References = append([]string(nil), k.References...)
		q.CorrectAnswers = &k
	}
	return q
}

func cloneAnswer(a Answer) Answer {
	if a.Answer.Selected != nil {
		a.Answer.Selected = append([]string(nil), a.Answer.Selected...)
	}
	if a.IsCorrect != nil {
		v := *a.IsCorrect
		a.IsCorrect = &v
	}
	if a.Score != nil {
		v := *a.Score
		a.Score = &v
	}
	if a.ReviewComment != nil {
		v := *a.ReviewComment
		a.ReviewComment = &v
	}
	return a
}
