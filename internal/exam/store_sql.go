package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLStore persists the entity store through database/sql. Queries use $n
// placeholders, which both the pgx and modernc sqlite drivers accept.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ---- users ----

const userCols = `id, username, name, email, password_hash, created_at`

func scanUser(r rowScanner) (User, error) {
	var u User
	var created int64
	if err := r.Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.PasswordHash, &created); err != nil {
		return User{}, err
	}
	u.CreatedAt = fromMillis(created)
	return u, nil
}

func (s *SQLStore) CreateUser(ctx context.Context, u User) (User, error) {
	if _, err := s.GetUserByUsername(ctx, u.Username); err == nil {
		return User{}, fmt.Errorf("%w: username already in use", ErrValidation)
	}
	if _, err := s.GetUserByEmail(ctx, u.Email); err == nil {
		return User{}, fmt.Errorf("%w: email already in use", ErrValidation)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, name, email, password_hash, created_at)
		 VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		u.Username, u.Name, u.Email, u.PasswordHash, toMillis(u.CreatedAt)).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, fmt.Errorf("%w: username or email already in use", ErrValidation)
		}
		return User{}, err
	}
	return u, nil
}

func (s *SQLStore) GetUser(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
	return u, mapNoRows(err, "user", id)
}

func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE username=$1`, username))
	return u, mapNoRows(err, "user", username)
}

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE lower(email)=lower($1)`, email))
	return u, mapNoRows(err, "user", email)
}

// ---- exams ----

const examCols = `id, code, title, subject, description, instructions, duration, attachment, creator_id, created_at`

func scanExam(r rowScanner) (Exam, error) {
	var e Exam
	var created int64
	if err := r.Scan(&e.ID, &e.Code, &e.Title, &e.Subject, &e.Description, &e.Instructions,
		&e.Duration, &e.Attachment, &e.CreatorID, &created); err != nil {
		return Exam{}, err
	}
	e.CreatedAt = fromMillis(created)
	return e, nil
}

func (s *SQLStore) CreateExam(ctx context.Context, e Exam) (Exam, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO exams (code, title, subject, description, instructions, duration, attachment, creator_id, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		e.Code, e.Title, e.Subject, e.Description, e.Instructions, e.Duration, e.Attachment,
		e.CreatorID, toMillis(e.CreatedAt)).Scan(&e.ID)
	switch {
	case err == nil:
		return e, nil
	case isUniqueViolation(err):
		return Exam{}, ErrCodeTaken
	case isForeignKeyViolation(err):
		return Exam{}, notFound("user", e.CreatorID)
	}
	return Exam{}, err
}

func (s *SQLStore) GetExam(ctx context.Context, id int64) (Exam, error) {
	return getExam(ctx, s.db, id)
}

func getExam(ctx context.Context, q queryer, id int64) (Exam, error) {
	e, err := scanExam(q.QueryRowContext(ctx, `SELECT `+examCols+` FROM exams WHERE id=$1`, id))
	return e, mapNoRows(err, "exam", id)
}

func (s *SQLStore) GetExamByCode(ctx context.Context, code string) (Exam, error) {
	e, err := scanExam(s.db.QueryRowContext(ctx, `SELECT `+examCols+` FROM exams WHERE code=$1`, code))
	return e, mapNoRows(err, "exam code", code)
}

func (s *SQLStore) ListExamsByCreator(ctx context.Context, creatorID int64) ([]Exam, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+examCols+` FROM exams WHERE creator_id=$1 ORDER BY id`, creatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Exam{}
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateExam(ctx context.Context, id int64, p ExamPatch) (Exam, error) {
	var out Exam
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		e, err := getExam(ctx, tx, id)
		if err != nil {
			return err
		}
		e = p.Apply(e)
		_, err = tx.ExecContext(ctx,
			`UPDATE exams SET title=$1, subject=$2, description=$3, instructions=$4, duration=$5, attachment=$6
			 WHERE id=$7`,
			e.Title, e.Subject, e.Description, e.Instructions, e.Duration, e.Attachment, id)
		out = e
		return err
	})
	return out, err
}

func (s *SQLStore) DeleteExam(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM exams WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res, "exam", id)
}

// ---- questions ----

const questionCols = `id, exam_id, type, text, options, correct_answers, marks, "order"`

func scanQuestion(r rowScanner) (Question, error) {
	var q Question
	var opts string
	var key sql.NullString
	if err := r.Scan(&q.ID, &q.ExamID, &q.Type, &q.Text, &opts, &key, &q.Marks, &q.Order); err != nil {
		return Question{}, err
	}
	if opts != "" {
		if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
			return Question{}, fmt.Errorf("question %d options: %w", q.ID, err)
		}
		if len(q.Options) == 0 {
			q.Options = nil
		}
	}
	if key.Valid && key.String != "" {
		k, err := ParseAnswerKey(q.Type, json.RawMessage(key.String))
		if err != nil {
			return Question{}, fmt.Errorf("question %d answer key: %w", q.ID, err)
		}
		q.CorrectAnswers = &k
	}
	return q, nil
}

func encodeQuestion(q Question) (opts string, key sql.NullString, err error) {
	o := q.Options
	if o == nil {
		o = []string{}
	}
	ob, err := json.Marshal(o)
	if err != nil {
		return "", key, err
	}
	if q.CorrectAnswers != nil {
		kb, err := json.Marshal(q.CorrectAnswers)
		if err != nil {
			return "", key, err
		}
		key = sql.NullString{String: string(kb), Valid: true}
	}
	return string(ob), key, nil
}

func (s *SQLStore) CreateQuestion(ctx context.Context, q Question) (Question, error) {
	opts, key, err := encodeQuestion(q)
	if err != nil {
		return Question{}, err
	}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO questions (exam_id, type, text, options, correct_answers, marks, "order")
		 VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		q.ExamID, q.Type, q.Text, opts, key, q.Marks, q.Order).Scan(&q.ID)
	switch {
	case err == nil:
		return q, nil
	case isUniqueViolation(err):
		return Question{}, fmt.Errorf("%w: order %d already used in exam", ErrValidation, q.Order)
	case isForeignKeyViolation(err):
		return Question{}, notFound("exam", q.ExamID)
	}
	return Question{}, err
}

func (s *SQLStore) GetQuestion(ctx context.Context, id int64) (Question, error) {
	return getQuestion(ctx, s.db, id)
}

func getQuestion(ctx context.Context, q queryer, id int64) (Question, error) {
	out, err := scanQuestion(q.QueryRowContext(ctx, `SELECT `+questionCols+` FROM questions WHERE id=$1`, id))
	return out, mapNoRows(err, "question", id)
}

func (s *SQLStore) ListQuestions(ctx context.Context, examID int64) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questionCols+` FROM questions WHERE exam_id=$1 ORDER BY "order", id`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateQuestion(ctx context.Context, id int64, p QuestionPatch) (Question, error) {
	var out Question
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		q, err := getQuestion(ctx, tx, id)
		if err != nil {
			return err
		}
		q = p.Apply(q)
		opts, key, err := encodeQuestion(q)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE questions SET type=$1, text=$2, options=$3, correct_answers=$4, marks=$5, "order"=$6
			 WHERE id=$7`,
			q.Type, q.Text, opts, key, q.Marks, q.Order, id)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: order %d already used in exam", ErrValidation, q.Order)
		}
		out = q
		return err
	})
	return out, err
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res, "question", id)
}

// ---- submissions ----

const submissionCols = `id, exam_id, user_id, start_time, end_time, score, completed`

func scanSubmission(r rowScanner) (Submission, error) {
	var sub Submission
	var start int64
	var end, score sql.NullInt64
	if err := r.Scan(&sub.ID, &sub.ExamID, &sub.UserID, &start, &end, &score, &sub.Completed); err != nil {
		return Submission{}, err
	}
	sub.StartTime = fromMillis(start)
	if end.Valid {
		t := fromMillis(end.Int64)
		sub.EndTime = &t
	}
	sub.Score = intPtr(score)
	return sub, nil
}

func (s *SQLStore) CreateSubmission(ctx context.Context, sub Submission) (Submission, error) {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO submissions (exam_id, user_id, start_time, completed)
		 VALUES ($1,$2,$3,$4) RETURNING id`,
		sub.ExamID, sub.UserID, toMillis(sub.StartTime), false).Scan(&sub.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return Submission{}, fmt.Errorf("%w: exam %d or user %d", ErrNotFound, sub.ExamID, sub.UserID)
		}
		return Submission{}, err
	}
	sub.Completed, sub.EndTime, sub.Score = false, nil, nil
	return sub, nil
}

func (s *SQLStore) GetSubmission(ctx context.Context, id int64) (Submission, error) {
	return getSubmission(ctx, s.db, id)
}

func getSubmission(ctx context.Context, q queryer, id int64) (Submission, error) {
	sub, err := scanSubmission(q.QueryRowContext(ctx, `SELECT `+submissionCols+` FROM submissions WHERE id=$1`, id))
	return sub, mapNoRows(err, "submission", id)
}

func (s *SQLStore) ListSubmissions(ctx context.Context, f SubmissionFilter) ([]Submission, error) {
	var where []string
	var args []any
	if f.ExamID != 0 {
		args = append(args, f.ExamID)
		where = append(where, fmt.Sprintf("exam_id=$%d", len(args)))
	}
	if f.UserID != 0 {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("user_id=$%d", len(args)))
	}
	q := `SELECT ` + submissionCols + ` FROM submissions`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	rows, err := s.db.QueryContext(ctx, q+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SQLStore) FindActiveSubmission(ctx context.Context, examID, userID int64) (Submission, error) {
	sub, err := scanSubmission(s.db.QueryRowContext(ctx,
		`SELECT `+submissionCols+` FROM submissions
		 WHERE exam_id=$1 AND user_id=$2 AND completed=$3
		 ORDER BY id DESC LIMIT 1`, examID, userID, false))
	return sub, mapNoRows(err, "active submission for exam", examID)
}

func (s *SQLStore) CompleteSubmission(ctx context.Context, id int64, score int, end time.Time) (Submission, error) {
	var out Submission
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE submissions SET completed=$1, score=$2, end_time=$3 WHERE id=$4 AND completed=$5`,
			true, score, toMillis(end), id, false)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			if _, err := getSubmission(ctx, tx, id); err != nil {
				return err
			}
			return ErrAlreadyCompleted
		}
		out, err = getSubmission(ctx, tx, id)
		return err
	})
	return out, err
}

// ---- answers ----

// Answer rows are read joined with their question so the stored JSON can be
// decoded by question type.
const answerSelect = `SELECT a.id, a.submission_id, a.question_id, q.type, a.answer,
	a.is_correct, a.score, a.needs_review, a.review_comment
	FROM answers a JOIN questions q ON q.id = a.question_id`

func scanAnswer(r rowScanner) (Answer, error) {
	var a Answer
	var t QuestionType
	var raw string
	var correct sql.NullBool
	var score sql.NullInt64
	var comment sql.NullString
	if err := r.Scan(&a.ID, &a.SubmissionID, &a.QuestionID, &t, &raw,
		&correct, &score, &a.NeedsReview, &comment); err != nil {
		return Answer{}, err
	}
	resp, err := ParseResponse(t, json.RawMessage(raw))
	if err != nil {
		return Answer{}, fmt.Errorf("answer %d: %w", a.ID, err)
	}
	a.Answer = resp
	if correct.Valid {
		v := correct.Bool
		a.IsCorrect = &v
	}
	a.Score = intPtr(score)
	if comment.Valid {
		v := comment.String
		a.ReviewComment = &v
	}
	return a, nil
}

func (s *SQLStore) UpsertAnswer(ctx context.Context, a Answer) (Answer, error) {
	raw, err := json.Marshal(a.Answer)
	if err != nil {
		return Answer{}, err
	}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO answers (submission_id, question_id, answer, is_correct, score, needs_review, review_comment)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (submission_id, question_id) DO UPDATE SET
		   answer=EXCLUDED.answer, is_correct=EXCLUDED.is_correct, score=EXCLUDED.score,
		   needs_review=EXCLUDED.needs_review, review_comment=EXCLUDED.review_comment
		 RETURNING id`,
		a.SubmissionID, a.QuestionID, string(raw), nullBool(a.IsCorrect), nullInt(a.Score),
		a.NeedsReview, nullString(a.ReviewComment)).Scan(&a.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return Answer{}, fmt.Errorf("%w: submission %d or question %d", ErrNotFound, a.SubmissionID, a.QuestionID)
		}
		return Answer{}, err
	}
	return a, nil
}

func (s *SQLStore) GetAnswer(ctx context.Context, id int64) (Answer, error) {
	return getAnswer(ctx, s.db, id)
}

func getAnswer(ctx context.Context, q queryer, id int64) (Answer, error) {
	a, err := scanAnswer(q.QueryRowContext(ctx, answerSelect+` WHERE a.id=$1`, id))
	return a, mapNoRows(err, "answer", id)
}

func (s *SQLStore) ListAnswers(ctx context.Context, submissionID int64) ([]Answer, error) {
	rows, err := s.db.QueryContext(ctx, answerSelect+` WHERE a.submission_id=$1 ORDER BY a.id`, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Answer{}
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ---- review requests ----

const reviewCols = `id, answer_id, user_id, reason, status, created_at, resolved_at, resolved_by`

func scanReview(r rowScanner) (ReviewRequest, error) {
	var rr ReviewRequest
	var created int64
	var resolvedAt, resolvedBy sql.NullInt64
	if err := r.Scan(&rr.ID, &rr.AnswerID, &rr.UserID, &rr.Reason, &rr.Status,
		&created, &resolvedAt, &resolvedBy); err != nil {
		return ReviewRequest{}, err
	}
	rr.CreatedAt = fromMillis(created)
	if resolvedAt.Valid {
		t := fromMillis(resolvedAt.Int64)
		rr.ResolvedAt = &t
	}
	if resolvedBy.Valid {
		v := resolvedBy.Int64
		rr.ResolvedBy = &v
	}
	return rr, nil
}

func (s *SQLStore) OpenReviewRequest(ctx context.Context, rr ReviewRequest) (ReviewRequest, error) {
	rr.Status = ReviewPending
	rr.ResolvedAt, rr.ResolvedBy = nil, nil
	if rr.CreatedAt.IsZero() {
		rr.CreatedAt = time.Now()
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE answers SET needs_review=$1 WHERE id=$2`, true, rr.AnswerID)
		if err != nil {
			return err
		}
		if err := requireAffected(res, "answer", rr.AnswerID); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx,
			`INSERT INTO review_requests (answer_id, user_id, reason, status, created_at)
			 VALUES ($1,$2,$3,$4,$5) RETURNING id`,
			rr.AnswerID, rr.UserID, rr.Reason, rr.Status, toMillis(rr.CreatedAt)).Scan(&rr.ID)
	})
	if err != nil {
		return ReviewRequest{}, err
	}
	return rr, nil
}

func (s *SQLStore) GetReviewRequest(ctx context.Context, id int64) (ReviewRequest, error) {
	return getReview(ctx, s.db, id)
}

func getReview(ctx context.Context, q queryer, id int64) (ReviewRequest, error) {
	rr, err := scanReview(q.QueryRowContext(ctx, `SELECT `+reviewCols+` FROM review_requests WHERE id=$1`, id))
	return rr, mapNoRows(err, "review request", id)
}

func (s *SQLStore) ListReviewRequests(ctx context.Context, answerID int64) ([]ReviewRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reviewCols+` FROM review_requests WHERE answer_id=$1 ORDER BY id`, answerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ReviewRequest{}
	for rows.Next() {
		rr, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

func (s *SQLStore) ApplyReview(ctx context.Context, r AnswerReview) (Answer, error) {
	var out Answer
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE answers SET score=$1, review_comment=$2, needs_review=$3 WHERE id=$4`,
			r.Score, r.Comment, false, r.AnswerID)
		if err != nil {
			return err
		}
		if err := requireAffected(res, "answer", r.AnswerID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE review_requests SET status=$1, resolved_at=$2, resolved_by=$3
			 WHERE answer_id=$4 AND status=$5`,
			ReviewResolved, toMillis(r.At), r.ReviewerID, r.AnswerID, ReviewPending); err != nil {
			return err
		}
		out, err = getAnswer(ctx, tx, r.AnswerID)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE submissions
			 SET score=(SELECT COALESCE(SUM(score), 0) FROM answers WHERE submission_id=$1)
			 WHERE id=$2 AND completed=$3`,
			out.SubmissionID, out.SubmissionID, true)
		return err
	})
	return out, err
}

func (s *SQLStore) RejectReviewRequest(ctx context.Context, id, by int64, at time.Time) (ReviewRequest, error) {
	var out ReviewRequest
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rr, err := getReview(ctx, tx, id)
		if err != nil {
			return err
		}
		if rr.Status != ReviewPending {
			return fmt.Errorf("%w: review request is %s", ErrConflict, rr.Status)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE review_requests SET status=$1, resolved_at=$2, resolved_by=$3 WHERE id=$4`,
			ReviewRejected, toMillis(at), by, id); err != nil {
			return err
		}
		out, err = getReview(ctx, tx, id)
		return err
	})
	return out, err
}

// ---- helpers ----

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms) }

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullBool(p *bool) sql.NullBool {
	if p == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *p, Valid: true}
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func mapNoRows(err error, kind string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(kind, id)
	}
	return err
}

func requireAffected(res sql.Result, kind string, id any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return isSQLiteConstraint(err, "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return isSQLiteConstraint(err, "FOREIGN KEY constraint failed")
}

// isSQLiteConstraint matches on the message as well as the code because the
// driver may report either the primary or the extended result code.
func isSQLiteConstraint(err error, msg string) bool {
	var liteErr *sqlite.Error
	if !errors.As(err, &liteErr) {
		return false
	}
	return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), msg)
}

var _ Store = (*SQLStore)(nil)
