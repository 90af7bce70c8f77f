package exam_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/examhall/internal/db"
	"github.com/mind-engage/examhall/internal/exam"
)

// eachStore runs fn against the in-memory store and a temp-file sqlite store.
func eachStore(t *testing.T, fn func(t *testing.T, s exam.Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, exam.NewInMemoryStore())
	})
	t.Run("sqlite", func(t *testing.T) {
		conn, err := db.Open(context.Background(), db.DriverSQLite,
			"file:"+filepath.Join(t.TempDir(), "exam.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })
		fn(t, exam.NewSQLStore(conn))
	})
}

type fixture struct {
	creator, student exam.User
	exam             exam.Exam
	choice, essay    exam.Question
}

func seed(t *testing.T, s exam.Store) fixture {
	t.Helper()
	ctx := context.Background()
	var f fixture
	var err error
	f.creator, err = s.CreateUser(ctx, exam.User{Username: "prof", Name: "Prof", Email: "prof@example.com", PasswordHash: "x"})
	require.NoError(t, err)
	f.student, err = s.CreateUser(ctx, exam.User{Username: "ada", Name: "Ada", Email: "ada@example.com", PasswordHash: "x"})
	require.NoError(t, err)
	f.exam, err = s.CreateExam(ctx, exam.Exam{Code: "ABCDEFGH", Title: "Geo", Subject: "Geography", Duration: 30, CreatorID: f.creator.ID})
	require.NoError(t, err)
	mc := exam.MultipleChoiceKey(0)
	f.choice, err = s.CreateQuestion(ctx, exam.Question{ExamID: f.exam.ID, Type: exam.TypeMultipleChoice, Text: "Capital?",
		Options: []string{"Paris", "Lyon", "Nice"}, CorrectAnswers: &mc, Marks: 10, Order: 2})
	require.NoError(t, err)
	ek := exam.EssayKey("ref")
	f.essay, err = s.CreateQuestion(ctx, exam.Question{ExamID: f.exam.ID, Type: exam.TypeEssay, Text: "Why?",
		CorrectAnswers: &ek, Marks: 20, Order: 1})
	require.NoError(t, err)
	return f
}

func TestStoreUsers(t *testing.T) {
	eachStore(t, func(t *testing.T, s exam.Store) {
		ctx := context.Background()
		f := seed(t, s)

		got, err := s.GetUserByUsername(ctx, "ada")
		require.NoError(t, err)
		assert.Equal(t, f.student.ID, got.ID)

		got, err = s.GetUserByEmail(ctx, "ADA@example.com")
		require.NoError(t, err)
		assert.Equal(t, f.student.ID, got.ID)

		_, err = s.CreateUser(ctx, exam.User{Username: "ada", Email: "other@example.com"})
		assert.ErrorIs(t, err, exam.ErrValidation)
		_, err = s.CreateUser(ctx, exam.User{Username: "other", Email: "ada@example.com"})
		assert.ErrorIs(t, err, exam.ErrValidation)

		_, err = s.GetUser(ctx, 999)
		assert.ErrorIs(t, err, exam.ErrNotFound)
	})
}

func TestStoreExams(t *testing.T) {
	eachStore(t, func(t *testing.T, s exam.Store) {
		ctx := context.Background()
		f := seed(t, s)

		byCode, err := s.GetExamByCode(ctx, "ABCDEFGH")
		require.NoError(t, err)
		assert.Equal(t, f.exam.ID, byCode.ID)

		_, err = s.CreateExam(ctx, exam.Exam{Code: "ABCDEFGH", Title: "Dup", Subject: "x", Duration: 5, CreatorID: f.creator.ID})
		assert.ErrorIs(t, err, exam.ErrCodeTaken)

		codes := []string{"ABCDEFGH", "ZZZZZZZZ"}
		gen := func() (string, error) {
			c := codes[0]
			codes = codes[1:]
			return c, nil
		}
		second, err := exam.CreateWithCode(ctx, s, exam.Exam{Title: "Second", Subject: "x", Duration: 5, CreatorID: f.creator.ID}, gen)
		require.NoError(t, err)
		assert.Equal(t, "ZZZZZZZZ", second.Code)
		assert.Greater(t, second.ID, f.exam.ID)

		title := "Geography 101"
		updated, err := s.UpdateExam(ctx, f.exam.ID, exam.ExamPatch{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, title, updated.Title)
		assert.Equal(t, "Geography", updated.Subject)
		assert.Equal(t, "ABCDEFGH", updated.Code)

		mine, err := s.ListExamsByCreator(ctx, f.creator.ID)
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, f.exam.ID, mine[0].ID)

		_, err = s.GetExam(ctx, 999)
		assert.ErrorIs(t, err, exam.ErrNotFound)
		_, err = s.UpdateExam(ctx, 999, exam.ExamPatch{Title: &title})
		assert.ErrorIs(t, err, exam.ErrNotFound)
	})
}

func TestStoreQuestions(t *testing.T) {
	eachStore(t, func(t *testing.T, s exam.Store) {
		ctx := context.Background()
		f := seed(t, s)

		qs, err := s.ListQuestions(ctx, f.exam.ID)
		require.NoError(t, err)
		require.Len(t, qs, 2)
		assert.Equal(t, f.essay.ID, qs[0].ID, "ordered by order")
		assert.Equal(t, []string{"Paris", "Lyon", "Nice"}, qs[1].Options)
		require.NotNil(t, qs[1].CorrectAnswers)
		assert.Equal(t, "0", qs[1].CorrectAnswers.Option)

		_, err = s.CreateQuestion(ctx, exam.Question{ExamID: f.exam.ID, Type: exam.TypeEssay, Text: "dup", Marks: 1, Order: 1})
		assert.ErrorIs(t, err, exam.ErrValidation)

		order := 2
		_, err = s.UpdateQuestion(ctx, f.essay.ID, exam.QuestionPatch{Order: &order})
		assert.ErrorIs(t, err, exam.ErrValidation)

		order = 3
		marks := 25
		q, err := s.UpdateQuestion(ctx, f.essay.ID, exam.QuestionPatch{Order: &order, Marks: &marks})
		require.NoError(t, err)
		assert.Equal(t, 3, q.Order)
		assert.Equal(t, 25, q.Marks)
		assert.Equal(t, []string{"ref"}, q.CorrectAnswers.References)

		require.NoError(t, s.DeleteQuestion(ctx, f.essay.ID))
		_, err = s.GetQuestion(ctx, f.essay.ID)
		assert.ErrorIs(t, err, exam.ErrNotFound)
		assert.ErrorIs(t, s.DeleteQuestion(ctx, f.essay.ID), exam.ErrNotFound)
	})
}

func TestStoreSubmissionCompletesOnce(t *testing.T) {
	eachStore(t, func(t *testing.T, s exam.Store) {
		ctx := context.Background()
		f := seed(t, s)
		start := time.UnixMilli(1_700_000_000_000)

		sub, err := s.CreateSubmission(ctx, exam.Submission{ExamID: f.exam.ID, UserID: f.student.ID, StartTime: start})
		require.NoError(t, err)
		assert.False(t, sub.Completed)
		assert.Nil(t, sub.Score)
		assert.Nil(t, sub.EndTime)

		active, err := s.FindActiveSubmission(ctx, f.exam.ID, f.student.ID)
		require.NoError(t, err)
		assert.Equal(t, sub.ID, active.ID)

		end := start.Add(10 * time.Minute)
		done, err := s.CompleteSubmission(ctx, sub.ID, 7, end)
		require.NoError(t, err)
		assert.True(t, done.Completed)
		require.NotNil(t, done.Score)
		assert.Equal(t, 7, *done.Score)
		assert.True(t, end.Equal(*done.EndTime))

		_, err = s.CompleteSubmission(ctx, sub.ID, 99, end.Add(time.Minute))
		assert.ErrorIs(t, err, exam.ErrConflict)
		assert.ErrorIs(t, err, exam.ErrAlreadyCompleted)

		again, err := s.GetSubmission(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, 7, *again.Score)
		assert.True(t, end.Equal(*again.EndTime))

		_, err = s.FindActiveSubmission(ctx, f.exam.ID, f.student.ID)
		assert.ErrorIs(t, err, exam.ErrNotFound)

		_, err = s.CompleteSubmission(ctx, 999, 1, end)
		assert.ErrorIs(t, err, exam.ErrNotFound)

		byUser, err := s.ListSubmissions(ctx, exam.SubmissionFilter{UserID: f.student.ID})
		require.NoError(t, err)
		assert.Len(t, byUser, 1)
		byExam, err := s.ListSubmissions(ctx, exam.SubmissionFilter{ExamID: f.exam.ID, UserID: f.creator.ID})
		require.NoError(t, err)
		assert.Empty(t, byExam)
	})
}

func TestStoreAnswersAndReviews(t *testing.T) {
	eachStore(t, func(t *testing.T, s exam.Store) {
		ctx := context.Background()
		f := seed(t, s)
		sub, err := s.CreateSubmission(ctx, exam.Submission{ExamID: f.exam.ID, UserID: f.student.ID, StartTime: time.Now()})
		require.NoError(t, err)

		no, ten, zero := false, 10, 0
		first, err := s.UpsertAnswer(ctx, exam.Answer{SubmissionID: sub.ID, QuestionID: f.choice.ID,
			Answer: exam.ChoiceResponse("1"), IsCorrect: &no, Score: &zero})
		require.NoError(t, err)

		yes := true
		second, err := s.UpsertAnswer(ctx, exam.Answer{SubmissionID: sub.ID, QuestionID: f.choice.ID,
			Answer: exam.ChoiceResponse("0"), IsCorrect: &yes, Score: &ten})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		_, err = s.UpsertAnswer(ctx, exam.Answer{SubmissionID: sub.ID, QuestionID: f.essay.ID,
			Answer: exam.EssayResponse("my answer"), Score: &zero, NeedsReview: true})
		require.NoError(t, err)

		answers, err := s.ListAnswers(ctx, sub.ID)
		require.NoError(t, err)
		require.Len(t, answers, 2)
		assert.Equal(t, []string{"0"}, answers[0].Answer.Selected)
		assert.True(t, *answers[0].IsCorrect)
		assert.Equal(t, "my answer", answers[1].Answer.Text)
		assert.Nil(t, answers[1].IsCorrect)
		assert.Equal(t, 10, exam.SumScores(answers))

		_, err = s.CompleteSubmission(ctx, sub.ID, exam.SumScores(answers), time.Now())
		require.NoError(t, err)

		r1, err := s.OpenReviewRequest(ctx, exam.ReviewRequest{AnswerID: second.ID, UserID: f.student.ID, Reason: "ambiguous", CreatedAt: time.Now()})
		require.NoError(t, err)
		r2, err := s.OpenReviewRequest(ctx, exam.ReviewRequest{AnswerID: second.ID, UserID: f.student.ID, Reason: "again", CreatedAt: time.Now()})
		require.NoError(t, err)
		assert.Equal(t, exam.ReviewPending, r1.Status)

		flagged, err := s.GetAnswer(ctx, second.ID)
		require.NoError(t, err)
		assert.True(t, flagged.NeedsReview)

		rejected, err := s.RejectReviewRequest(ctx, r2.ID, f.creator.ID, time.Now())
		require.NoError(t, err)
		assert.Equal(t, exam.ReviewRejected, rejected.Status)
		_, err = s.RejectReviewRequest(ctx, r2.ID, f.creator.ID, time.Now())
		assert.ErrorIs(t, err, exam.ErrConflict)

		essayAnswer := answers[1]
		reviewed, err := s.ApplyReview(ctx, exam.AnswerReview{AnswerID: essayAnswer.ID, Score: 18, Comment: "good", ReviewerID: f.creator.ID, At: time.Now()})
		require.NoError(t, err)
		assert.Equal(t, 18, *reviewed.Score)
		assert.Equal(t, "good", *reviewed.ReviewComment)
		assert.False(t, reviewed.NeedsReview)

		_, err = s.ApplyReview(ctx, exam.AnswerReview{AnswerID: second.ID, Score: 10, Comment: "kept", ReviewerID: f.creator.ID, At: time.Now()})
		require.NoError(t, err)

		reqs, err := s.ListReviewRequests(ctx, second.ID)
		require.NoError(t, err)
		require.Len(t, reqs, 2)
		assert.Equal(t, exam.ReviewResolved, reqs[0].Status)
		require.NotNil(t, reqs[0].ResolvedBy)
		assert.Equal(t, f.creator.ID, *reqs[0].ResolvedBy)
		assert.Equal(t, exam.ReviewRejected, reqs[1].Status)

		total, err := s.GetSubmission(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, 28, *total.Score)
		assert.True(t, total.Completed)

		_, err = s.OpenReviewRequest(ctx, exam.ReviewRequest{AnswerID: 999, UserID: f.student.ID})
		assert.ErrorIs(t, err, exam.ErrNotFound)
	})
}

func TestStoreDeleteExamCascades(t *testing.T) {
	eachStore(t, func(t *testing.T, s exam.Store) {
		ctx := context.Background()
		f := seed(t, s)
		sub, err := s.CreateSubmission(ctx, exam.Submission{ExamID: f.exam.ID, UserID: f.student.ID, StartTime: time.Now()})
		require.NoError(t, err)
		zero := 0
		a, err := s.UpsertAnswer(ctx, exam.Answer{SubmissionID: sub.ID, QuestionID: f.essay.ID,
			Answer: exam.EssayResponse("x"), Score: &zero, NeedsReview: true})
		require.NoError(t, err)
		rr, err := s.OpenReviewRequest(ctx, exam.ReviewRequest{AnswerID: a.ID, UserID: f.student.ID, Reason: "r"})
		require.NoError(t, err)

		require.NoError(t, s.DeleteExam(ctx, f.exam.ID))

		_, err = s.GetExam(ctx, f.exam.ID)
		assert.ErrorIs(t, err, exam.ErrNotFound)
		_, err = s.GetQuestion(ctx, f.choice.ID)
		assert.ErrorIs(t, err, exam.ErrNotFound)
		_, err = s.GetSubmission(ctx, sub.ID)
		assert.ErrorIs(t, err, exam.ErrNotFound)
		_, err = s.GetAnswer(ctx, a.ID)
		assert.ErrorIs(t, err, exam.ErrNotFound)
		_, err = s.GetReviewRequest(ctx, rr.ID)
		assert.ErrorIs(t, err, exam.ErrNotFound)
		assert.ErrorIs(t, s.DeleteExam(ctx, f.exam.ID), exam.ErrNotFound)
	})
}
