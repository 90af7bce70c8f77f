package attempt_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/examhall/internal/attempt"
	"github.com/mind-engage/examhall/internal/exam"
	"github.com/mind-engage/examhall/internal/grading"
	syncx "github.com/mind-engage/examhall/internal/sync"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type env struct {
	store            exam.Store
	svc              *attempt.Service
	clock            *fakeClock
	events           *syncx.MemoryLog
	creator, student exam.User
	stranger         exam.User
	exam             exam.Exam
	choice, essay    exam.Question
	trueFalse        exam.Question
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	e := &env{
		store:  exam.NewInMemoryStore(),
		clock:  &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		events: syncx.NewMemoryLog(),
	}
	e.svc = attempt.NewService(e.store, grading.NewDefaultGrader(),
		attempt.WithClock(e.clock.Now),
		attempt.WithGrace(30*time.Second),
		attempt.WithEvents(e.events),
	)

	var err error
	e.creator, err = e.store.CreateUser(ctx, exam.User{Username: "prof", Name: "Prof", Email: "prof@example.com"})
	require.NoError(t, err)
	e.student, err = e.store.CreateUser(ctx, exam.User{Username: "ada", Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	e.stranger, err = e.store.CreateUser(ctx, exam.User{Username: "eve", Name: "Eve", Email: "eve@example.com"})
	require.NoError(t, err)
	e.exam, err = e.store.CreateExam(ctx, exam.Exam{Code: "GEOGRAPH", Title: "Geo", Subject: "Geography", Duration: 30, CreatorID: e.creator.ID})
	require.NoError(t, err)

	mc, tf, ek := exam.MultipleChoiceKey(0), exam.TrueFalseKey(true), exam.EssayKey("ref")
	e.choice, err = e.store.CreateQuestion(ctx, exam.Question{ExamID: e.exam.ID, Type: exam.TypeMultipleChoice,
		Text: "Capital of France?", Options: []string{"Paris", "Lyon", "Nice"}, CorrectAnswers: &mc, Marks: 10, Order: 1})
	require.NoError(t, err)
	e.essay, err = e.store.CreateQuestion(ctx, exam.Question{ExamID: e.exam.ID, Type: exam.TypeEssay,
		Text: "Describe Paris.", CorrectAnswers: &ek, Marks: 20, Order: 2})
	require.NoError(t, err)
	e.trueFalse, err = e.store.CreateQuestion(ctx, exam.Question{ExamID: e.exam.ID, Type: exam.TypeTrueFalse,
		Text: "Paris is in France.", CorrectAnswers: &tf, Marks: 5, Order: 3})
	require.NoError(t, err)
	return e
}

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func TestObjectiveExamScenario(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	sub, err := e.svc.Start(ctx, e.student.ID, e.exam.ID)
	require.NoError(t, err)
	assert.False(t, sub.Completed)
	assert.Equal(t, e.clock.Now(), sub.StartTime)

	a, err := e.svc.SubmitAnswer(ctx, e.student.ID, sub.ID, e.choice.ID, raw(`"0"`))
	require.NoError(t, err)
	require.NotNil(t, a.IsCorrect)
	assert.True(t, *a.IsCorrect)
	assert.Equal(t, 10, *a.Score)

	e.clock.Advance(5 * time.Minute)
	done, err := e.svc.Complete(ctx, e.student.ID, sub.ID)
	require.NoError(t, err)
	assert.True(t, done.Completed)
	assert.Equal(t, 10, *done.Score)
	assert.Equal(t, e.clock.Now(), *done.EndTime)

	events, err := e.events.Since(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, syncx.TypeSubmissionCompleted, events[0].Type)
}

func TestSumOfScoresWithPendingEssay(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sub, err := e.svc.Start(ctx, e.student.ID, e.exam.ID)
	require.NoError(t, err)

	_, err = e.svc.SubmitAnswer(ctx, e.student.ID, sub.ID, e.choice.ID, raw(`["0"]`))
	require.NoError(t, err)
	essay, err := e.svc.SubmitAnswer(ctx, e.student.ID, sub.ID, e.essay.ID, raw(`"my answer"`))
	require.NoError(t, err)
	assert.True(t, essay.NeedsReview)
	assert.Nil(t, essay.IsCorrect)
	_, err = e.svc.SubmitAnswer(ctx, e.student.ID, sub.ID, e.trueFalse.ID, raw(`true`))
	require.NoError(t, err)

	done, err := e.svc.Complete(ctx, e.student.ID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, *done.Score)
}

func TestCompleteTwiceConflicts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sub, err := e.svc.Start(ctx, e.student.ID, e.exam.ID)
	require.NoError(t, err)
	_, err = e.svc.SubmitAnswer(ctx, e.student.ID, sub.ID, e.choice.ID, raw(`"0"`))
	require.NoError(t, err)

	first, err := e.svc.Complete(ctx, e.student.ID, sub.ID)
	require.NoError(t, err)

	e.clock.Advance(time.Minute)
	_, err = e.svc.Complete(ctx, e.student.ID, sub.ID)
	assert.ErrorIs(t, err, exam.ErrConflict)

	after, err := e.store.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, *first.Score, *after.Score)
	assert.Equal(t, *first.EndTime, *after.EndTime)

	_, err = e.svc.SubmitAnswer(ctx, e.student.ID, sub.ID, e.choice.ID, raw(`"1"`))
	assert.ErrorIs(t, err, exam.ErrAlreadyCompleted)
}

func TestReanswerOverwrites(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sub, err := e.svc.Start(ctx, e.student.ID, e.exam.ID)
	require.NoError(t, err)

	first, err := e.svc.SubmitAnswer(ctx, e.student.ID, sub.ID, e.choice.ID, raw(`"0"`))
	require.NoError(t, err)
	second, err := e.svc.SubmitAnswer(ctx, e.student.ID, sub.ID, e.choice.ID, raw(`"2"`))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	answers, err := e.svc.ListAnswers(ctx, e.student.ID, sub.ID)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, []string{"2"}, answers[0].Answer.Selected)
	assert.False(t, *answers[0].IsCorrect)
	assert.Equal(t, 0, *answers[0].Score)
}

func TestReanswerKeepsOpenDisputeInReview(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sub, err := e.svc.Start(ctx, e.student.ID, e.exam.ID)
	require.NoError(t, err)

	first, err := e.svc.SubmitAnswer(ctx, e.student.ID, sub.ID, e.choice.ID, raw(`"1"`))
	require.NoError(t, err)
	rr, err := e.store.OpenReviewRequest(ctx, exam.ReviewRequest{
		AnswerID: first.ID, UserID: e.student.ID, Reason: "option 1 is also right", CreatedAt: e.clock.Now(),
	})
	require.NoError(t, err)

	second, err := e.svc.SubmitAnswer(ctx, e.student.ID, sub.ID, e.choice.ID, raw(`"2"`))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.NeedsReview)
	assert.False(t, *second.IsCorrect)

	stored, err := e.store.GetAnswer(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, stored.NeedsReview)
	got, err := e.store.GetReviewRequest(ctx, rr.ID)
	require.NoError(t, err)
	assert.Equal(t, exam.ReviewPending, got.Status)

	// a different question is unaffected by the dispute
	tf, err := e.svc.SubmitAnswer(ctx, e.student.ID, sub.ID, e.trueFalse.ID, raw(`true`))
	require.NoError(t, err)
	assert.False(t, tf.NeedsReview)
}

func TestAuthorization(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sub, err := e.svc.Start(ctx, e.student.ID, e.exam.ID)
	require.NoError(t, err)

	_, err = e.svc.SubmitAnswer(ctx, e.stranger.ID, sub.ID, e.choice.ID, raw(`"0"`))
	assert.ErrorIs(t, err, exam.ErrForbidden)
	_, err = e.svc.Complete(ctx, e.stranger.ID, sub.ID)
	assert.ErrorIs(t, err, exam.ErrForbidden)
	_, err = e.svc.ListAnswers(ctx, e.stranger.ID, sub.ID)
	assert.ErrorIs(t, err, exam.ErrForbidden)
	_, err = e.svc.Get(ctx, e.stranger.ID, sub.ID)
	assert.ErrorIs(t, err, exam.ErrForbidden)
	_, err = e.svc.ListForExam(ctx, e.student.ID, e.exam.ID)
	assert.ErrorIs(t, err, exam.ErrForbidden)

	// the creator may look but not act
	_, err = e.svc.ListAnswers(ctx, e.creator.ID, sub.ID)
	assert.NoError(t, err)
	_, err = e.svc.Complete(ctx, e.creator.ID, sub.ID)
	assert.ErrorIs(t, err, exam.ErrForbidden)

	unchanged, err := e.store.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.False(t, unchanged.Completed)

	_, err = e.svc.Start(ctx, 0, e.exam.ID)
	assert.ErrorIs(t, err, exam.ErrForbidden)
}

func TestStartResumesActiveSubmission(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	first, err := e.svc.Start(ctx, e.student.ID, e.exam.ID)
	require.NoError(t, err)

	e.clock.Advance(10 * time.Minute)
	again, err := e.svc.Start(ctx, e.student.ID, e.exam.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	_, err = e.svc.Complete(ctx, e.student.ID, first.ID)
	require.NoError(t, err)
	fresh, err := e.svc.Start(ctx, e.student.ID, e.exam.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, fresh.ID)

	_, err = e.svc.Start(ctx, e.student.ID, 999)
	assert.ErrorIs(t, err, exam.ErrNotFound)
}

func TestDeadlineEnforced(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sub, err := e.svc.Start(ctx, e.student.ID, e.exam.ID)
	require.NoError(t, err)
	_, err = e.svc.SubmitAnswer(ctx, e.student.ID, sub.ID, e.choice.ID, raw(`"0"`))
	require.NoError(t, err)

	// within grace
	e.clock.Advance(30*time.Minute + 20*time.Second)
	_, err = e.svc.SubmitAnswer(ctx, e.student.ID, sub.ID, e.trueFalse.ID, raw(`true`))
	require.NoError(t, err)

	e.clock.Advance(time.Minute)
	_, err = e.svc.SubmitAnswer(ctx, e.student.ID, sub.ID, e.essay.ID, raw(`"late"`))
	assert.ErrorIs(t, err, exam.ErrTimeExpired)
	assert.ErrorIs(t, err, exam.ErrConflict)

	closed, err := e.store.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, closed.Completed)
	assert.Equal(t, 15, *closed.Score)

	answers, err := e.store.ListAnswers(ctx, sub.ID)
	require.NoError(t, err)
	assert.Len(t, answers, 2)
}

func TestStartReplacesExpiredAttempt(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	old, err := e.svc.Start(ctx, e.student.ID, e.exam.ID)
	require.NoError(t, err)

	e.clock.Advance(2 * time.Hour)
	fresh, err := e.svc.Start(ctx, e.student.ID, e.exam.ID)
	require.NoError(t, err)
	assert.NotEqual(t, old.ID, fresh.ID)

	closed, err := e.store.GetSubmission(ctx, old.ID)
	require.NoError(t, err)
	assert.True(t, closed.Completed)
	assert.Equal(t, 0, *closed.Score)
}

func TestSubmitAnswerValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	other, err := e.store.CreateExam(ctx, exam.Exam{Code: "OTHEREXM", Title: "Other", Subject: "x", Duration: 10, CreatorID: e.creator.ID})
	require.NoError(t, err)
	foreign, err := e.store.CreateQuestion(ctx, exam.Question{ExamID: other.ID, Type: exam.TypeEssay, Text: "?", Marks: 1, Order: 1})
	require.NoError(t, err)

	sub, err := e.svc.Start(ctx, e.student.ID, e.exam.ID)
	require.NoError(t, err)

	_, err = e.svc.SubmitAnswer(ctx, e.student.ID, sub.ID, foreign.ID, raw(`"x"`))
	assert.ErrorIs(t, err, exam.ErrValidation)
	_, err = e.svc.SubmitAnswer(ctx, e.student.ID, sub.ID, e.trueFalse.ID, raw(`"perhaps"`))
	assert.ErrorIs(t, err, exam.ErrValidation)
	_, err = e.svc.SubmitAnswer(ctx, e.student.ID, sub.ID, 999, raw(`"x"`))
	assert.ErrorIs(t, err, exam.ErrNotFound)
	_, err = e.svc.SubmitAnswer(ctx, e.student.ID, 999, e.choice.ID, raw(`"0"`))
	assert.ErrorIs(t, err, exam.ErrNotFound)

	answers, err := e.store.ListAnswers(ctx, sub.ID)
	require.NoError(t, err)
	assert.Empty(t, answers)
}

func TestConcurrentAnswersAndComplete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sub, err := e.svc.Start(ctx, e.student.ID, e.exam.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v := `"0"`
			if i%2 == 1 {
				v = `"1"`
			}
			_, _ = e.svc.SubmitAnswer(ctx, e.student.ID, sub.ID, e.choice.ID, raw(v))
		}(i)
	}
	wg.Wait()

	answers, err := e.store.ListAnswers(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	want := 0
	if answers[0].Answer.Selected[0] == "0" {
		want = 10
	}
	assert.Equal(t, want, *answers[0].Score)

	results := make(chan error, 5)
	for i := 0; i < 5; i++ {
		go func() {
			_, err := e.svc.Complete(ctx, e.student.ID, sub.ID)
			results <- err
		}()
	}
	ok := 0
	for i := 0; i < 5; i++ {
		if err := <-results; err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, exam.ErrAlreadyCompleted)
		}
	}
	assert.Equal(t, 1, ok)
	done, err := e.store.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, want, *done.Score)
}

func TestViews(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sub, err := e.svc.Start(ctx, e.student.ID, e.exam.ID)
	require.NoError(t, err)
	_, err = e.svc.SubmitAnswer(ctx, e.student.ID, sub.ID, e.choice.ID, raw(`"0"`))
	require.NoError(t, err)

	v, err := e.svc.Get(ctx, e.student.ID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, v.CurrentTotal)
	assert.Equal(t, 35, v.MaxScore)
	assert.Equal(t, sub.StartTime.Add(30*time.Minute+30*time.Second), v.Deadline)
	require.NotNil(t, v.Exam)
	assert.Equal(t, "GEOGRAPH", v.Exam.Code)

	list, err := e.svc.ListForExam(ctx, e.creator.ID, e.exam.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].User)
	assert.Equal(t, "ada", list[0].User.Username)

	mine, err := e.svc.ListMine(ctx, e.student.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Geo", mine[0].Exam.Title)

	none, err := e.svc.ListMine(ctx, e.stranger.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}
