package grading_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/examhall/internal/exam"
	"github.com/mind-engage/examhall/internal/grading"
)

func key(k exam.AnswerKey) *exam.AnswerKey { return &k }

func choiceQuestion() exam.Question {
	return exam.Question{
		ID: 1, Type: exam.TypeMultipleChoice, Text: "Capital of France?",
		Options:        []string{"Paris", "Lyon", "Nice"},
		CorrectAnswers: key(exam.MultipleChoiceKey(0)), Marks: 10, Order: 1,
	}
}

func trueFalseQuestion() exam.Question {
	return exam.Question{
		ID: 2, Type: exam.TypeTrueFalse, Text: "The earth is flat.",
		CorrectAnswers: key(exam.TrueFalseKey(false)), Marks: 5, Order: 2,
	}
}

func essayQuestion() exam.Question {
	return exam.Question{
		ID: 3, Type: exam.TypeEssay, Text: "Explain photosynthesis.",
		CorrectAnswers: key(exam.EssayKey("Plants turn light into energy.")), Marks: 20, Order: 3,
	}
}

func TestGradeObjectiveCorrect(t *testing.T) {
	g := grading.NewDefaultGrader()
	cases := []struct {
		name string
		q    exam.Question
		r    exam.Response
	}{
		{"multiple choice", choiceQuestion(), exam.ChoiceResponse("0")},
		{"true false", trueFalseQuestion(), exam.TrueFalseResponse(false)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := g.Grade(tc.q, tc.r)
			require.NoError(t, err)
			require.NotNil(t, res.IsCorrect)
			assert.True(t, *res.IsCorrect)
			assert.Equal(t, tc.q.Marks, res.Score)
			assert.False(t, res.NeedsReview)
		})
	}
}

func TestGradeObjectiveWrong(t *testing.T) {
	g := grading.NewDefaultGrader()
	cases := []struct {
		name string
		q    exam.Question
		r    exam.Response
	}{
		{"other option", choiceQuestion(), exam.ChoiceResponse("1")},
		{"extra option", choiceQuestion(), exam.ChoiceResponse("0", "1")},
		{"reordered", choiceQuestion(), exam.ChoiceResponse("1", "0")},
		{"empty selection", choiceQuestion(), exam.ChoiceResponse()},
		{"wrong boolean", trueFalseQuestion(), exam.TrueFalseResponse(true)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := g.Grade(tc.q, tc.r)
			require.NoError(t, err)
			require.NotNil(t, res.IsCorrect)
			assert.False(t, *res.IsCorrect)
			assert.Zero(t, res.Score)
			assert.False(t, res.NeedsReview)
		})
	}
}

func TestGradeEssayAlwaysNeedsReview(t *testing.T) {
	g := grading.NewDefaultGrader()
	for _, text := range []string{"my answer", "Plants turn light into energy.", ""} {
		res, err := g.Grade(essayQuestion(), exam.EssayResponse(text))
		require.NoError(t, err)
		assert.Nil(t, res.IsCorrect, text)
		assert.Zero(t, res.Score, text)
		assert.True(t, res.NeedsReview, text)
	}
}

func TestGradeEssayAutoAccept(t *testing.T) {
	g := grading.NewDefaultGrader(grading.WithEssayAutoAccept(true))

	res, err := g.Grade(essayQuestion(), exam.EssayResponse("  plants TURN light into energy "))
	require.NoError(t, err)
	require.NotNil(t, res.IsCorrect)
	assert.True(t, *res.IsCorrect)
	assert.Equal(t, 20, res.Score)
	assert.False(t, res.NeedsReview)

	res, err = g.Grade(essayQuestion(), exam.EssayResponse("plants turn light into energie"))
	require.NoError(t, err)
	assert.True(t, res.NeedsReview)

	fuzzy := grading.NewDefaultGrader(grading.WithEssayAutoAccept(true), grading.WithMaxEditDistance(2))
	res, err = fuzzy.Grade(essayQuestion(), exam.EssayResponse("plants turn light into energie"))
	require.NoError(t, err)
	assert.False(t, res.NeedsReview)
	assert.Equal(t, 20, res.Score)
}

func TestGradeTypeMismatch(t *testing.T) {
	g := grading.NewDefaultGrader()
	_, err := g.Grade(choiceQuestion(), exam.TrueFalseResponse(true))
	assert.ErrorIs(t, err, exam.ErrValidation)

	q := choiceQuestion()
	q.Type = "matching"
	_, err = g.Grade(q, exam.Response{Type: "matching"})
	assert.ErrorIs(t, err, exam.ErrValidation)
}

func TestResultApplyClearsReviewComment(t *testing.T) {
	comment := "was reviewed"
	a := exam.Answer{ID: 7, ReviewComment: &comment, NeedsReview: true}
	yes := true
	a = grading.Result{IsCorrect: &yes, Score: 4}.Apply(a)
	assert.Nil(t, a.ReviewComment)
	assert.False(t, a.NeedsReview)
	require.NotNil(t, a.Score)
	assert.Equal(t, 4, *a.Score)
}

func TestReview(t *testing.T) {
	q := essayQuestion()
	a := exam.Answer{ID: 9, QuestionID: q.ID, Answer: exam.EssayResponse("my answer"), NeedsReview: true}

	got, err := grading.Review(q, a, 18, "good")
	require.NoError(t, err)
	require.NotNil(t, got.Score)
	assert.Equal(t, 18, *got.Score)
	require.NotNil(t, got.ReviewComment)
	assert.Equal(t, "good", *got.ReviewComment)
	assert.False(t, got.NeedsReview)
	assert.Nil(t, got.IsCorrect)

	for _, bad := range []int{-1, 21} {
		_, err := grading.Review(q, a, bad, "x")
		assert.ErrorIs(t, err, exam.ErrValidation)
	}
	_, err = grading.Review(choiceQuestion(), a, 1, "x")
	assert.ErrorIs(t, err, exam.ErrValidation)
}
