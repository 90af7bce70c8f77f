package grading

import (
	"fmt"

	"github.com/mind-engage/examhall/internal/exam"
)

// Result is the outcome of grading a single answer.
type Result struct {
	IsCorrect   *bool // nil when correctness is left to a human
	Score       int
	NeedsReview bool
}

// Apply copies the result onto a, dropping any earlier review comment.
func (r Result) Apply(a exam.Answer) exam.Answer {
	a.IsCorrect = r.IsCorrect
	score := r.Score
	a.Score = &score
	a.NeedsReview = r.NeedsReview
	a.ReviewComment = nil
	return a
}

// Strategy grades a single question type.
type Strategy interface {
	Grade(q exam.Question, r exam.Response) (Result, error)
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Grade(q exam.Question, r exam.Response) (Result, error)
}

type defaultGrader struct {
	strategies map[exam.QuestionType]Strategy
}

func (g *defaultGrader) Grade(q exam.Question, r exam.Response) (Result, error) {
	s, ok := g.strategies[q.Type]
	if !ok {
		return Result{}, fmt.Errorf("%w: no grading strategy for question type %q", exam.ErrValidation, q.Type)
	}
	if r.Type != q.Type {
		return Result{}, fmt.Errorf("%w: %s answer given for %s question", exam.ErrValidation, r.Type, q.Type)
	}
	return s.Grade(q, r)
}

type Option func(*config)

type config struct {
	EssayAutoAccept bool
	MaxEditDistance int
}

// WithEssayAutoAccept makes essays that match a reference answer (ignoring
// case, punctuation and spacing) count as correct instead of needing review.
func WithEssayAutoAccept(b bool) Option { return func(c *config) { c.EssayAutoAccept = b } }

// WithMaxEditDistance lets an auto-accepted essay differ from a reference
// answer by up to n rune edits. Zero requires an exact match.
func WithMaxEditDistance(n int) Option { return func(c *config) { c.MaxEditDistance = n } }

// NewDefaultGrader installs built-in strategies.
func NewDefaultGrader(opts ...Option) Grader {
	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}
	return &defaultGrader{
		strategies: map[exam.QuestionType]Strategy{
			exam.TypeMultipleChoice: choiceStrategy{},
			exam.TypeTrueFalse:      trueFalseStrategy{},
			exam.TypeEssay:          essayStrategy{autoAccept: cfg.EssayAutoAccept, maxEdit: cfg.MaxEditDistance},
		},
	}
}

type choiceStrategy struct{}

// Grade compares the selection to the key as ordered lists.
func (choiceStrategy) Grade(q exam.Question, r exam.Response) (Result, error) {
	if q.CorrectAnswers == nil {
		return pending(), nil
	}
	want := []string{q.CorrectAnswers.Option}
	return verdict(q, equalLists(r.Selected, want)), nil
}

type trueFalseStrategy struct{}

func (trueFalseStrategy) Grade(q exam.Question, r exam.Response) (Result, error) {
	if q.CorrectAnswers == nil {
		return pending(), nil
	}
	return verdict(q, r.Truth == q.CorrectAnswers.Truth), nil
}

type essayStrategy struct {
	autoAccept bool
	maxEdit    int
}

func (s essayStrategy) Grade(q exam.Question, r exam.Response) (Result, error) {
	if !s.autoAccept || q.CorrectAnswers == nil {
		return pending(), nil
	}
	if matchesReference(r.Text, q.CorrectAnswers.References, s.maxEdit) {
		return verdict(q, true), nil
	}
	return pending(), nil
}

func verdict(q exam.Question, ok bool) Result {
	res := Result{IsCorrect: &ok}
	if ok {
		res.Score = q.Marks
	}
	return res
}

func pending() Result {
	return Result{NeedsReview: true}
}

func equalLists(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
