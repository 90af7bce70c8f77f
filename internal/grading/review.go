package grading

import (
	"fmt"

	"github.com/mind-engage/examhall/internal/exam"
)

// Review applies a manual grade to a. The score must lie in [0, q.Marks];
// IsCorrect is left untouched.
func Review(q exam.Question, a exam.Answer, score int, comment string) (exam.Answer, error) {
	if a.QuestionID != q.ID {
		return exam.Answer{}, fmt.Errorf("%w: answer %d is not for question %d", exam.ErrValidation, a.ID, q.ID)
	}
	if score < 0 || score > q.Marks {
		return exam.Answer{}, fmt.Errorf("%w: score %d outside [0, %d]", exam.ErrValidation, score, q.Marks)
	}
	a.Score = &score
	a.ReviewComment = &comment
	a.NeedsReview = false
	return a, nil
}
