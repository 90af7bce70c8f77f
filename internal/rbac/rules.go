package rbac

import (
	"fmt"

	"github.com/mind-engage/examhall/internal/exam"
)

// The Require* helpers turn a failed predicate into an error wrapping exam.ErrForbidden.

func RequireExamOwner(userID int64, e exam.Exam) error {
	if !IsExamOwner(userID, e) {
		return fmt.Errorf("%w: user %d does not own exam %d", exam.ErrForbidden, userID, e.ID)
	}
	return nil
}

func RequireSubmissionOwner(userID int64, s exam.Submission) error {
	if !IsSubmissionOwner(userID, s) {
		return fmt.Errorf("%w: user %d does not own submission %d", exam.ErrForbidden, userID, s.ID)
	}
	return nil
}

func RequireViewSubmission(userID int64, s exam.Submission, e exam.Exam) error {
	if !CanViewSubmission(userID, s, e) {
		return fmt.Errorf("%w: user %d may not view submission %d", exam.ErrForbidden, userID, s.ID)
	}
	return nil
}

func RequireReviewer(userID int64, e exam.Exam) error {
	if !CanReview(userID, e) {
		return fmt.Errorf("%w: user %d may not review answers of exam %d", exam.ErrForbidden, userID, e.ID)
	}
	return nil
}
