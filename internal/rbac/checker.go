package rbac

import "github.com/mind-engage/examhall/internal/exam"

// Ownership predicates. They take the caller's user id from request scope and
// never trust ownership claims carried in the request body.

func IsExamOwner(userID int64, e exam.Exam) bool {
	return userID != 0 && userID == e.CreatorID
}

func IsSubmissionOwner(userID int64, s exam.Submission) bool {
	return userID != 0 && userID == s.UserID
}

// CanViewSubmission holds for the test-taker and for the exam's creator.
func CanViewSubmission(userID int64, s exam.Submission, e exam.Exam) bool {
	return IsSubmissionOwner(userID, s) || IsExamOwner(userID, e)
}

func CanReview(userID int64, e exam.Exam) bool {
	return IsExamOwner(userID, e)
}
