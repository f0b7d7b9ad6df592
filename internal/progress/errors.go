package progress

import "errors"

var (
	// ErrNotEnrolled is returned when no progress record exists for the user and course.
	ErrNotEnrolled = errors.New("not enrolled")
	// ErrAlreadyEnrolled is returned by Store.Create when the record exists.
	ErrAlreadyEnrolled = errors.New("already enrolled")
	// ErrLocked is returned when a step's prerequisite has not been completed.
	ErrLocked = errors.New("locked")
	// ErrIncomplete is returned when a chapter is completed before all its learning points.
	ErrIncomplete = errors.New("incomplete")
	// ErrAttemptsExhausted is returned when a quiz has no attempts left.
	ErrAttemptsExhausted = errors.New("quiz attempts exhausted")
	// ErrAlreadyPassed is returned for quiz attempts or resets on a passed quiz.
	ErrAlreadyPassed = errors.New("quiz already passed")
	// ErrUnknownItem is returned when a module, chapter or learning point is not in the course.
	ErrUnknownItem = errors.New("unknown item")
)
