package domain

import "errors"

var (
	// ErrInsufficientQuestions is returned when a pool holds fewer questions than requested.
	ErrInsufficientQuestions = errors.New("insufficient questions available")
	// ErrInvalidRange is returned when a random draw is requested with max < min.
	ErrInvalidRange = errors.New("invalid random range")
	// ErrUnresolvedQuestion marks a submitted answer whose question is not part of the served quiz.
	// Grading skips such answers; the error is only surfaced through logs.
	ErrUnresolvedQuestion = errors.New("question not in served quiz")
	// ErrMalformedOptions marks stored options that are not a list of strings.
	// Loaders degrade these to an empty option list.
	ErrMalformedOptions = errors.New("malformed question options")
	// ErrAttemptConflict indicates another submission claimed the same attempt number.
	ErrAttemptConflict = errors.New("attempt number already taken")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizInactive is returned when a quiz exists but is not public.
	ErrQuizInactive = errors.New("quiz is not active")
	// ErrServedQuizNotFound is returned when a submission references an unknown or expired served quiz.
	ErrServedQuizNotFound = errors.New("served quiz not found")
	// ErrInvalidCount is returned when fewer than one question is requested.
	ErrInvalidCount = errors.New("number of questions must be at least 1")
	// ErrInvalidQuestion is returned by Question.Validate for inconsistent authoring data.
	ErrInvalidQuestion = errors.New("invalid question")
)
