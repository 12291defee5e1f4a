package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a session id does not resolve.
	ErrSessionNotFound = errors.New("adaptive session not found")
	// ErrSessionCompleted is returned when a set is submitted against a
	// session that already finished.
	ErrSessionCompleted = errors.New("adaptive session already completed")
	// ErrTopicNotFound indicates the topic does not exist.
	ErrTopicNotFound = errors.New("topic not found")
	// ErrNoQuestionSets indicates a topic has no question sets at any difficulty.
	ErrNoQuestionSets = errors.New("no question sets for topic")
	// ErrNoQuestions indicates a question set holds no questions.
	ErrNoQuestions = errors.New("question set has no questions")
	// ErrQuestionNotFound indicates a submitted question id is not part of
	// the set it was graded against.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidDifficulty indicates a value outside the five-level ladder.
	ErrInvalidDifficulty = errors.New("invalid difficulty level")
	// ErrInvalidSetCount indicates a non-positive number of sets was requested.
	ErrInvalidSetCount = errors.New("total sets must be at least 1")
	// ErrSetMismatch indicates the submitted payload does not belong to the
	// session's current set.
	ErrSetMismatch = errors.New("submitted set does not match session state")
	// ErrAttemptNotFound indicates the recorded attempt could not be resolved.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrTrendNotFound indicates no proficiency trend exists for the pair yet.
	ErrTrendNotFound = errors.New("proficiency trend not found")
	// ErrVersionConflict is returned when a session update lost a concurrent
	// write race; the call performed no mutation.
	ErrVersionConflict = errors.New("session version conflict")
)
