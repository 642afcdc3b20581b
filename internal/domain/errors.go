package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no session exists for a join code.
	ErrSessionNotFound = errors.New("session not found")
	// ErrCodesExhausted is returned when every join code in the configured range is in use.
	ErrCodesExhausted = errors.New("join code space exhausted")
	// ErrInvalidQuestion rejects questions with blank fields or an unknown correct label.
	ErrInvalidQuestion = errors.New("question requires text, four options, and a correct label A-D")
	// ErrInvalidTransition rejects lifecycle commands issued out of order.
	ErrInvalidTransition = errors.New("command not valid in the current phase")
	// ErrNotRunning rejects answers when the target question is not live.
	ErrNotRunning = errors.New("question is not accepting answers")
	// ErrParticipantNotFound is returned when a player acts before joining.
	ErrParticipantNotFound = errors.New("participant has not joined this session")
	// ErrAlreadyAnswered is returned on a second answer to the same question.
	ErrAlreadyAnswered = errors.New("participant already answered this question")
	// ErrInvalidName rejects empty participant names.
	ErrInvalidName = errors.New("participant name must not be empty")
	// ErrInvalidOption rejects answer labels outside A-D.
	ErrInvalidOption = errors.New("answer option must be A-D")
	// ErrInvalidSettings rejects out-of-range session settings.
	ErrInvalidSettings = errors.New("seconds per question must be between 5 and 300")
	// ErrQuestionNotFound indicates a question id is not part of the session.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrQuizNotFound indicates the question bank has no quiz with that id.
	ErrQuizNotFound = errors.New("quiz not found")
)
