package model

import "errors"

// Domain errors shared by the stores, the grader and the exam session service.
// Handlers classify them with errors.Is and map them to response codes.
var (
	ErrExamNotFound            = errors.New("exam not found")
	ErrExamNotMCQ              = errors.New("exam is not a multiple-choice exam")
	ErrSessionExpiredOrInvalid = errors.New("exam session expired or invalid")
	ErrUnknownExam             = errors.New("no answer key stored for exam")
	ErrMalformedInput          = errors.New("malformed answer payload")
	ErrIDGenerationExhausted   = errors.New("session id generation exhausted")
	ErrAlreadySubmitted        = errors.New("exam session already submitted")
	ErrInvalidDuration         = errors.New("exam duration must be positive")
)
