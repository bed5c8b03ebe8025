package domain

import "fmt"

// AppError is the base domain error type.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Standard domain error constructors.

func ErrNotFound(entity, id string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: fmt.Sprintf("%s %s not found", entity, id), Status: 404}
}

func ErrConflict(msg string) *AppError {
	return &AppError{Code: "CONFLICT", Message: msg, Status: 409}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: msg, Status: 400}
}

// ErrSequenceConflict is returned by an optimistic append whose
// expected-sequence check failed: another writer got there first.
func ErrSequenceConflict(subjectID string, expected int64) *AppError {
	return &AppError{
		Code:    "SEQUENCE_CONFLICT",
		Message: fmt.Sprintf("subject %s log moved past expected seq %d", subjectID, expected),
		Status:  409,
	}
}

// ErrUnprocessableEvent is the schema-drift fault: a persisted event kind
// the fold does not recognize. It halts derivation for that subject only.
func ErrUnprocessableEvent(eventType string) *AppError {
	return &AppError{
		Code:    "UNPROCESSABLE_EVENT",
		Message: fmt.Sprintf("unhandled event kind %q in log", eventType),
		Status:  422,
	}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: msg, Status: 500, Cause: cause}
}
