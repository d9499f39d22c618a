package natureremo

import (
	"errors"
	"fmt"
)

const (
	ERROR_CODE_NOT_FOUND = 404001
)

// Error is the single error kind returned by Client. Code and Message come
// from the cloud error body when there is one; Cause holds transport or
// decoding failures.
type Error struct {
	Code    int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("Connection error: %s", e.Cause)
	}
	return fmt.Sprintf("Connection error: %d %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NotFoundError() *Error {
	return &Error{
		Code:    ERROR_CODE_NOT_FOUND,
		Message: "device not found",
	}
}

func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ERROR_CODE_NOT_FOUND
}
