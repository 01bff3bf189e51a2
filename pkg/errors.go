package bctron

import (
	"fmt"
)

type ErrorCode string

const (
	BadRequest     ErrorCode = "bad-request"
	NotAvailable   ErrorCode = "not-available"
	NotFound       ErrorCode = "not-found"
	OutOfRange     ErrorCode = "out-of-range"
	MalformedEvent ErrorCode = "malformed-event"
	UnknownError   ErrorCode = "unknown-error"
)

type ErrorInfo struct {
	Code    ErrorCode // machine-readble ErrorCode enumeration
	Message string    // human-readable debug message
}

func (e *ErrorInfo) Error() string {
	return string(e.Message)
}

func NewErr(code ErrorCode, format string, args ...any) error {
	return &ErrorInfo{Code: code, Message: fmt.Sprintf(format, args...)}
}

func IsNotFoundError(err error) bool {
	return IsError(err, NotFound)
}

func IsOutOfRangeError(err error) bool {
	return IsError(err, OutOfRange)
}

func IsMalformedEventError(err error) bool {
	return IsError(err, MalformedEvent)
}

func IsError(err error, ofType ErrorCode) bool {
	if e, ok := err.(*ErrorInfo); ok {
		return e.Code == ofType
	}
	return false
}
