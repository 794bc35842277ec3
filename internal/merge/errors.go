package merge

import (
	"errors"
	"fmt"
)

// Error represents a failed merge call.
//
// Merge errors are fatal for the call that produced them. No error leaves a
// partially applied batch on disk.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Path is the file that caused the failure.
	Path string

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes merge errors.
type ErrorCode string

const (
	// ErrCodeConfiguration indicates the base file is missing, unreadable or
	// not a valid LIFT document. Not retried.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"

	// ErrCodeMalformedUpdate indicates an update file could not be read or
	// parsed, or carries an entry without a guid.
	ErrCodeMalformedUpdate ErrorCode = "MALFORMED_UPDATE"

	// ErrCodeLocked indicates another merge holds the base file's lock.
	ErrCodeLocked ErrorCode = "LOCKED"

	// ErrCodeCommit indicates writing the merged output failed.
	ErrCodeCommit ErrorCode = "COMMIT"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Path != "" {
		msg += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var me *Error
	if errors.As(err, &me) {
		return me.Code
	}
	return ""
}

// IsConfigurationError returns true if the base file could not be used.
func IsConfigurationError(err error) bool {
	return CodeOf(err) == ErrCodeConfiguration
}

// IsMalformedUpdate returns true if an update file was rejected.
func IsMalformedUpdate(err error) bool {
	return CodeOf(err) == ErrCodeMalformedUpdate
}

// IsLocked returns true if the base file's lock could not be acquired.
func IsLocked(err error) bool {
	return CodeOf(err) == ErrCodeLocked
}

func newConfigurationError(path string, err error) *Error {
	return &Error{
		Code:    ErrCodeConfiguration,
		Message: "base file unusable",
		Path:    path,
		Err:     err,
	}
}

func newMalformedUpdateError(path string, err error) *Error {
	return &Error{
		Code:    ErrCodeMalformedUpdate,
		Message: "update file rejected",
		Path:    path,
		Err:     err,
	}
}

func newCommitError(path string, err error) *Error {
	return &Error{
		Code:    ErrCodeCommit,
		Message: "write merged output",
		Path:    path,
		Err:     err,
	}
}
