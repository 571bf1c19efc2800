package apperr

import (
	"errors"
	"fmt"
	"time"
)

// Remote error codes reported by the data service.
const (
	CodeUnavailable = "unavailable"
	CodeConflict    = "conflict"
	CodeNotFound    = "not_found"
	CodeBanned      = "property_banned"
	CodeInternal    = "internal"
)

// ValidationError is a local pre-flight rejection the user can correct.
type ValidationError struct {
	Reason string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Reason, e.Detail)
}

// RemoteError means the data service rejected or failed a call.
type RemoteError struct {
	Op   string
	Code string
	Err  error
}

func (e *RemoteError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("remote %s (%s): %v", e.Op, e.Code, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// TimeoutError is returned when a remote call exceeded its budget. Safe to retry.
type TimeoutError struct {
	Op     string
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("remote %s: timed out after %s", e.Op, e.Budget)
}

// AuthorizationError is a server-side policy denial.
type AuthorizationError struct {
	Op  string
	Err error
}

func (e *AuthorizationError) Error() string {
	if e.Err == nil {
		return "forbidden: " + e.Op
	}
	return fmt.Sprintf("forbidden: %s: %v", e.Op, e.Err)
}

func (e *AuthorizationError) Unwrap() error { return e.Err }

func Validation(reason, detail string) error {
	return &ValidationError{Reason: reason, Detail: detail}
}

func Remote(op, code string, err error) error {
	return &RemoteError{Op: op, Code: code, Err: err}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsRemote(err error) bool {
	var target *RemoteError
	return errors.As(err, &target)
}

func IsTimeout(err error) bool {
	var target *TimeoutError
	return errors.As(err, &target)
}

func IsAuthorization(err error) bool {
	var target *AuthorizationError
	return errors.As(err, &target)
}

// RemoteCode returns the code of the outermost RemoteError in err's chain.
func RemoteCode(err error) string {
	var target *RemoteError
	if errors.As(err, &target) {
		return target.Code
	}
	return ""
}

// ValidationReason returns the reason of a ValidationError in err's chain.
func ValidationReason(err error) string {
	var target *ValidationError
	if errors.As(err, &target) {
		return target.Reason
	}
	return ""
}
