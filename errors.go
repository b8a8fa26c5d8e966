package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeUnauthorized          = "UNAUTHORIZED"
	TextCodeForbidden             = "FORBIDDEN"
	TextCodeTokenExpired          = "TOKEN_EXPIRED"
	TextCodeTokenMalformed        = "TOKEN_MALFORMED"
	TextCodeTokenInvalidSignature = "TOKEN_INVALID_SIGNATURE"
	TextCodeInvalidCredentials    = "INVALID_CREDENTIALS"
	TextCodeDuplicateEmail        = "DUPLICATE_EMAIL"
	TextCodeMissingDepartment     = "MISSING_DEPARTMENT"
	TextCodeUserNotFound          = "USER_NOT_FOUND"
	TextCodeTeacherNotFound       = "TEACHER_NOT_FOUND"
	TextCodeDepartmentNotFound    = "DEPARTMENT_NOT_FOUND"
	TextCodeProgramNotFound       = "PROGRAM_NOT_FOUND"
	TextCodeStudentNotFound       = "STUDENT_NOT_FOUND"
	TextCodeDepartmentInUse       = "DEPARTMENT_IN_USE"
	TextCodeInvalidRole           = "INVALID_ROLE"
	TextCodeEmptyPassword         = "EMPTY_PASSWORD"
)

// ErrUnauthorized is the uniform answer for a missing, invalid or expired
// token as well as for a role outside the required set.
var ErrUnauthorized = errors.New("unauthorized", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(errors.CodeUnauthorized)

// ErrForbidden is returned when a verified caller hits a role specific query
// with the wrong role.
var ErrForbidden = errors.New("forbidden", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrTokenExpired is returned when the token is past its expiry
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned when the token can not be decoded
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenInvalidSignature is returned when the signature does not match
var ErrTokenInvalidSignature = errors.New("token signature is invalid", errors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalidSignature).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidCredentials does not tell unknown emails apart from bad passwords.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrDuplicateEmail is returned when the email is already registered
var ErrDuplicateEmail = errors.New("email already registered", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(errors.CodeConflict)

// ErrMissingDepartment is returned when a department id is required
var ErrMissingDepartment = errors.New("department id is required", errors.CategoryBadInput).
	WithTextCode(TextCodeMissingDepartment).
	WithCode(errors.CodeBadRequest)

// ErrUserNotFound user record does not exist
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrTeacherNotFound teacher profile does not exist (yet)
var ErrTeacherNotFound = errors.New("teacher not found", errors.CategoryNotFound).
	WithTextCode(TextCodeTeacherNotFound).
	WithCode(errors.CodeNotFound)

// ErrDepartmentNotFound department record does not exist
var ErrDepartmentNotFound = errors.New("department not found", errors.CategoryNotFound).
	WithTextCode(TextCodeDepartmentNotFound).
	WithCode(errors.CodeNotFound)

// ErrProgramNotFound program record does not exist
var ErrProgramNotFound = errors.New("program not found", errors.CategoryNotFound).
	WithTextCode(TextCodeProgramNotFound).
	WithCode(errors.CodeNotFound)

// ErrStudentNotFound student profile does not exist
var ErrStudentNotFound = errors.New("student not found", errors.CategoryNotFound).
	WithTextCode(TextCodeStudentNotFound).
	WithCode(errors.CodeNotFound)

// ErrDepartmentInUse is returned when deleting a department that still has
// teachers assigned or students enrolled in its programs.
var ErrDepartmentInUse = errors.New("department still has teachers or students", errors.CategoryConflict).
	WithTextCode(TextCodeDepartmentInUse).
	WithCode(errors.CodeConflict)

// ErrInvalidRole is returned for role values outside ADMIN, TEACHER, STUDENT
var ErrInvalidRole = errors.New("invalid role", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidRole).
	WithCode(errors.CodeBadRequest)

// ErrNoEmptyString password must not be empty
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword wrong password
var ErrMismatchedHashAndPassword = errors.New("password does not match", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

func internalError(err error, message string) error {
	if err == nil {
		return nil
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr
	}
	return errors.Wrap(err, errors.CategoryInternal, message).
		WithCode(errors.CodeInternal)
}

// withMetadata clones a sentinel before attaching metadata so the shared value
// is never mutated. The clone keeps the sentinel as its source for errors.Is.
func withMetadata(base *errors.Error, metadata map[string]any) *errors.Error {
	clone := base.Clone()
	if clone == nil {
		return base
	}
	clone.Source = base
	return clone.WithMetadata(metadata)
}
