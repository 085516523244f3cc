// Package apperr defines the coded errors that cross the service boundary.
// Each code maps to one HTTP status in the handlers package.
package apperr

import (
	"github.com/samber/oops"
)

const (
	CodeValidation        = "VALIDATION"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeInvalidCookie     = "INVALID_COOKIE"
	CodeAlreadyRegistered = "ALREADY_REGISTERED"
	CodeNotFound          = "NOT_FOUND"
)

func Validation(format string, args ...any) error {
	return oops.Code(CodeValidation).Errorf(format, args...)
}

func Unauthorized(format string, args ...any) error {
	return oops.Code(CodeUnauthorized).Errorf(format, args...)
}

func Forbidden(format string, args ...any) error {
	return oops.Code(CodeForbidden).Errorf(format, args...)
}

func NotFound(format string, args ...any) error {
	return oops.Code(CodeNotFound).Errorf(format, args...)
}

func InvalidCookie() error {
	return oops.Code(CodeInvalidCookie).Errorf("invalid cookie")
}

func AlreadyRegistered() error {
	return oops.Code(CodeAlreadyRegistered).Errorf("already_registered")
}

// Code returns the error code, or "" for uncoded errors such as store failures.
func Code(err error) string {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}

func Is(err error, code string) bool {
	return code != "" && Code(err) == code
}

// Message returns the user-facing message carried by a coded error.
func Message(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		return oopsErr.Error()
	}
	return err.Error()
}
