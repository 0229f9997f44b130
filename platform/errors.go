// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"errors"
	"fmt"
)

// Code classifies a platform failure independently of the SDK behind it.
type Code string

const (
	CodeNotFound    Code = "not_found"
	CodeForbidden   Code = "forbidden"
	CodeRateLimited Code = "rate_limited"
	CodeInvalid     Code = "invalid"
	CodeUnavailable Code = "unavailable"
	CodeUnknown     Code = "unknown"
)

// Error is a failed platform call. Callers extract it with errors.As:
//
//	var platformErr *platform.Error
//	if errors.As(err, &platformErr) && platformErr.Code == platform.CodeForbidden { ... }
type Error struct {
	// Op is the operation that failed, e.g. "ban member".
	Op string
	// Code is the failure class.
	Code Code
	// StatusCode is the HTTP status, or zero for non-HTTP failures.
	StatusCode int
	// Message is the platform's own description, if any.
	Message string
	// Err is the underlying SDK error, if any.
	Err error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("platform: %s: %s (%d): %s", e.Op, e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("platform: %s: %s: %s", e.Op, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsError reports whether err is an *Error with the given code.
func IsError(err error, code Code) bool {
	var platformErr *Error
	if errors.As(err, &platformErr) {
		return platformErr.Code == code
	}
	return false
}

// NotFound builds a CodeNotFound error for op.
func NotFound(op, message string) *Error {
	return &Error{Op: op, Code: CodeNotFound, StatusCode: 404, Message: message}
}

// Forbidden builds a CodeForbidden error for op.
func Forbidden(op, message string) *Error {
	return &Error{Op: op, Code: CodeForbidden, StatusCode: 403, Message: message}
}
