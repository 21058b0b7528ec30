// Package domainerrors defines the coded, user-facing error type shared by all
// services. Stores return sentinel errors; services wrap them with a Code so
// transport layers can map failures to HTTP statuses without inspecting internals.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a recoverable, user-facing failure class.
type Code string

const (
	// Registration protocol failures.
	CodeDocumentNotAssociated   Code = "document_not_associated"
	CodeAlreadyClaimed          Code = "already_claimed"
	CodeBlockedVoter            Code = "blocked_voter"
	CodeRegistrationClosed      Code = "registration_closed"
	CodeConcurrentClaimConflict Code = "concurrent_claim_conflict"

	// Voting failures.
	CodeIncompleteAnswerSet Code = "incomplete_answer_set"
	CodeInvalidAnswerShape  Code = "invalid_answer_shape"

	// Lifecycle failures.
	CodeIllegalTransition Code = "illegal_transition"

	// Generic failures.
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	CodeInternal     Code = "internal"
)

// Error carries a Code and a human-readable message, optionally wrapping a cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the chain
// for errors.Is/As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) is a domain error with the
// given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the HTTP status the transport layer should emit.
// Every code in the taxonomy is recoverable and user-facing; nothing maps to a
// crash.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidAnswerShape, CodeIncompleteAnswerSet:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeBlockedVoter, CodeRegistrationClosed:
		return http.StatusForbidden
	case CodeNotFound, CodeDocumentNotAssociated:
		return http.StatusNotFound
	case CodeAlreadyClaimed, CodeConcurrentClaimConflict, CodeIllegalTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
