// Package domainerrors provides coded errors that services return to callers.
//
// Stores return sentinel errors (see pkg/platform/sentinel); services translate
// them into one of the codes below so transports can map outcomes without
// inspecting infrastructure details.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	CodeNotFound            Code = "not_found"
	CodeCertificateNotFound Code = "certificate_not_found"
	CodeLedgerWriteFailed   Code = "ledger_write_failed"
	CodeLedgerReadFailed    Code = "ledger_read_failed"
	CodeLedgerTimeout       Code = "ledger_timeout"
	CodeContentUnavailable  Code = "content_unavailable"
	CodeInvalidPointer      Code = "invalid_pointer"
	CodeIndexUnavailable    Code = "index_unavailable"
	CodeExtractionFailed    Code = "extraction_failed"
	CodeIssuanceFailed      Code = "issuance_failed"
	CodeConflict            Code = "conflict"
	CodeBadRequest          Code = "bad_request"
	CodeValidation          Code = "validation_error"
	CodeUnauthorized        Code = "unauthorized"
	CodeTimeout             Code = "timeout"
	CodeInternal            Code = "internal_error"
)

// Error is a domain error with a stable code and a caller-facing message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a domain error without an underlying cause.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether any domain error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// CodeOf returns the outermost domain code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Is reports whether err is a domain error, optionally matching one of codes.
func Is(err error, codes ...Code) bool {
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	if len(codes) == 0 {
		return true
	}
	for _, c := range codes {
		if HasCode(err, c) {
			return true
		}
	}
	return false
}
