package rvm

import (
	"errors"
	"fmt"
)

// RejectCode categorizes why a message was not committed.
type RejectCode string

const (
	// CodeMalformedBody indicates the body does not match its type's shape.
	CodeMalformedBody RejectCode = "MALFORMED_BODY"

	// CodeUnknownPrincipal indicates the requester id is not registered.
	CodeUnknownPrincipal RejectCode = "UNKNOWN_PRINCIPAL"

	// CodeUnauthorizedKey indicates the signer key is not active for the requester.
	CodeUnauthorizedKey RejectCode = "UNAUTHORIZED_KEY"

	// CodeHashMismatch indicates the claimed hash is not the hash of the data.
	CodeHashMismatch RejectCode = "HASH_MISMATCH"

	// CodeInvalidSignature indicates the signature does not verify.
	CodeInvalidSignature RejectCode = "INVALID_SIGNATURE"

	// CodePreconditionFailed indicates a referenced entity is missing.
	CodePreconditionFailed RejectCode = "PRECONDITION_FAILED"

	// CodeLimitExceeded indicates text longer than allowed.
	CodeLimitExceeded RejectCode = "LIMIT_EXCEEDED"

	// CodeAlreadyResolved indicates the targeted submission is no longer pending.
	CodeAlreadyResolved RejectCode = "ALREADY_RESOLVED"

	// CodeForbidden indicates the requester lacks the required ownership.
	CodeForbidden RejectCode = "FORBIDDEN"

	// CodeUnhandledType indicates a reserved or unknown message type.
	CodeUnhandledType RejectCode = "UNHANDLED_TYPE"
)

// Verification reports whether the code is produced by VerifyMessage.
func (c RejectCode) Verification() bool {
	switch c {
	case CodeUnknownPrincipal, CodeUnauthorizedKey, CodeHashMismatch, CodeInvalidSignature:
		return true
	}
	return false
}

// RejectError is a normal, expected refusal of a message. It is never a
// store fault: those are returned as ordinary wrapped errors.
type RejectError struct {
	// Code identifies the rejection category.
	Code RejectCode

	// Message is a human-readable description.
	Message string

	// MessageID is the content id of the rejected message, when known.
	MessageID string
}

// Error implements the error interface.
func (e *RejectError) Error() string {
	if e.MessageID != "" {
		return fmt.Sprintf("%s: %s (message=%s)", e.Code, e.Message, e.MessageID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func reject(code RejectCode, format string, args ...any) *RejectError {
	return &RejectError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the rejection code carried by err, or "" if err is not a
// rejection. Uses errors.As to handle wrapped errors.
func CodeOf(err error) RejectCode {
	var re *RejectError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsRejection returns true if err is a *RejectError.
func IsRejection(err error) bool {
	return CodeOf(err) != ""
}

// IsVerificationFailure returns true if err is a rejection raised by
// VerifyMessage.
func IsVerificationFailure(err error) bool {
	return CodeOf(err).Verification()
}

// IsAlreadyResolved returns true if err rejects a second resolution.
func IsAlreadyResolved(err error) bool {
	return CodeOf(err) == CodeAlreadyResolved
}
