// Package apperr carries the error taxonomy the core services speak.
// Every rejection a caller can see is an *Error with a Kind, a stable
// Code, and a human-readable reason.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindStateConflict Kind = "state_conflict"
	KindContention    Kind = "contention"
	KindPersistence   Kind = "persistence"
)

// Stable codes callers branch on.
const (
	CodeInvalidAmount = "InvalidAmount"
	CodeInvalidInput  = "InvalidInput"
	CodeForbidden     = "Forbidden"
	CodeNotApproved   = "NotApproved"
	CodeRoundNotReady = "RoundNotReady"
	CodeCircleFull    = "CircleFull"
	CodeAlreadyMember = "AlreadyMember"
	CodeNotFound      = "NotFound"
	CodeBadTransition = "BadTransition"
	CodeContention    = "Contention"
	CodeStoreFailure  = "StoreFailure"
)

type Error struct {
	Kind   Kind
	Code   string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, code, reason string) *Error {
	return &Error{Kind: kind, Code: code, Reason: reason}
}

func Wrap(kind Kind, code string, err error) *Error {
	return &Error{Kind: kind, Code: code, Err: err}
}

func Validation(code, reason string) *Error {
	return New(KindValidation, code, reason)
}

func Authorization(reason string) *Error {
	return New(KindAuthorization, CodeForbidden, reason)
}

func StateConflict(code, reason string) *Error {
	return New(KindStateConflict, code, reason)
}

func Contention(reason string) *Error {
	return New(KindContention, CodeContention, reason)
}

func Persistence(err error) *Error {
	return Wrap(KindPersistence, CodeStoreFailure, err)
}

// IsCode reports whether err is an *Error carrying the given code.
func IsCode(err error, code string) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// KindOf returns the Kind of err, or KindPersistence for unclassified errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindPersistence
}
