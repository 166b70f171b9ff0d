// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

package vision

import (
	"errors"
	"fmt"
)

// Kind classifies why an identification attempt produced no label.
type Kind string

const (
	KindImageEncoding    Kind = "image_encoding"
	KindCredential       Kind = "credential_fetch"
	KindTransport        Kind = "transport"
	KindUnexpectedStatus Kind = "unexpected_status"
	KindDecode           Kind = "decode"
	// KindUnknownLabel is not returned by Client; callers that validate the
	// label against the catalog use it to report a substitution.
	KindUnknownLabel Kind = "unknown_label"
)

// Error is the typed failure of an identification attempt.
type Error struct {
	Kind   Kind
	Status int // set for KindUnexpectedStatus
	Cause  error
}

// Sentinels for errors.Is.
var (
	ErrImageEncoding    = &Error{Kind: KindImageEncoding}
	ErrCredential       = &Error{Kind: KindCredential}
	ErrTransport        = &Error{Kind: KindTransport}
	ErrUnexpectedStatus = &Error{Kind: KindUnexpectedStatus}
	ErrDecode           = &Error{Kind: KindDecode}
	ErrUnknownLabel     = &Error{Kind: KindUnknownLabel}
)

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Kind == KindUnexpectedStatus && e.Status != 0 {
		msg = fmt.Sprintf("%s %d", msg, e.Status)
	}
	if e.Cause != nil {
		return fmt.Sprintf("identify: %s: %v", msg, e.Cause)
	}
	return "identify: " + msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
