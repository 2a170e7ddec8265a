package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies failures at component boundaries so front ends can map
// them to their own error responses.
type Kind int

const (
	KindUnknown Kind = iota
	KindAcquisition
	KindDecode
	KindNoValidRanges
	KindNotFound
	KindStorage
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindAcquisition:
		return "acquisition_error"
	case KindDecode:
		return "decode_error"
	case KindNoValidRanges:
		return "no_valid_ranges"
	case KindNotFound:
		return "not_found"
	case KindStorage:
		return "storage_error"
	default:
		return "internal_error"
	}
}

// Error carries a kind, a human readable detail that is safe to show to
// callers, and the underlying cause.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Detail == "" && t.Err == nil
}

var (
	ErrAcquisition   = &Error{Kind: KindAcquisition}
	ErrDecode        = &Error{Kind: KindDecode}
	ErrNoValidRanges = &Error{Kind: KindNoValidRanges}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrStorage       = &Error{Kind: KindStorage}
)

func Acquisition(detail string, err error) *Error {
	return &Error{Kind: KindAcquisition, Detail: detail, Err: err}
}

func Decode(detail string, err error) *Error {
	return &Error{Kind: KindDecode, Detail: detail, Err: err}
}

func NoValidRanges() *Error {
	return &Error{Kind: KindNoValidRanges, Detail: "no valid page ranges specified"}
}

func NotFound(name string) *Error {
	return &Error{Kind: KindNotFound, Detail: fmt.Sprintf("file not found or expired: %s", name)}
}

func Storage(detail string, err error) *Error {
	return &Error{Kind: KindStorage, Detail: detail, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// DetailOf returns the caller-safe detail of err. Errors without a kind
// collapse to a generic message so internal paths never leak.
func DetailOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Detail != "" {
		return e.Detail
	}
	return "internal error"
}
