// Package errs defines the typed failures returned by every rsnDB operation.
//
// All validation happens before a mutation is applied, so any *Error returned
// by the engine means the state is unchanged. The Code is the stable part of
// the error that callers branch on; Msg and Details are for humans and logs.
package errs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// --------------------------------------------------------------------------
// Codes
// --------------------------------------------------------------------------

// Code classifies a failure.
type Code uint64

const (
	Internal                  Code = iota // 0: unexpected failure (I/O, encoding bugs)
	InvalidArgument                       // 1: malformed request or schema
	DuplicateTable                        // 2
	UnknownTable                          // 3
	RowNotFound                           // 4
	TypeMismatch                          // 5
	UniqueConstraintViolation             // 6
	RecursionLimitExceeded                // 7
	DuplicateCheckpoint                   // 8
	UnknownCheckpoint                     // 9
	DecryptionFailed                      // 10: missing/unexpected key or malformed ciphertext
	AuthenticationFailed                  // 11: wrong key or tampered ciphertext
	ChecksumMismatch                      // 12
	UnsupportedFormatVersion              // 13
	PathRejected                          // 14
	IdentifierInvalid                     // 15
	LimitExceeded                         // 16: batch/size/line/recursion caps
	DuplicateEdge                         // 17
	EdgeNotFound                          // 18
	KeyNotFound                           // 19
)

var codeNames = map[Code]string{
	Internal:                  "Internal",
	InvalidArgument:           "InvalidArgument",
	DuplicateTable:            "DuplicateTable",
	UnknownTable:              "UnknownTable",
	RowNotFound:               "RowNotFound",
	TypeMismatch:              "TypeMismatch",
	UniqueConstraintViolation: "UniqueConstraintViolation",
	RecursionLimitExceeded:    "RecursionLimitExceeded",
	DuplicateCheckpoint:       "DuplicateCheckpoint",
	UnknownCheckpoint:         "UnknownCheckpoint",
	DecryptionFailed:          "DecryptionFailed",
	AuthenticationFailed:      "AuthenticationFailed",
	ChecksumMismatch:          "ChecksumMismatch",
	UnsupportedFormatVersion:  "UnsupportedFormatVersion",
	PathRejected:              "PathRejected",
	IdentifierInvalid:         "IdentifierInvalid",
	LimitExceeded:             "LimitExceeded",
	DuplicateEdge:             "DuplicateEdge",
	EdgeNotFound:              "EdgeNotFound",
	KeyNotFound:               "KeyNotFound",
}

// String returns the kind name used on the request/response surface.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%d)", uint64(c))
}

// ParseCode is the inverse of Code.String.
func ParseCode(name string) (Code, bool) {
	for c, n := range codeNames {
		if n == name {
			return c, true
		}
	}
	return Internal, false
}

// --------------------------------------------------------------------------
// Error Type
// --------------------------------------------------------------------------

// Error is a typed failure with enough context for a caller to correct
// the input and retry.
type Error struct {
	Code    Code           // Kind of the failure
	Msg     string         // Human-readable message
	Details map[string]any // Context such as table, field or limit
	Cause   error          // Underlying error, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Code.String())
	b.WriteString(": ")
	b.WriteString(e.Msg)

	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Details[k])
		}
		b.WriteString(")")
	}

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap exposes the cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// With attaches a detail and returns the same error for chaining.
func (e *Error) With(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any, 4)
	}
	e.Details[key] = value
	return e
}

// --------------------------------------------------------------------------
// Constructors and Helpers
// --------------------------------------------------------------------------

// New creates an *Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error that carries cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or Internal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Internal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// As returns the *Error in err's chain. Non-typed errors are wrapped as Internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(Internal, err, "internal error")
}
