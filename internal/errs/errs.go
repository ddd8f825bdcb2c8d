// Package errs provides coded domain errors for ghostkeeper.
//
// Usage:
//
//	// In the store - return typed errors with context
//	return errs.IndexOutOfRange("ghost", index, count)
//
//	// At the boundary - check with errors.Is
//	if errors.Is(err, errs.ErrInvalidToken) {
//	    session.ClearToken()
//	}
//
//	// Or inspect the code and details for rendering
//	var e *errs.Error
//	if errors.As(err, &e) {
//	    switch e.Code {
//	    case errs.CodeParse:
//	        ...
//	    }
//	}
package errs

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeParse             Code = "PARSE"
	CodeMissingNickname   Code = "MISSING_NICKNAME"
	CodeProfileTopology   Code = "PROFILE_TOPOLOGY"
	CodeIndexOutOfRange   Code = "INDEX_OUT_OF_RANGE"
	CodeConsistency       Code = "CONSISTENCY"
	CodeMalformedRecord   Code = "MALFORMED_RECORD"
	CodeUnsupportedChange Code = "UNSUPPORTED_CHANGE"
	CodeInvalidNickname   Code = "INVALID_NICKNAME"
	CodeNotLoaded         Code = "NOT_LOADED"
	CodeUnsavedChanges    Code = "UNSAVED_CHANGES"
	CodeService           Code = "SERVICE"
	CodeInvalidToken      Code = "INVALID_TOKEN"
	CodeConditionClosed   Code = "CONDITION_CLOSED"
)

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithDetails returns a new error with additional details merged in.
func (e *Error) WithDetails(kv ...any) *Error {
	details := make(map[string]any, len(e.Details)+len(kv)/2)
	for k, v := range e.Details {
		details[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		details[key] = kv[i+1]
	}
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, cause: err}
}

// Detail returns a single detail value.
func (e *Error) Detail(key string) (any, bool) {
	if e.Details == nil {
		return nil, false
	}
	v, ok := e.Details[key]
	return v, ok
}

// Sentinel errors for use with errors.Is().
var (
	ErrParse             = &Error{Code: CodeParse, Message: "parse error"}
	ErrMissingNickname   = &Error{Code: CodeMissingNickname, Message: "missing nickname"}
	ErrProfileTopology   = &Error{Code: CodeProfileTopology, Message: "profile topology violation"}
	ErrIndexOutOfRange   = &Error{Code: CodeIndexOutOfRange, Message: "index out of range"}
	ErrConsistency       = &Error{Code: CodeConsistency, Message: "consistency check failed"}
	ErrMalformedRecord   = &Error{Code: CodeMalformedRecord, Message: "malformed ghost record"}
	ErrUnsupportedChange = &Error{Code: CodeUnsupportedChange, Message: "unsupported change"}
	ErrInvalidNickname   = &Error{Code: CodeInvalidNickname, Message: "invalid nickname"}
	ErrNotLoaded         = &Error{Code: CodeNotLoaded, Message: "no document loaded"}
	ErrUnsavedChanges    = &Error{Code: CodeUnsavedChanges, Message: "unsaved changes"}
	ErrService           = &Error{Code: CodeService, Message: "scoreboard service error"}
	ErrInvalidToken      = &Error{Code: CodeInvalidToken, Message: "invalid token"}
	ErrConditionClosed   = &Error{Code: CodeConditionClosed, Message: "condition closed"}
)

// New creates an error with the given code and message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Parse creates a parse error.
func Parse(format string, args ...any) *Error {
	return New(CodeParse, format, args...)
}

// MissingNickname reports a profile without a nickname element.
func MissingNickname(index int) *Error {
	return New(CodeMissingNickname, "no <Nickname> tag in profile #%d", index).WithDetails("index", index)
}

// ProfileTopology reports a structural profile violation.
func ProfileTopology(format string, args ...any) *Error {
	return New(CodeProfileTopology, format, args...)
}

// IndexOutOfRange reports caller misuse of a positional accessor.
func IndexOutOfRange(what string, index, count int) *Error {
	return New(CodeIndexOutOfRange, "%s #%d out of range (count %d)", what, index, count).
		WithDetails("what", what, "index", index, "count", count)
}

// Consistency reports a divergence between in-memory and document state.
func Consistency(inMemory, inDocument int) *Error {
	return New(CodeConsistency, "ghost records(%d) != document nodes(%d)", inMemory, inDocument).
		WithDetails("memory", inMemory, "document", inDocument)
}

// MalformedRecord reports a ghost record field that could not be parsed.
func MalformedRecord(field, reason string) *Error {
	return New(CodeMalformedRecord, "malformed ghost record: %s %s", field, reason).WithDetails("field", field)
}

// UnsupportedChange reports a topology change observed while fast-follow was armed.
func UnsupportedChange(format string, args ...any) *Error {
	return New(CodeUnsupportedChange, format, args...)
}

// InvalidNickname reports a nickname rejected by validation.
func InvalidNickname(nick, reason string) *Error {
	return New(CodeInvalidNickname, "nickname %q %s", nick, reason).WithDetails("nickname", nick)
}

// Service creates a generic scoreboard failure.
func Service(format string, args ...any) *Error {
	return New(CodeService, format, args...)
}

// CodeOf returns the code of err, or "" when err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
