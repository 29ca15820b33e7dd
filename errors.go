package mpv

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes an Error.
type Kind string

const (
	KindNativeLibraryNotFound Kind = "native_library_not_found"
	KindEntryPointNotFound    Kind = "entry_point_not_found"
	KindInvalidArgument       Kind = "invalid_argument"
	KindCommand               Kind = "command_error"
	KindTimeout               Kind = "timeout"
	KindObjectDisposed        Kind = "object_disposed"
)

// ErrorCode is a libmpv status code. Negative values are errors.
type ErrorCode int32

// Error codes from client.h.
const (
	ErrorSuccess             ErrorCode = 0
	ErrorEventQueueFull      ErrorCode = -1
	ErrorNoMem               ErrorCode = -2
	ErrorUninitialized       ErrorCode = -3
	ErrorInvalidParameter    ErrorCode = -4
	ErrorOptionNotFound      ErrorCode = -5
	ErrorOptionFormat        ErrorCode = -6
	ErrorOptionError         ErrorCode = -7
	ErrorPropertyNotFound    ErrorCode = -8
	ErrorPropertyFormat      ErrorCode = -9
	ErrorPropertyUnavailable ErrorCode = -10
	ErrorPropertyError       ErrorCode = -11
	ErrorCommandFailed       ErrorCode = -12
	ErrorLoadingFailed       ErrorCode = -13
	ErrorAOInitFailed        ErrorCode = -14
	ErrorVOInitFailed        ErrorCode = -15
	ErrorNothingToPlay       ErrorCode = -16
	ErrorUnknownFormat       ErrorCode = -17
	ErrorUnsupported         ErrorCode = -18
	ErrorNotImplemented      ErrorCode = -19
	ErrorGeneric             ErrorCode = -20
)

// Error is the structured error returned by this package.
// Two Errors match under errors.Is when their Kinds are equal, so callers
// can test against the Err* sentinels.
type Error struct {
	Cause  error
	Kind   Kind
	Op     string
	Detail string
	Code   ErrorCode
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("mpv: ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Code != 0 {
		fmt.Fprintf(&b, " (%d)", e.Code)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target has the same Kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Sentinels for errors.Is.
var (
	ErrNativeLibraryNotFound = &Error{Kind: KindNativeLibraryNotFound}
	ErrEntryPointNotFound    = &Error{Kind: KindEntryPointNotFound}
	ErrInvalidArgument       = &Error{Kind: KindInvalidArgument}
	ErrCommand               = &Error{Kind: KindCommand}
	ErrTimeout               = &Error{Kind: KindTimeout}
	ErrObjectDisposed        = &Error{Kind: KindObjectDisposed}
)

func invalidArgument(op, detail string) *Error {
	return &Error{Kind: KindInvalidArgument, Op: op, Detail: detail}
}

func disposed(op string) *Error {
	return &Error{Kind: KindObjectDisposed, Op: op, Detail: "mpv handle has been closed"}
}

// CodeOf extracts the libmpv status code from err, or ErrorSuccess if
// err does not carry one.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrorSuccess
}
