package db

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error Kinds
// --------------------------------------------------------------------------

// ErrorKind is the generic classification every engine error is normalized to.
type ErrorKind uint8

const (
	KindUnknown         ErrorKind = iota // 0: not classified
	KindInvalidArgument                  // 1: bad input (arity, number parsing, pattern, ...)
	KindPathError                        // 2: storage path has the wrong kind
	KindNotSupported                     // 3: operation not available on this backend
	KindNotConnected                     // 4: handle closed or never opened
	KindEngineError                      // 5: failure reported by the native engine
	KindNotFound                         // 6: key or namespace does not exist
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindPathError:
		return "PathError"
	case KindNotSupported:
		return "NotSupported"
	case KindNotConnected:
		return "NotConnected"
	case KindEngineError:
		return "EngineError"
	case KindNotFound:
		return "NotFound"
	default:
		return "Unknown"
	}
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrPath            = &Error{Kind: KindPathError}
	ErrNotSupported    = &Error{Kind: KindNotSupported}
	ErrNotConnected    = &Error{Kind: KindNotConnected}
	ErrEngine          = &Error{Kind: KindEngineError}
	ErrNotFound        = &Error{Kind: KindNotFound}
)

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the error type returned by every engine and connection method.
// Cmd names the failing command (SET, GET, ...) and may be empty.
type Error struct {
	Kind ErrorKind
	Cmd  string
	Msg  string
	Err  error // native cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Cmd != "" {
		return fmt.Sprintf("%s function error: %s", e.Cmd, msg)
	}
	return msg
}

// Unwrap exposes the native cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels (ErrNotFound, ...).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Cmd == "" && t.Msg == "" && t.Err == nil {
		return t.Kind == e.Kind
	}
	return t == e
}

// NewError creates a new error of the given kind.
func NewError(kind ErrorKind, cmd, msg string) *Error {
	return &Error{
		Kind: kind,
		Cmd:  cmd,
		Msg:  msg,
	}
}

// WrapError classifies a native error. A nil err yields nil, an err that is
// already an *Error keeps its kind and only gains the command name.
func WrapError(kind ErrorKind, cmd string, err error) error {
	if err == nil {
		return nil
	}
	var dbErr *Error
	if errors.As(err, &dbErr) {
		if dbErr.Cmd != "" || cmd == "" {
			return dbErr
		}
		return &Error{Kind: dbErr.Kind, Cmd: cmd, Msg: dbErr.Msg, Err: dbErr.Err}
	}
	return &Error{
		Kind: kind,
		Cmd:  cmd,
		Msg:  err.Error(),
		Err:  err,
	}
}

// KindOf returns the kind of err, KindUnknown for foreign errors.
func KindOf(err error) ErrorKind {
	var dbErr *Error
	if errors.As(err, &dbErr) {
		return dbErr.Kind
	}
	return KindUnknown
}

// NotConnectedError is returned by every operation on a closed handle.
func NotConnectedError(cmd string) error {
	return NewError(KindNotConnected, cmd, "Not connected")
}

// OpenError wraps a failure while opening an environment. Errors that are
// already classified (PathError, InvalidArgument) keep their kind.
func OpenError(err error) error {
	var dbErr *Error
	if errors.As(err, &dbErr) && dbErr.Kind != KindEngineError {
		return dbErr
	}
	return &Error{
		Kind: KindEngineError,
		Msg:  fmt.Sprintf("Fail open database: %s", err),
		Err:  err,
	}
}
