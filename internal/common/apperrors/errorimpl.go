package apperrors

import (
	"errors"
	"strings"
)

type appError struct {
	msg           string
	base          error
	wrappedErrors []error
	exitCode      int
	expandError   bool
	prefix        string
	suffix        string
}

func (e *appError) Error() string {
	msg := e.msg
	if e.prefix != "" {
		msg = e.prefix + ": " + msg
	}
	if e.suffix != "" {
		msg = msg + ": " + e.suffix
	}
	return msg
}

// ErrorAll returns the message followed by every attached cause that is not itself
// part of the sentinel chain. Without expansion it is the same as Error.
func (e *appError) ErrorAll() string {
	if !e.expandError {
		return e.Error()
	}
	var b strings.Builder
	b.WriteString(e.Error())
	for _, err := range e.wrappedErrors {
		if _, ok := err.(*appError); ok {
			continue
		}
		b.WriteString("; ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *appError) Unwrap() error {
	return e.base
}

func (e *appError) UnwrapAll() []error {
	return e.wrappedErrors
}

func (e *appError) derive(msg string, wrapped []error) *appError {
	return &appError{
		msg:           msg,
		base:          e,
		wrappedErrors: wrapped,
		exitCode:      e.exitCode,
		expandError:   e.expandError,
	}
}

func (e *appError) New(msg string) Error {
	return e.derive(msg, nil)
}

func (e *appError) Msg(msg string) Error {
	return e.derive(msg, append([]error{e}, e.wrappedErrors...))
}

func (e *appError) MsgErr(msg string, errs ...error) Error {
	wrapped := append([]error{e}, e.wrappedErrors...)
	return e.derive(msg, append(wrapped, nonNil(errs)...))
}

func (e *appError) Err(errs ...error) Error {
	wrapped := append([]error{e}, e.wrappedErrors...)
	return e.derive(e.msg, append(wrapped, nonNil(errs)...))
}

func (e *appError) Prefix(p string) Error {
	cp := *e
	cp.prefix = p
	return &cp
}

func (e *appError) Suffix(s string) Error {
	cp := *e
	cp.suffix = s
	return &cp
}

func (e *appError) SetExpandError(flag bool) Error {
	cp := *e
	cp.expandError = flag
	return &cp
}

func (e *appError) SetExitCode(code int) Error {
	cp := *e
	cp.exitCode = code
	return &cp
}

func (e *appError) ExitCode() int {
	return e.exitCode
}

// Is reports a match against the base chain or any attached cause.
func (e *appError) Is(target error) bool {
	if target == nil {
		return false
	}
	if errors.Is(e.base, target) {
		return true
	}
	for _, err := range e.wrappedErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// As lets errors.As reach driver errors attached as causes.
func (e *appError) As(target any) bool {
	for _, err := range e.wrappedErrors {
		if _, ok := err.(*appError); ok {
			continue
		}
		if errors.As(err, target) {
			return true
		}
	}
	return false
}

// New creates a root error with the given message.
func New(msg string) Error {
	return &appError{msg: msg}
}

// ExitCodeOf returns the exit code carried by err, or fallback when err is not an
// Error or carries none.
func ExitCodeOf(err error, fallback int) int {
	var ae Error
	if errors.As(err, &ae) && ae.ExitCode() != 0 {
		return ae.ExitCode()
	}
	return fallback
}

func nonNil(errs []error) []error {
	out := errs[:0:0]
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
