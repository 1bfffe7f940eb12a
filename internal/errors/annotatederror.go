// Package errors provides errors annotated with slog attributes and the stack trace of where they were created.
//
// It re-exports the standard library errors functions so that it can be imported in place of it.
package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

const maxStackDepth = 32

type annotatedError struct {
	msg   string
	err   error
	attrs []slog.Attr
	stack []uintptr
}

func (e *annotatedError) Error() string {
	if e.err == nil {
		return e.msg
	}
	if e.msg == "" {
		return e.err.Error()
	}
	return e.msg + ": " + e.err.Error()
}

func (e *annotatedError) Unwrap() error {
	return e.err
}

func callers(skip int) []uintptr {
	pcs := make([]uintptr, maxStackDepth)
	// Skip runtime.Callers, callers and the exported constructor.
	n := runtime.Callers(skip+3, pcs) //nolint:mnd // see above.
	return pcs[:n]
}

// NewSentinel creates an error without a stack trace, suitable for package level sentinel values.
func NewSentinel(msg string) error {
	return stderrors.New(msg)
}

// New creates an error that records the stack trace of the caller.
func New(msg string, attrs ...slog.Attr) error {
	return &annotatedError{
		msg:   msg,
		err:   nil,
		attrs: attrs,
		stack: callers(0),
	}
}

// Wrap annotates err with msg and attrs and records the stack trace of the caller.
//
// Wrap returns nil if err is nil.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	return &annotatedError{
		msg:   msg,
		err:   err,
		attrs: attrs,
		stack: callers(0),
	}
}

// DecoratePanic converts a recovered panic value into an error with the stack trace of the panic.
func DecoratePanic(excp any) error {
	if excp == nil {
		return nil
	}
	var cause error
	if err, ok := excp.(error); ok {
		cause = err
	} else {
		cause = stderrors.New(fmt.Sprint(excp))
	}
	return &annotatedError{
		msg:   "panic",
		err:   cause,
		attrs: nil,
		stack: callers(0),
	}
}

// SlogError renders err as a slog group containing the message, the collected annotations, and the stack trace
// of the innermost annotated error.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}

	var (
		annotations []any
		stack       []uintptr
	)
	for cur := err; cur != nil; cur = stderrors.Unwrap(cur) {
		var ae *annotatedError
		if !stderrors.As(cur, &ae) {
			break
		}
		for _, attr := range ae.attrs {
			annotations = append(annotations, attr)
		}
		if len(ae.stack) > 0 {
			stack = ae.stack
		}
		cur = ae
	}

	attrs := []any{slog.String("message", err.Error())}
	if len(annotations) > 0 {
		attrs = append(attrs, slog.Group("annotations", annotations...))
	}
	if len(stack) > 0 {
		attrs = append(attrs, slog.String("stack_trace", formatStack(stack)))
	}
	return slog.Group("error", attrs...)
}

func formatStack(pcs []uintptr) string {
	var sb strings.Builder
	frames := runtime.CallersFrames(pcs)
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			_, _ = fmt.Fprintf(&sb, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// Is reports whether any error in err's tree matches target. See [errors.Is].
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target. See [errors.As].
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err. See [errors.Unwrap].
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// Join returns an error that wraps the given errors. See [errors.Join].
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}
