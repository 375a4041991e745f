package infer

import "fmt"

// invalidArgumentError signals request data that disagrees with the
// model descriptor (unknown name, byte-size/shape mismatch).
type invalidArgumentError struct{ msg string }

func (e invalidArgumentError) Error() string { return "invalid argument: " + e.msg }

func errInvalidArgumentf(format string, args ...any) error {
	return invalidArgumentError{msg: fmt.Sprintf(format, args...)}
}

// IsInvalidArgument reports whether err indicates malformed request data.
func IsInvalidArgument(err error) bool {
	_, ok := err.(invalidArgumentError)
	return ok
}

// notFoundError signals an unresolved input/output or model lookup.
type notFoundError struct{ kind, name string }

func (e notFoundError) Error() string { return e.kind + " not found: " + e.name }

// ErrNotFound returns an error for an unresolved named lookup.
func ErrNotFound(kind, name string) error { return notFoundError{kind: kind, name: name} }

// IsNotFound reports whether the error indicates a missing named entity.
func IsNotFound(err error) bool {
	_, ok := err.(notFoundError)
	return ok
}

// internalError signals a broken invariant inside the request lifecycle
// (missing output at finalize, double finalize, no scheduler installed).
type internalError struct{ msg string }

func (e internalError) Error() string { return "internal: " + e.msg }

func errInternalf(format string, args ...any) error {
	return internalError{msg: fmt.Sprintf(format, args...)}
}

// IsInternal reports whether err indicates a broken request invariant.
func IsInternal(err error) bool {
	_, ok := err.(internalError)
	return ok
}

// misuseError signals an integration bug in the caller rather than bad
// request data: installing a second scheduler, producing the same
// output twice, skipping a request phase.
type misuseError struct{ msg string }

func (e misuseError) Error() string { return "misuse: " + e.msg }

func errMisusef(format string, args ...any) error {
	return misuseError{msg: fmt.Sprintf(format, args...)}
}

// IsMisuse reports whether err indicates an integration bug.
func IsMisuse(err error) bool {
	_, ok := err.(misuseError)
	return ok
}

// tooBusyError signals scheduler queue overflow for 429 mapping.
type tooBusyError struct{ model string }

func (e tooBusyError) Error() string { return "too busy: " + e.model }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	_, ok := err.(tooBusyError)
	return ok
}
