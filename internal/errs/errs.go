// Package errs defines the gateway's error taxonomy by kind rather
// than by concrete type, so callers can classify an error with
// errors.Is instead of inspecting its dynamic type.
package errs

import "errors"

// Kind sentinels. Use the Wrap helper below rather than
// fmt.Errorf("...: %w", Kind); Wrap produces an error that both
// satisfies errors.Is(err, KindX) and unwraps to the original cause.
var (
	Validation        = errors.New("validation error")
	UpstreamTransient = errors.New("upstream transient error")
	UpstreamPermanent = errors.New("upstream permanent error")
	NotFound          = errors.New("not found")
	Fatal             = errors.New("fatal error")
	Unexpected        = errors.New("unexpected error")
)

type wrapped struct {
	kind  error
	cause error
}

func (w *wrapped) Error() string {
	if w.cause == nil {
		return w.kind.Error()
	}
	return w.kind.Error() + ": " + w.cause.Error()
}

func (w *wrapped) Unwrap() []error {
	return []error{w.kind, w.cause}
}

// Wrap tags cause with kind, preserving errors.Is(result, kind) and
// errors.Is(result, cause).
func Wrap(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return &wrapped{kind: kind, cause: cause}
}

// Is reports whether err was produced by Wrap(kind, ...) or is kind
// itself.
func Is(err, kind error) bool {
	return errors.Is(err, kind)
}
