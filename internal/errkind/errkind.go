// Package errkind classifies pipeline errors into the handling policies
// described in the specification's error-handling design: transient
// failures are retried via non-ack, malformed input is dropped and acked,
// validation failures are dropped before dedup, missing catalog lookups
// degrade gracefully, and config errors fail the process fast.
package errkind

import "errors"

// Kind is a sentinel error a handler can test for with errors.Is.
type Kind error

var (
	// TransientExternal marks network, 5xx, or rate-limit failures from an
	// external dependency (news API, embedding service, LLM, broker).
	// Handlers must not ack the record so the bus redelivers it.
	TransientExternal Kind = errors.New("transient external failure")

	// MalformedExternal marks invalid JSON or schema from an external
	// dependency (LLM response, news payload). The record is dropped and
	// acked — retrying will not fix malformed data.
	MalformedExternal Kind = errors.New("malformed external response")

	// ValidationError marks a record that fails input validation (e.g. an
	// article missing required fields). Dropped before dedup.
	ValidationError Kind = errors.New("validation error")

	// NotFound marks a catalog lookup miss (e.g. a supplier name the LLM
	// returned that isn't in the current catalog). Not necessarily fatal —
	// callers may continue with a partial result.
	NotFound Kind = errors.New("not found")

	// ConfigError marks a fatal startup condition (missing API key,
	// unreachable dependency). Callers should exit non-zero.
	ConfigError Kind = errors.New("configuration error")

	// InvariantViolation marks a computed value that fell outside its
	// documented range. In production this is logged and the value is
	// clamped back into range; it is never silently ignored.
	InvariantViolation Kind = errors.New("invariant violation")
)

// wrapped pairs a sentinel Kind with a causal error for %w-chaining.
type wrapped struct {
	kind Kind
	err  error
}

func (w *wrapped) Error() string { return w.kind.Error() + ": " + w.err.Error() }
func (w *wrapped) Unwrap() error { return w.err }
func (w *wrapped) Is(target error) bool { return target == w.kind }

// Wrap associates err with kind so callers can later branch with
// errors.Is(err, errkind.TransientExternal) etc.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &wrapped{kind: kind, err: err}
}

// Is reports whether err was wrapped with the given kind.
func Is(err error, kind Kind) bool {
	return errors.Is(err, kind)
}
