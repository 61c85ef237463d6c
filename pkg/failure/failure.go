// Package failure defines the error taxonomy shared by the decision and
// dispatch engines.
//
// Every error that crosses a component boundary carries a Kind, so callers
// branch on the kind instead of on status codes or message text.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// KindUnknown is reported for errors that carry no taxonomy kind.
	KindUnknown Kind = iota

	// DataUnavailable means no valid region candidates remained after the
	// carbon snapshot was fetched. It aborts the tick.
	DataUnavailable

	// ConfigurationError covers invalid weights, unknown providers and empty
	// catalogs. It is raised at construction and never silently defaulted.
	ConfigurationError

	// TransientDispatchFailure is a single failed dispatch attempt (timeout,
	// connection error, non-2xx response). The retry loop absorbs it.
	TransientDispatchFailure

	// RetryExhausted means every dispatch attempt failed. It wraps the last
	// underlying error.
	RetryExhausted

	// LogSinkFailure is a decision log error. It is logged and never
	// propagated.
	LogSinkFailure
)

func (k Kind) String() string {
	switch k {
	case DataUnavailable:
		return "data_unavailable"
	case ConfigurationError:
		return "configuration_error"
	case TransientDispatchFailure:
		return "transient_dispatch_failure"
	case RetryExhausted:
		return "retry_exhausted"
	case LogSinkFailure:
		return "log_sink_failure"
	default:
		return "unknown"
	}
}

// ParseKind maps a kind name back to its Kind. Unrecognized names are
// KindUnknown.
func ParseKind(s string) Kind {
	for k := DataUnavailable; k <= LogSinkFailure; k++ {
		if k.String() == s {
			return k
		}
	}
	return KindUnknown
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	*k = ParseKind(string(text))
	return nil
}

// Error is an error tagged with a Kind.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "decide" or "dispatch".
	Op  string
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an error of the given kind wrapping err.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf returns an error of the given kind with a formatted cause.
func Newf(kind Kind, op string, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost tagged error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
