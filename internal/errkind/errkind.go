// Package errkind defines the closed set of error classifications shared by
// every component of the queue orchestration engine. Consumers should
// prefer errors.Is against the sentinel returned by Sentinel(kind), or
// call Of(err) to recover the kind from a wrapped error.
package errkind

import "errors"

// Kind is one of a closed set of error classifications. New values must not
// be added without a corresponding update to every switch over Kind in this
// module, since widening this set is itself a schema-affecting change for
// any component that persists a Kind value.
type Kind string

const (
	Network          Kind = "network"
	RateLimited      Kind = "rate_limited"
	NotFound         Kind = "not_found"
	Unsupported      Kind = "unsupported"
	Malformed        Kind = "malformed"
	Expired          Kind = "expired"
	GeoBlocked       Kind = "geo_blocked"
	DRMBlocked       Kind = "drm_blocked"
	Duplicate        Kind = "duplicate"
	FairnessPending  Kind = "fairness_pending"
	FairnessPlaying  Kind = "fairness_playing"
	QueueFull        Kind = "queue_full"
	TrackTooLong     Kind = "track_too_long"
	OutOfRange       Kind = "out_of_range"
	SchemaMismatch   Kind = "schema_mismatch"
	Cancelled        Kind = "cancelled"
	TransportError   Kind = "transport_error"
	CorruptSnapshot  Kind = "corrupt_snapshot"
)

// Error is a typed error carrying one of the closed Kind values plus a
// log-facing detail string not meant for end-user display.
type Error struct {
	kind   Kind
	detail string
	cause  error
}

// New constructs an *Error of the given kind with a log-facing detail string.
func New(kind Kind, detail string) *Error {
	return &Error{kind: kind, detail: detail}
}

// Wrap constructs an *Error of the given kind that preserves cause for
// errors.Unwrap/errors.As chains.
func Wrap(kind Kind, detail string, cause error) *Error {
	return &Error{kind: kind, detail: detail, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		if e.detail == "" {
			return string(e.kind) + ": " + e.cause.Error()
		}
		return string(e.kind) + ": " + e.detail + ": " + e.cause.Error()
	}
	if e.detail == "" {
		return string(e.kind)
	}
	return string(e.kind) + ": " + e.detail
}

func (e *Error) Unwrap() error { return e.cause }

// Kind returns the error's classification.
func (e *Error) Kind() Kind { return e.kind }

// Is allows errors.Is(err, errkind.Sentinel(kind)) to match any *Error of
// that kind regardless of detail/cause, by comparing kinds rather than
// identity.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.kind == e.kind && other.detail == "" && other.cause == nil
	}
	return false
}

// Sentinel returns a comparable marker *Error for the given kind, suitable
// for errors.Is(err, errkind.Sentinel(errkind.Duplicate)).
func Sentinel(kind Kind) *Error {
	return &Error{kind: kind}
}

// Of recovers the Kind from err if it is, or wraps, an *Error. The second
// return value is false if err carries no classification.
func Of(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.kind, true
	}
	return "", false
}
