package apperr

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// Kind classifies an operation failure. Every error crossing a service
// boundary carries exactly one Kind so handlers can translate it into a
// specific user-facing message without string matching.
type Kind int

const (
	// Remote is the catch-all for uncategorized collaborator failures.
	Remote Kind = iota
	// Unauthenticated: no active identity where one is required.
	Unauthenticated
	// Validation: malformed or missing input, detected before any remote call.
	Validation
	// DuplicateActiveRequest: an active visit request already exists for the
	// same (listing, student) pair.
	DuplicateActiveRequest
	// NotFound: the referenced listing/conversation/user is absent.
	NotFound
	// PermissionDenied: the actor does not own the resource being mutated.
	PermissionDenied
	// NetworkUnavailable: transient connectivity failure.
	NetworkUnavailable
	// Timeout: the client-side read guard fired before the remote response.
	// The remote outcome is unknown; it must not be assumed to have failed.
	Timeout
)

func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case Validation:
		return "validation"
	case DuplicateActiveRequest:
		return "duplicate_active_request"
	case NotFound:
		return "not_found"
	case PermissionDenied:
		return "permission_denied"
	case NetworkUnavailable:
		return "network_unavailable"
	case Timeout:
		return "timeout"
	default:
		return "remote_error"
	}
}

// Error is a classified error. Msg is safe to log; the user-facing message is
// chosen by the handler from the Kind.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a classified error with a message.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the Kind of err, or Remote when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Remote
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// FromMongo maps a mongo-driver error to the taxonomy. notFoundMsg is used
// when the error is ErrNoDocuments.
func FromMongo(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return Wrap(NotFound, notFoundMsg, err)
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(Timeout, "deadline exceeded", err)
	case mongo.IsNetworkError(err):
		return Wrap(NetworkUnavailable, "database unreachable", err)
	case mongo.IsTimeout(err):
		return Wrap(Timeout, "database timed out", err)
	default:
		return Wrap(Remote, "database error", err)
	}
}
