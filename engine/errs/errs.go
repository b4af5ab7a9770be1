// Package errs defines the typed error kinds the B-tree engine
// surfaces to callers, wrapped with github.com/pkg/errors so that
// %+v formatting on a propagated error still shows the stack of the
// failing store call.
package errs

import "github.com/pkg/errors"

// Kind enumerates the engine's error taxonomy. Every *Error carries
// exactly one Kind, recoverable with errors.As. Failures below the
// taxonomy (a node that cannot be loaded, a write on a read-only
// store, a store adapter error) are returned as plain errors with no
// Kind.
type Kind int

const (
	// AlreadyInitialized: explicit Init on a namespace that already
	// has a Tree record.
	AlreadyInitialized Kind = iota
	// NotInitialized: a read against a namespace with no Tree record,
	// distinguished from an existing Tree with an empty root.
	NotInitialized
	// DuplicateKey: Insert of a key already present in the tree.
	DuplicateKey
	// MissingKey: Delete or Replace of a key absent from the tree.
	MissingKey
	// InvalidFanout: maxNodeSize is odd or less than 4.
	InvalidFanout
	// InvalidCursor: a pagination cursor could not be decoded to a key,
	// or a Paginate/PaginateNamespaces limit was not positive.
	InvalidCursor
	// InvariantViolation: surfaced only by Validate.
	InvariantViolation
)

func (k Kind) String() string {
	switch k {
	case AlreadyInitialized:
		return "ALREADY_INITIALIZED"
	case NotInitialized:
		return "NOT_INITIALIZED"
	case DuplicateKey:
		return "DUPLICATE_KEY"
	case MissingKey:
		return "MISSING_KEY"
	case InvalidFanout:
		return "INVALID_FANOUT"
	case InvalidCursor:
		return "INVALID_CURSOR"
	case InvariantViolation:
		return "INVARIANT_VIOLATION"
	default:
		return "UNKNOWN"
	}
}

// Error is the concrete error type returned by the engine. It
// implements Unwrap so errors.Is/errors.As and pkg/errors' stack
// capture both work against it.
type Error struct {
	Kind Kind
	msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.msg + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a stack-annotated Error of the given kind.
func New(kind Kind, msg string) error {
	return errors.WithStack(&Error{Kind: kind, msg: msg})
}

// Wrap builds a stack-annotated Error of the given kind around a
// lower-level store error.
func Wrap(kind Kind, err error, msg string) error {
	return errors.WithStack(&Error{Kind: kind, msg: msg, Err: err})
}

// Is reports whether err is an *Error of the given kind, unwrapping
// pkg/errors' stack-tracing wrapper if present.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
