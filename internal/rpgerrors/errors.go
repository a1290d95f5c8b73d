// Package rpgerrors defines the typed error taxonomy used across the
// encoder, router, and evolution packages so callers can branch on
// recovery policy instead of parsing messages.
package rpgerrors

import (
	"fmt"
	"runtime"
	"strings"
)

// Kind categorizes an error by its recovery policy.
type Kind int

const (
	// InvalidInput means the caller passed something the operation can
	// never succeed on (bad path, malformed node id, empty diff range).
	// Not retryable; fix the input.
	InvalidInput Kind = iota
	// NotFound means a referenced node, edge, or file does not exist in
	// the current graph or revision.
	NotFound
	// ParseFailure means an AST provider or diff parser could not make
	// sense of file content. Recoverable by skipping the file.
	ParseFailure
	// ExternalFailure means a collaborator (LLM service, embedding
	// service, git subprocess) returned an error. Retryable with backoff;
	// callers may fall back to a heuristic path.
	ExternalFailure
	// StoreFailure means the graph store itself failed to commit a
	// mutation. Not safely retryable without re-checking store state.
	StoreFailure
	// SchemaMismatch means persisted data (embeddings file, bolt bucket)
	// was written by an incompatible version.
	SchemaMismatch
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "InvalidInput"
	case NotFound:
		return "NotFound"
	case ParseFailure:
		return "ParseFailure"
	case ExternalFailure:
		return "ExternalFailure"
	case StoreFailure:
		return "StoreFailure"
	case SchemaMismatch:
		return "SchemaMismatch"
	default:
		return "Unknown"
	}
}

// Error is a structured error carrying a Kind, an optional cause, and
// free-form context for logging.
type Error struct {
	Kind      Kind
	Message   string
	Cause     error
	Context   map[string]any
	Stack     string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the cause to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match on Kind alone, e.g. errors.Is(err, rpgerrors.New(NotFound, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithContext attaches a key/value pair for structured logging and
// returns the same error for chaining.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Retryable reports whether the recovery policy for this kind allows an
// automatic retry (possibly with backoff).
func (e *Error) Retryable() bool {
	return e.Kind == ExternalFailure
}

// Detail renders the error with context and a captured stack, for debug
// logging paths.
func (e *Error) Detail() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s\n", e.Kind, e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&sb, "caused by: %v\n", e.Cause)
	}
	for k, v := range e.Context {
		fmt.Fprintf(&sb, "  %s: %v\n", k, v)
	}
	if e.Stack != "" {
		fmt.Fprintf(&sb, "%s", e.Stack)
	}
	return sb.String()
}

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Stack: captureStack(2)}
}

// Newf creates an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap attaches a kind and message to an existing error. Returns a nil
// *Error if err is nil; that typed nil, stored in an error interface,
// compares non-nil.
func Wrap(err error, kind Kind, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: err, Stack: captureStack(2)}
}

// Wrapf wraps err with a formatted message.
func Wrapf(err error, kind Kind, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err, kind, fmt.Sprintf(format, args...))
}

// KindOf returns the Kind of err and true if err is an *Error, or
// InvalidInput and false otherwise. It does not unwrap err.
func KindOf(err error) (Kind, bool) {
	if e, ok := err.(*Error); ok {
		return e.Kind, true
	}
	return InvalidInput, false
}

func captureStack(skip int) string {
	var sb strings.Builder
	for i := skip; i < skip+8; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			break
		}
		fmt.Fprintf(&sb, "  %s:%d %s\n", file, line, fn.Name())
	}
	return sb.String()
}
