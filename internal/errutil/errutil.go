// Package errutil defines the typed error kinds used across the core
// (spec.md §7) and wraps them with github.com/pkg/errors so subsystem
// boundaries keep a stack trace without inventing a bespoke error type
// hierarchy.
package errutil

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is a closed enumeration of error categories. It is attached to
// an error via New/Wrap and recovered with KindOf.
type Kind string

const (
	// LLM error kinds.
	KindRateLimit          Kind = "rate_limit"
	KindTimeout            Kind = "timeout"
	KindServiceUnavailable Kind = "service_unavailable"
	KindInvalidRequest     Kind = "invalid_request"
	KindAuthError          Kind = "auth_error"
	KindContextOverflow    Kind = "context_overflow"

	// Tool error kinds.
	KindNotFound         Kind = "not_found"
	KindPermissionDenied Kind = "permission_denied"
	KindInvalidParams    Kind = "invalid_params"
	KindExecutionFailed  Kind = "execution_failed"

	// Agent error kinds.
	KindToolError Kind = "tool_error"
	KindLLMError  Kind = "llm_error"

	// Context error kinds.
	KindStorage     Kind = "storage"
	KindCompression Kind = "compression"
	KindRecall      Kind = "recall"
	KindNoSession   Kind = "no_active_session"

	KindUnknown Kind = "unknown"
)

// recoverableKinds lists the kinds for which a retry may succeed,
// per spec.md §7.
var recoverableKinds = map[Kind]bool{
	KindRateLimit:          true,
	KindTimeout:            true,
	KindServiceUnavailable: true,
}

type kindedError struct {
	kind    Kind
	err     error
	retryAfterSeconds int
}

func (e *kindedError) Error() string { return e.err.Error() }
func (e *kindedError) Unwrap() error { return e.err }
func (e *kindedError) ErrorKind() Kind { return e.kind }

// New creates a new error of the given kind with a stack trace attached.
func New(kind Kind, msg string) error {
	return &kindedError{kind: kind, err: errors.New(msg)}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...interface{}) error {
	return &kindedError{kind: kind, err: errors.New(fmt.Sprintf(format, args...))}
}

// Wrap attaches a kind, msg, and a new stack trace to an existing error.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &kindedError{kind: kind, err: errors.Wrap(err, msg)}
}

// WithRetryAfter attaches a retry-after hint in seconds, as LLM rate
// limit/timeout errors may carry per spec.md §7.
func WithRetryAfter(err error, seconds int) error {
	if ke, ok := err.(*kindedError); ok {
		ke.retryAfterSeconds = seconds
		return ke
	}
	return &kindedError{kind: KindUnknown, err: err, retryAfterSeconds: seconds}
}

// RetryAfter returns the retry-after hint, if any was attached.
func RetryAfter(err error) (int, bool) {
	if ke, ok := err.(*kindedError); ok && ke.retryAfterSeconds > 0 {
		return ke.retryAfterSeconds, true
	}
	return 0, false
}

// KindOf recovers the Kind attached to err, or KindUnknown if none was.
func KindOf(err error) Kind {
	if ke, ok := err.(*kindedError); ok {
		return ke.kind
	}
	return KindUnknown
}

// Recoverable reports whether an error of this kind may succeed on retry.
func Recoverable(kind Kind) bool {
	return recoverableKinds[kind]
}
