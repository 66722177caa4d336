package gateway

import "errors"

// ErrorKind classifies gateway failures so callers can map them to HTTP
// statuses structurally instead of matching on message text.
type ErrorKind int

const (
	// KindUpstream covers endpoint failures: network errors, non-2xx
	// responses, unparseable bodies, missing choices.
	KindUpstream ErrorKind = iota
	// KindNotConfigured means no gateway configuration exists for the
	// organization. Terminal, not retryable.
	KindNotConfigured
	// KindDisabled means the configuration exists but is switched off.
	// Terminal, not retryable.
	KindDisabled
	// KindRateLimited means a per-minute or per-day budget is exhausted.
	// Terminal for this call; the caller may retry later.
	KindRateLimited
)

// Error is a classified gateway failure.
type Error struct {
	Kind    ErrorKind
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// NewError creates a classified gateway error.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf extracts the classification of err, defaulting to KindUpstream
// for untagged errors.
func KindOf(err error) ErrorKind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return KindUpstream
}
