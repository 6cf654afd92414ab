package gemini

import (
	"errors"
	"fmt"
	"strings"
)

// Kind partitions backend failures by how the caller should react.
type Kind int

const (
	// KindAuth covers missing, invalid or revoked credentials.
	KindAuth Kind = iota + 1
	// KindQuota covers rate limits and exhausted quota. Retryable.
	KindQuota
	// KindMalformedResponse covers replies the client could not use.
	KindMalformedResponse
	// KindMalformedInput covers requests rejected before generation.
	KindMalformedInput
	// KindNetwork covers transport failures and upstream outages.
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindQuota:
		return "quota"
	case KindMalformedResponse:
		return "malformed_response"
	case KindMalformedInput:
		return "malformed_input"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned by the client.
type Error struct {
	Kind    Kind
	Message string
	Status  int // HTTP status when the backend answered, 0 otherwise
	err     error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("gemini: %s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// Retryable reports whether retrying the same request may succeed.
// Only quota exhaustion is transient by contract.
func (e *Error) Retryable() bool { return e.Kind == KindQuota }

// IsKind reports whether err carries the given failure kind.
func IsKind(err error, kind Kind) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Kind == kind
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func wrapError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, err: err}
}

// classifyStatus maps an HTTP failure from the backend onto the taxonomy.
func classifyStatus(status int, body string) *Error {
	msg := strings.TrimSpace(body)
	if len(msg) > 512 {
		msg = msg[:512]
	}
	e := &Error{Message: msg, Status: status}
	switch {
	case status == 401 || status == 403:
		e.Kind = KindAuth
	case status == 429:
		e.Kind = KindQuota
	case status == 400:
		// Key problems surface as 400 INVALID_ARGUMENT with an
		// API_KEY_INVALID detail rather than 401.
		if strings.Contains(body, "API_KEY") || strings.Contains(body, "API key") {
			e.Kind = KindAuth
		} else {
			e.Kind = KindMalformedInput
		}
	case status >= 500:
		e.Kind = KindNetwork
	default:
		e.Kind = KindNetwork
	}
	return e
}
