package proxy

import (
	"fmt"
	"net/http"
)

type Kind int

const (
	KindValidation Kind = iota
	KindUpstream
	KindUnavailable
	KindTimeout
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUpstream:
		return "upstream"
	case KindUnavailable:
		return "unavailable"
	case KindTimeout:
		return "timeout"
	case KindInternal:
		return "internal"
	}
	return "unknown"
}

// Error is the normalized failure of one forwarded request. Status is the
// code the gateway reports to its own caller, which for upstream failures is
// the backend's status passed through unchanged.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(msg string) *Error {
	return &Error{
		Kind:    KindValidation,
		Status:  http.StatusUnprocessableEntity,
		Message: msg,
	}
}

func Upstream(status int, body string) *Error {
	return &Error{
		Kind:    KindUpstream,
		Status:  status,
		Message: fmt.Sprintf("backend returned status %d", status),
		Details: body,
	}
}

func Unavailable(err error) *Error {
	return &Error{
		Kind:    KindUnavailable,
		Status:  http.StatusServiceUnavailable,
		Message: "backend service is not available",
		Err:     err,
	}
}

// Timeout means the in-flight call was cancelled client-side. The message
// must make clear the outcome is unknown: the backend operation may still
// complete server-side.
func Timeout(err error) *Error {
	return &Error{
		Kind:    KindTimeout,
		Status:  http.StatusGatewayTimeout,
		Message: "backend did not respond in time; the operation may still complete server-side",
		Err:     err,
	}
}

func Internal(err error) *Error {
	return &Error{
		Kind:    KindInternal,
		Status:  http.StatusInternalServerError,
		Message: "internal gateway error",
		Err:     err,
	}
}

// Envelope is the uniform error body the gateway returns, whatever the
// failure kind.
type Envelope struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Status  int    `json:"status"`
}

func (e *Error) Envelope() Envelope {
	return Envelope{
		Error:   e.Message,
		Details: e.Details,
		Status:  e.Status,
	}
}

// AsError normalizes any error into a gateway Error, defaulting to
// KindInternal for errors produced outside the proxy.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if ge, ok := err.(*Error); ok {
		return ge
	}
	return Internal(err)
}
