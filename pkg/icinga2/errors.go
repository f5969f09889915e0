package icinga2

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies an APIError into one of the failure families the
// caller can act on.
type ErrorKind int

const (
	// KindTransport covers connection, TLS, and timeout failures. The request
	// may or may not have reached the server.
	KindTransport ErrorKind = iota + 1
	// KindAuthentication means the server rejected the supplied credentials.
	KindAuthentication
	// KindNotFound means the referenced object does not exist on the server.
	KindNotFound
	// KindValidation covers both local input violations (detected before any
	// request is sent) and remote schema violations.
	KindValidation
	// KindMalformedResponse means the server answered with a payload that
	// could not be decoded. Should not occur against a conformant server.
	KindMalformedResponse
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindAuthentication:
		return "authentication"
	case KindNotFound:
		return "not found"
	case KindValidation:
		return "validation"
	case KindMalformedResponse:
		return "malformed response"
	default:
		return "unknown"
	}
}

// APIError is the single error type returned by the client. Remote failures
// carry the HTTP status code and the server-supplied message; local
// validation failures carry the offending field instead.
type APIError struct {
	Kind       ErrorKind
	StatusCode int      // zero when the failure happened locally
	Message    string   // remote status line or local description
	Errors     []string // per-object error strings reported by the server
	Field      string   // offending field for validation failures
	cause      error
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": field %q", e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Errors) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Errors, "; "))
	}
	return b.String()
}

func (e *APIError) Unwrap() error { return e.cause }

func newTransportError(err error) *APIError {
	return &APIError{Kind: KindTransport, Message: err.Error(), cause: err}
}

func newValidationError(field, message string) *APIError {
	return &APIError{Kind: KindValidation, Field: field, Message: message}
}

func newMalformedResponseError(statusCode int, err error) *APIError {
	return &APIError{
		Kind:       KindMalformedResponse,
		StatusCode: statusCode,
		Message:    err.Error(),
		cause:      err,
	}
}

// kindForStatus maps an HTTP status code to the error kind surfaced to the
// caller. Only called for non-2xx responses whose error body decoded; an
// undecodable body is always a malformed response. Icinga reports schema
// violations (empty attributes, unknown attributes) as 500, so everything
// that is neither an auth rejection nor a missing object counts as a remote
// validation failure.
func kindForStatus(statusCode int) ErrorKind {
	switch statusCode {
	case 401, 403:
		return KindAuthentication
	case 404:
		return KindNotFound
	default:
		return KindValidation
	}
}

// IsAuthentication reports whether err is an APIError caused by rejected
// credentials.
func IsAuthentication(err error) bool { return hasKind(err, KindAuthentication) }

// IsNotFound reports whether err is an APIError for an absent object.
func IsNotFound(err error) bool { return hasKind(err, KindNotFound) }

// IsValidation reports whether err is an APIError for a local or remote
// schema violation.
func IsValidation(err error) bool { return hasKind(err, KindValidation) }

// IsTransport reports whether err is an APIError for a network, TLS, or
// timeout failure.
func IsTransport(err error) bool { return hasKind(err, KindTransport) }

// IsMalformedResponse reports whether err is an APIError for an undecodable
// server payload.
func IsMalformedResponse(err error) bool { return hasKind(err, KindMalformedResponse) }

func hasKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}
