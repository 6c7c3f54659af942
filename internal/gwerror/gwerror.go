// Package gwerror defines the gateway error taxonomy. Every collaborator
// failure is mapped to one of these kinds before it reaches a caller, so
// internal diagnostics never leak through the response body.
package gwerror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorSourceHeader marks responses generated by the gateway itself, as
// opposed to error statuses passed through from an upstream.
const ErrorSourceHeader = "X-Gateway-Error-Source"

// Kind classifies a gateway error.
type Kind string

const (
	KindInvalidRequest        Kind = "invalid_request"
	KindNotFound              Kind = "not_found"
	KindForbidden             Kind = "forbidden"
	KindConflict              Kind = "conflict"
	KindInvalidReference      Kind = "invalid_reference"
	KindDependencyUnavailable Kind = "dependency_unavailable"
	KindTimeout               Kind = "timeout"
	KindUpstreamUnreachable   Kind = "upstream_unreachable"
	KindInternal              Kind = "internal"
)

// kindInfo holds the caller-facing mapping for a kind.
type kindInfo struct {
	status int
	title  string
	typeID string
}

var kinds = map[Kind]kindInfo{
	KindInvalidRequest:        {http.StatusBadRequest, "Bad Request", "x.gateway.request.invalid.v1"},
	KindNotFound:              {http.StatusNotFound, "Not Found", "x.gateway.route.not_found.v1"},
	KindForbidden:             {http.StatusForbidden, "Forbidden", "x.gateway.authz.forbidden.v1"},
	KindConflict:              {http.StatusConflict, "Conflict", "x.gateway.config.conflict.v1"},
	KindInvalidReference:      {http.StatusUnprocessableEntity, "Invalid Reference", "x.gateway.config.invalid_reference.v1"},
	KindDependencyUnavailable: {http.StatusServiceUnavailable, "Temporarily Unavailable", "x.gateway.dependency.unavailable.v1"},
	KindTimeout:               {http.StatusGatewayTimeout, "Gateway Timeout", "x.gateway.upstream.timeout.v1"},
	KindUpstreamUnreachable:   {http.StatusBadGateway, "Bad Gateway", "x.gateway.upstream.unreachable.v1"},
	KindInternal:              {http.StatusInternalServerError, "Internal Server Error", "x.gateway.internal.v1"},
}

// safeDetail lists kinds whose Detail text is safe to return to callers.
// Everything else gets the generic title only.
var safeDetail = map[Kind]bool{
	KindInvalidRequest:   true,
	KindConflict:         true,
	KindInvalidReference: true,
	KindForbidden:        true,
}

// Error is a classified gateway error. Detail is caller-facing only for
// kinds in safeDetail; the wrapped cause is for server-side logs.
type Error struct {
	Kind      Kind
	Detail    string
	RequestID string
	cause     error
}

// New creates an Error of the given kind.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Newf creates an Error with a formatted detail message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error. The cause is preserved for logging
// and errors.Is/As but never written to the response.
func Wrap(err error, kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail, cause: err}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status code for the error kind.
func (e *Error) Status() int {
	if info, ok := kinds[e.Kind]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// WithRequestID returns a copy carrying the request ID.
func (e *Error) WithRequestID(id string) *Error {
	c := *e
	c.RequestID = id
	return &c
}

// Problem is an RFC 7807 problem-details response body.
type Problem struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Problem builds the caller-facing body for the error. Detail is included
// only for kinds whose message is safe to expose.
func (e *Error) Problem() Problem {
	info, ok := kinds[e.Kind]
	if !ok {
		info = kinds[KindInternal]
	}
	p := Problem{
		Type:      info.typeID,
		Title:     info.title,
		Status:    info.status,
		RequestID: e.RequestID,
	}
	if safeDetail[e.Kind] {
		p.Detail = e.Detail
	}
	return p
}

// WriteJSON writes the error as a problem-details response and marks it as
// gateway-generated.
func (e *Error) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set(ErrorSourceHeader, "gateway")
	w.WriteHeader(e.Status())
	json.NewEncoder(w).Encode(e.Problem())
}

// KindOf extracts the Kind from an error chain, defaulting to Internal.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindInternal
}

// AsError converts any error to an *Error, classifying unknown errors as
// Internal so invariant violations never expose their text.
func AsError(err error) *Error {
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	return Wrap(err, KindInternal, "unexpected error")
}
