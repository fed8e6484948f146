package translate

import (
	"context"
	"errors"
	"fmt"
)

// ErrMarkerNotFound is returned by the wire parsers when no line of the
// input carries the requested marker. It is an expected outcome for most
// intercepted responses.
var ErrMarkerNotFound = errors.New("marker not found")

// ParseError means a marker-bearing payload could not be decoded. It signals
// that the upstream wire format changed and is never worth retrying.
type ParseError struct {
	Marker string
	Step   string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s payload (%s): %v", e.Marker, e.Step, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UpstreamErrorKind classifies an UpstreamError.
type UpstreamErrorKind string

const (
	KindNavigation  UpstreamErrorKind = "navigation"
	KindStatus      UpstreamErrorKind = "status"
	KindPage        UpstreamErrorKind = "page"
	KindBrowser     UpstreamErrorKind = "browser"
	KindTimeout     UpstreamErrorKind = "timeout"
	KindCanceled    UpstreamErrorKind = "canceled"
	KindUnavailable UpstreamErrorKind = "unavailable"
	KindNoResponse  UpstreamErrorKind = "no_response"
)

// UpstreamError covers every failure to obtain a response from the
// translation site: navigation errors, non-200 statuses, page crashes,
// timeouts and an open circuit breaker.
type UpstreamError struct {
	Kind   UpstreamErrorKind
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Kind == KindStatus:
		return fmt.Sprintf("upstream %s: unexpected status %d", e.Kind, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("upstream %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("upstream %s", e.Kind)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an UpstreamError of the given kind.
func IsKind(err error, kind UpstreamErrorKind) bool {
	var upstreamErr *UpstreamError
	return errors.As(err, &upstreamErr) && upstreamErr.Kind == kind
}

func contextError(err error) *UpstreamError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &UpstreamError{Kind: KindTimeout, Err: err}
	}
	return &UpstreamError{Kind: KindCanceled, Err: err}
}
