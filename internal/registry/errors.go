package registry

import (
	"errors"
	"fmt"
)

// UpstreamError reports a failed registry call: a non-2xx status, a timeout or
// a transport failure. StatusCode holds the upstream status, or 504/502 when
// no response was received.
type UpstreamError struct {
	Op         string
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("registry %s: upstream status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("registry %s: upstream status %d", e.Op, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// HTTPStatus is the status surfaced to the caller of the adapter.
func (e *UpstreamError) HTTPStatus() int { return e.StatusCode }

// MalformedResponseError reports a 2xx registry response that lacks the
// structure the adapter depends on.
type MalformedResponseError struct {
	Op     string
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("registry %s: malformed response: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("registry %s: malformed response: %s", e.Op, e.Reason)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// IsUpstream reports whether err is an *UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

// IsMalformed reports whether err is a *MalformedResponseError.
func IsMalformed(err error) bool {
	var me *MalformedResponseError
	return errors.As(err, &me)
}
