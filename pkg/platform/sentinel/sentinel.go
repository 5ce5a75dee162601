// Package sentinel holds infrastructure error facts. Stores return them
// (optionally wrapped) so callers can tell a bad request from a broken backend.
package sentinel

import "errors"

var (
	// ErrInvalidState: the operation does not apply to the given input or state.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnavailable: a backing service did not answer.
	ErrUnavailable = errors.New("unavailable")
)
