package testutil

import (
	"net/http"

	"wmoned/pkg/domain"
	"wmoned/pkg/requestcontext"
)

// WithBSN marks the request as authenticated for bsn, as the assertion
// middleware would. Invalid numbers are not added.
func WithBSN(req *http.Request, bsn string) *http.Request {
	parsed, err := domain.ParseBSN(bsn)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithBSN(req.Context(), parsed))
}

// WithBearer sets an Authorization header carrying token.
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
