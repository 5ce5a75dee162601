// Package httputil writes the JSON envelopes every endpoint responds with:
// {"status":"OK","content":...} on success and {"status":"ERROR","message":...}
// on failure.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "wmoned/pkg/domain-errors"
)

const (
	StatusOK    = "OK"
	StatusError = "ERROR"

	MessageRequestError = "Request error occurred"
	MessageServerError  = "Server error occurred"
	MessageNotFound     = "Not found"
)

// Envelope is the response body of every JSON endpoint.
type Envelope struct {
	Status  string `json:"status"`
	Content any    `json:"content,omitempty"`
	Message string `json:"message,omitempty"`
}

// StatusCoder is implemented by errors that carry the HTTP status to surface,
// such as a failed upstream call.
type StatusCoder interface {
	HTTPStatus() int
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteOK wraps content in the success envelope. A nil content is written as null.
func WriteOK(w http.ResponseWriter, content any) {
	// Content is always present on success, so bypass omitempty.
	WriteJSON(w, http.StatusOK, struct {
		Status  string `json:"status"`
		Content any    `json:"content"`
	}{Status: StatusOK, Content: content})
}

// WriteError maps err to a status and the error envelope. Internal details
// are never exposed.
func WriteError(w http.ResponseWriter, err error) {
	status, message := ErrorResponse(err)
	WriteJSON(w, status, Envelope{Status: StatusError, Message: message})
}

// ErrorResponse returns the status and client-visible message for err.
func ErrorResponse(err error) (int, string) {
	var sc StatusCoder
	if errors.As(err, &sc) {
		status := sc.HTTPStatus()
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		return status, MessageRequestError
	}

	var de *dErrors.Error
	if !errors.As(err, &de) {
		return http.StatusInternalServerError, MessageServerError
	}
	switch de.Code {
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized, de.Message
	case dErrors.CodeForbidden:
		return http.StatusForbidden, de.Message
	case dErrors.CodeNotFound:
		return http.StatusNotFound, MessageNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput:
		return http.StatusBadRequest, de.Message
	case dErrors.CodeBadGateway:
		return http.StatusBadGateway, MessageRequestError
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout, MessageRequestError
	default:
		return http.StatusInternalServerError, MessageServerError
	}
}
