package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrPermissionDenied is returned, without a network call, when the caller's
// campaign role does not allow the operation.
var ErrPermissionDenied = errors.New("permission denied")

// ErrNotAuthenticated is returned when an operation needs a signed in user.
var ErrNotAuthenticated = errors.New("not authenticated")

// APIError describes a non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
	Body    []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d", e.Status)
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Body: body}
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
