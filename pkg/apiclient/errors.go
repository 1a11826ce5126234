package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is the normalised failure shape: an HTTP status and a human readable
// payload. Status is 0 when no response was received.
type Error struct {
	Status int
	Data   string
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Status == 0 {
		return fmt.Sprintf("api: %s: %v", e.Data, e.Err)
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Data)
}

// Unwrap returns the transport error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ErrMissingTeacher is returned before any request when an operation cannot
// be attributed to a teacher.
var ErrMissingTeacher = errors.New("no teacher to attribute the request to")

// StatusOf extracts the HTTP status of an API error, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

func shapeError(status int, raw []byte) *Error {
	apiErr := &Error{Status: status}
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil {
		switch {
		case env.Error != nil && env.Error.Message != "":
			apiErr.Data = env.Error.Message
			apiErr.Code = env.Error.Code
		case env.Message != "":
			apiErr.Data = env.Message
		case env.Detail != "":
			apiErr.Data = env.Detail
		}
	}
	if apiErr.Data == "" {
		text := strings.TrimSpace(string(raw))
		if text == "" || len(text) > 200 {
			text = http.StatusText(status)
		}
		apiErr.Data = text
	}
	return apiErr
}
