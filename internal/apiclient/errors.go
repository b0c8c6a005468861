package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Error taxonomy for backend requests. Callers branch with errors.Is; every
// HTTP and transport failure in this package maps onto exactly one of these
// (or onto *ValidationError for rejected input).
var (
	// ErrConnectivity covers transport failures: DNS, refused connections,
	// timeouts. The request may or may not have reached the backend.
	ErrConnectivity = errors.New("cannot reach backend")

	// ErrSessionExpired is returned when the backend rejects the bearer
	// token. The local session has already been cleared and the sign-in
	// redirect fired by the time a caller sees this error.
	ErrSessionExpired = errors.New("session expired")

	// ErrInvalidCredentials is returned when a sign-in attempt is rejected.
	// Unlike ErrSessionExpired it never touches the stored session.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrPermissionDenied is returned when the backend refuses the action
	// for the current role. The session stays intact.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrServer covers backend-side failures (HTTP 5xx).
	ErrServer = errors.New("server error")
)

// ValidationError reports input the backend rejected (HTTP 422). Message
// holds the first field error when the response body is structured, the
// backend's top-level message otherwise.
type ValidationError struct {
	Message string
	Status  int
	Body    []byte
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// validationBody is the backend's 422 shape: a top-level message plus
// per-field error lists.
type validationBody struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

// newValidationError builds a ValidationError from a 422 response body.
// Field errors win over the top-level message; fields are ordered by name so
// repeated failures surface the same message.
func newValidationError(status int, body []byte) *ValidationError {
	ve := &ValidationError{
		Message: "invalid input",
		Status:  status,
		Body:    body,
	}

	var parsed validationBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ve
	}
	if parsed.Message != "" {
		ve.Message = parsed.Message
	}

	fields := make([]string, 0, len(parsed.Errors))
	for field, msgs := range parsed.Errors {
		if len(msgs) > 0 {
			fields = append(fields, field)
		}
	}
	if len(fields) == 0 {
		return ve
	}
	sort.Strings(fields)
	ve.Message = parsed.Errors[fields[0]][0]
	return ve
}
