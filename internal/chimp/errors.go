package chimp

import (
	"errors"
	"fmt"
)

// APIError wraps a campaign-service API failure with the operation that
// triggered it and the HTTP status returned.
type APIError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chimp: %s: status %d: %s", e.Operation, e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the campaign service.
func IsNotFound(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode == 404
	}
	return false
}

func newAPIError(operation string, statusCode int, body []byte) *APIError {
	msg := string(body)
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return &APIError{
		Operation:  operation,
		StatusCode: statusCode,
		Message:    msg,
	}
}
