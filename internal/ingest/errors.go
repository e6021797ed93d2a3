package ingest

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError is a client-side problem with an upload. Status is the
// HTTP status the surface should answer with.
type ValidationError struct {
	Status  int
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func badRequest(format string, args ...any) *ValidationError {
	return &ValidationError{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func unsupported(format string, args ...any) *ValidationError {
	return &ValidationError{Status: http.StatusUnsupportedMediaType, Message: fmt.Sprintf(format, args...)}
}

// ServiceError wraps a failure of an external dependency (parser,
// embedding provider, vector store) during the named step.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *ServiceError) Unwrap() error { return e.Err }

// StatusCode maps an error returned by Service to an HTTP status.
func StatusCode(err error) int {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Status
	}
	return http.StatusInternalServerError
}
