package vectordb

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/lib/pq"
	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorClass is the backend-independent category of a store error.
type ErrorClass int

const (
	ErrorOther ErrorClass = iota
	ErrorNotFound
	ErrorConflict
)

func (c ErrorClass) String() string {
	switch c {
	case ErrorNotFound:
		return "not_found"
	case ErrorConflict:
		return "conflict"
	default:
		return "other"
	}
}

// ClassifyStoreError dispatches to the classifier matching the error's
// origin.
func ClassifyStoreError(err error) ErrorClass {
	if err == nil {
		return ErrorOther
	}
	var pcErr *pinecone.PineconeError
	if errors.As(err, &pcErr) {
		return ClassifyPineconeError(err)
	}
	if _, ok := status.FromError(err); ok {
		return ClassifyPineconeError(err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) || errors.Is(err, sql.ErrNoRows) {
		return ClassifyPostgresError(err)
	}
	return ClassifyChromemError(err)
}

// ClassifyPineconeError inspects the HTTP status of control-plane errors
// first, then the error code name (gRPC status of data-plane errors or the
// code in a REST error body), then the message text.
func ClassifyPineconeError(err error) ErrorClass {
	if err == nil {
		return ErrorOther
	}
	var pcErr *pinecone.PineconeError
	if errors.As(err, &pcErr) {
		switch pcErr.Code {
		case http.StatusNotFound:
			return ErrorNotFound
		case http.StatusConflict:
			return ErrorConflict
		}
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.NotFound:
			return ErrorNotFound
		case codes.AlreadyExists:
			return ErrorConflict
		}
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "NOT_FOUND"):
		return ErrorNotFound
	case strings.Contains(msg, "ALREADY_EXISTS"):
		return ErrorConflict
	}
	return classifyMessage(msg)
}

// ClassifyChromemError classifies the plain errors chromem-go returns.
func ClassifyChromemError(err error) ErrorClass {
	if err == nil {
		return ErrorOther
	}
	return classifyMessage(err.Error())
}

// ClassifyPostgresError maps SQLSTATE codes.
func ClassifyPostgresError(err error) ErrorClass {
	if err == nil {
		return ErrorOther
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrorNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "42P01", "42704": // undefined_table, undefined_object
			return ErrorNotFound
		case "42P07", "42710", "23505": // duplicate_table, duplicate_object, unique_violation
			return ErrorConflict
		}
		return ErrorOther
	}
	return classifyMessage(err.Error())
}

func classifyMessage(msg string) ErrorClass {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "not found"), strings.Contains(msg, "not_found"),
		strings.Contains(msg, "does not exist"), strings.Contains(msg, "404"):
		return ErrorNotFound
	case strings.Contains(msg, "already exists"), strings.Contains(msg, "already_exists"),
		strings.Contains(msg, "conflict"), strings.Contains(msg, "409"):
		return ErrorConflict
	}
	return ErrorOther
}
