package api

import (
	"fmt"
	"net/http"
)

// ErrorType is returned when a PAPI or Docker API error is encountered.  These
// are the codes rendered in parentheses by the Docker-compatible daemon e.g.
// "(InternalError) volume creation failed".
type ErrorType string

const (
	// ErrorInternalError means that something downstream has failed and the
	// client cannot correct it.
	ErrorInternalError ErrorType = "InternalError"

	// ErrorInvalidArgument means that the request parameters are malformed.
	ErrorInvalidArgument ErrorType = "InvalidArgument"

	// ErrorInvalidQuery means that a search filter is malformed.
	ErrorInvalidQuery ErrorType = "InvalidQuery"

	// ErrorValidationFailed means that the request failed JSON schema
	// validation.
	ErrorValidationFailed ErrorType = "ValidationFailed"

	// ErrorResourceNotFound means that an attempt has been made to access a resource
	// that does not extst.
	ErrorResourceNotFound ErrorType = "ResourceNotFound"

	// ErrorConflict means that an attempt to create a resource has resulted
	// in a conflict with an existing one.
	ErrorConflict ErrorType = "Conflict"

	// ErrorConfigurationError means that the service has been misconfigured.
	ErrorConfigurationError ErrorType = "ConfigurationError"
)

// Record is a generic directory-style record as returned by PAPI.  The field
// set is owned by the remote service, so the harness only ever addresses the
// fields it is configured to.
type Record map[string]interface{}

// String returns a string field from the record, or the empty string if it is
// not set or is not a string.
func (r Record) String(field string) string {
	value, ok := r[field].(string)
	if !ok {
		return ""
	}

	return value
}

// RequestOptions are passed to every record store request.
type RequestOptions struct {
	// Headers are added to the HTTP request e.g. a request ID for correlation
	// with server logs.
	Headers http.Header
}

// Error is the structured JSON response returned by PAPI on an error condition.
type Error struct {
	// Code is a single word in camel case that uniquely identifies the error condition.
	Code ErrorType `json:"code"`

	// Message is a user-facing error message explaining why the request failed.
	Message string `json:"message"`
}

// DockerError is the structured JSON response returned by the Docker API on an
// error condition.  The Docker client prefixes the message with
// "Error response from daemon: ".
type DockerError struct {
	Message string `json:"message"`
}

// DockerMessage formats a daemon error message in the sdc-docker style.
func DockerMessage(code ErrorType, message string) string {
	return fmt.Sprintf("(%s) %s", code, message)
}
