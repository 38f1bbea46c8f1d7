// Package errors defines the error classes raised by the harness, its record
// store client and the simulator.  Classes survive wrapping with %w so callers
// can decide how to react without matching on message text.
package errors

import (
	"errors"
	"fmt"
)

// Kind is the class of an error.
type Kind int

const (
	// KindUnknown is any error not raised by this package.
	KindUnknown Kind = iota

	// KindConfiguration is raised when the configuration is incorrect e.g.
	// a constraints pointer that addresses a nested field.
	KindConfiguration

	// KindQuery is raised when a record filter cannot be compiled.
	KindQuery

	// KindParameter is raised when request parameters are incorrect e.g. an
	// update is requested without a record identifier.
	KindParameter

	// KindValidation is raised when schema validation fails.
	KindValidation

	// KindResourceConflict is raised when a resource already exists.
	KindResourceConflict

	// KindResourceNotFound is raised when a resource does not exist.
	KindResourceNotFound

	// KindInternal is raised when a downstream system fails in a way the
	// caller cannot correct, for example no compute node can satisfy a
	// provision.
	KindInternal
)

var kindNames = map[Kind]string{
	KindUnknown:          "Unknown",
	KindConfiguration:    "Configuration",
	KindQuery:            "Query",
	KindParameter:        "Parameter",
	KindValidation:       "Validation",
	KindResourceConflict: "ResourceConflict",
	KindResourceNotFound: "ResourceNotFound",
	KindInternal:         "Internal",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// classifiedError is an error with a class.
type classifiedError struct {
	kind    Kind
	message string
}

func (e *classifiedError) Error() string {
	return e.message
}

func newError(kind Kind, message string, arguments ...interface{}) error {
	return &classifiedError{
		kind:    kind,
		message: fmt.Sprintf(message, arguments...),
	}
}

// KindOf returns the class of the first classified error in the chain.
func KindOf(err error) Kind {
	var e *classifiedError
	if errors.As(err, &e) {
		return e.kind
	}

	return KindUnknown
}

// NewConfigurationError returns a new configuration error formatted like fmt.Errorf.
func NewConfigurationError(message string, arguments ...interface{}) error {
	return newError(KindConfiguration, message, arguments...)
}

// IsConfigurationError returns whether an error is a configuration error.
func IsConfigurationError(err error) bool {
	return KindOf(err) == KindConfiguration
}

// NewQueryError returns a new query error.
func NewQueryError(message string, arguments ...interface{}) error {
	return newError(KindQuery, message, arguments...)
}

// IsQueryError returns whether an error is a query error.
func IsQueryError(err error) bool {
	return KindOf(err) == KindQuery
}

// NewParameterError returns a new parameter error.
func NewParameterError(message string, arguments ...interface{}) error {
	return newError(KindParameter, message, arguments...)
}

// IsParameterError returns whether an error is a parameter error.
func IsParameterError(err error) bool {
	return KindOf(err) == KindParameter
}

// NewValidationError returns a new validation error.
func NewValidationError(message string, arguments ...interface{}) error {
	return newError(KindValidation, message, arguments...)
}

// IsValidationError returns whether an error is a validation error.
func IsValidationError(err error) bool {
	return KindOf(err) == KindValidation
}

// NewResourceConflictError returns a new resource conflict error.
func NewResourceConflictError(message string, arguments ...interface{}) error {
	return newError(KindResourceConflict, message, arguments...)
}

// IsResourceConflictError returns whether an error is a resource conflict error.
func IsResourceConflictError(err error) bool {
	return KindOf(err) == KindResourceConflict
}

// NewResourceNotFoundError returns a new resource not found error.
func NewResourceNotFoundError(message string, arguments ...interface{}) error {
	return newError(KindResourceNotFound, message, arguments...)
}

// IsResourceNotFoundError returns whether an error is a resource not found error.
func IsResourceNotFoundError(err error) bool {
	return KindOf(err) == KindResourceNotFound
}

// NewInternalError returns a new internal error.
func NewInternalError(message string, arguments ...interface{}) error {
	return newError(KindInternal, message, arguments...)
}

// IsInternalError returns whether an error is an internal error.
func IsInternalError(err error) bool {
	return KindOf(err) == KindInternal
}
