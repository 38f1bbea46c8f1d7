package util

import (
	"encoding/json"

	"github.com/couchbase/faultcheck/pkg/errors"

	"github.com/go-openapi/spec"
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/validate"
)

// ValidateAgainstSchema validates a JSON document against a JSON schema.
func ValidateAgainstSchema(schemaRaw, data []byte) error {
	// Default to an empty object, that way we can detect when required
	// fields are missing.
	if len(data) == 0 {
		data = []byte("{}")
	}

	schema := &spec.Schema{}
	if err := json.Unmarshal(schemaRaw, schema); err != nil {
		return errors.NewConfigurationError("schema unmarshal failed: %v", err)
	}

	var document interface{}
	if err := json.Unmarshal(data, &document); err != nil {
		return errors.NewParameterError("document unmarshal failed: %v", err)
	}

	if err := validate.AgainstSchema(schema, document, strfmt.NewFormats()); err != nil {
		return errors.NewValidationError("schema validation failed: %v", err)
	}

	return nil
}
