package config

import (
	"encoding/json"

	"github.com/couchbase/faultcheck/pkg/errors"
	"github.com/couchbase/faultcheck/pkg/util"

	"github.com/go-ldap/ldap/v3"
	"github.com/go-openapi/jsonpointer"
)

// schema is the JSON schema a configuration must conform to.
const schema = `{
  "type": "object",
  "required": ["docker", "user", "papi", "scenario"],
  "properties": {
    "docker": {
      "type": "object",
      "required": ["cliVersion", "mode", "binary"],
      "properties": {
        "cliVersion": {"type": "string", "minLength": 1},
        "mode": {"type": "string", "enum": ["cli", "api"]},
        "binary": {"type": "string", "minLength": 1},
        "apiVersion": {"type": "string", "pattern": "^[0-9]+\\.[0-9]+$"}
      }
    },
    "user": {
      "type": "object",
      "required": ["login", "host"],
      "properties": {
        "login": {"type": "string", "minLength": 1},
        "host": {"type": "string", "minLength": 1}
      }
    },
    "papi": {
      "type": "object",
      "required": ["url"],
      "properties": {
        "url": {"type": "string", "format": "uri", "minLength": 1}
      }
    },
    "features": {
      "type": "object",
      "properties": {
        "volumeDriver": {"type": "string", "minLength": 1}
      }
    },
    "scenario": {
      "type": "object",
      "required": ["recordFilter", "recordIDField", "constraintsPointer", "faultMarker", "volumeSize", "volumeNamePrefix", "expectedError"],
      "properties": {
        "recordFilter": {"type": "string", "minLength": 1},
        "recordIDField": {"type": "string", "minLength": 1},
        "constraintsPointer": {"type": "string", "pattern": "^/"},
        "faultMarker": {"type": "object", "minProperties": 1},
        "volumeSize": {"type": "string", "pattern": "^[0-9]+([kKmMgGtT]([iI]?[bB])?)?$"},
        "volumeNamePrefix": {"type": "string", "pattern": "^[a-zA-Z0-9][a-zA-Z0-9_.-]*$"},
        "expectedError": {"type": "string", "minLength": 1}
      }
    }
  }
}`

// ConstraintsField returns the record field addressed by the constraints
// pointer.  The configuration must have been validated.
func (c *Config) ConstraintsField() string {
	pointer, err := jsonpointer.New(c.Scenario.ConstraintsPointer)
	if err != nil {
		return ""
	}

	tokens := pointer.DecodedTokens()
	if len(tokens) != 1 {
		return ""
	}

	return tokens[0]
}

// Validate checks the configuration against the schema then does any
// validation that cannot be expressed by it.
func (c *Config) Validate() error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}

	if err := util.ValidateAgainstSchema([]byte(schema), data); err != nil {
		return errors.NewConfigurationError("configuration invalid: %v", err)
	}

	// Record updates replace whole top level fields, so the constraints
	// must live in one.
	pointer, err := jsonpointer.New(c.Scenario.ConstraintsPointer)
	if err != nil {
		return errors.NewConfigurationError("constraints pointer %s malformed: %v", c.Scenario.ConstraintsPointer, err)
	}

	if tokens := pointer.DecodedTokens(); len(tokens) != 1 || tokens[0] == "" {
		return errors.NewConfigurationError("constraints pointer %s must address a single top level field", c.Scenario.ConstraintsPointer)
	}

	if _, err := ldap.CompileFilter(c.Scenario.RecordFilter); err != nil {
		return errors.NewConfigurationError("record filter %s malformed: %v", c.Scenario.RecordFilter, err)
	}

	return nil
}
