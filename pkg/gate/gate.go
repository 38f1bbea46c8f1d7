// Package gate decides whether a test run should proceed in an environment.
package gate

import (
	"github.com/couchbase/faultcheck/pkg/capability"
	"github.com/couchbase/faultcheck/pkg/version"
)

const (
	// RequiredMajor is the minimum Docker client major version for volumes.
	RequiredMajor = 1

	// RequiredMinor is the minimum Docker client minor version for volumes.
	RequiredMinor = 9

	// ReasonDockerVersion is reported when the client predates volume support.
	ReasonDockerVersion = "Skipping volume tests: volumes are not supported in Docker versions < 1.9"

	// ReasonUnsupported is reported when the deployment lacks the feature.
	ReasonUnsupported = "Skipping volume tests: volumes are not supported in this Triton setup"
)

// Decision is the outcome of a gate check.
type Decision struct {
	// Proceed is true if the run should continue.
	Proceed bool

	// Reason explains a skip.
	Reason string
}

// Check decides whether a run should proceed.  The version rule compares the
// major and minor versions independently, so any minor version below
// RequiredMinor is skipped whatever the major version, e.g. 2.5 and 17.03.
// The capability predicate is only consulted if the version is acceptable.
func Check(v *version.Docker, supported capability.Predicate) Decision {
	if v.Major < RequiredMajor || v.Minor < RequiredMinor {
		return Decision{Reason: ReasonDockerVersion}
	}

	if !supported() {
		return Decision{Reason: ReasonUnsupported}
	}

	return Decision{Proceed: true}
}
