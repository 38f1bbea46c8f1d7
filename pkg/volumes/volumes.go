// Package volumes creates Docker volumes as a user would.
package volumes

import (
	"context"

	"github.com/couchbase/faultcheck/pkg/identity"
)

// Attributes describe a volume to create.
type Attributes struct {
	// Name is the volume name, unique to the run.
	Name string

	// Size is the requested size e.g. 10g.
	Size string

	// Driver is the volume driver, the daemon default if empty.
	Driver string

	// Options are additional driver options.
	Options map[string]string
}

// Result is the outcome of a volume creation as the user would see it.
type Result struct {
	// Err is nil if the volume was created.
	Err error

	// Stdout is what the client printed on standard output.
	Stdout string

	// Stderr is what the client printed on standard error.
	Stderr string
}

// Creator creates a volume, it makes a single attempt.
type Creator interface {
	CreateVolume(ctx context.Context, user *identity.User, attributes *Attributes) *Result
}

// driverOptions returns the options passed to the volume driver.
func (a *Attributes) driverOptions() map[string]string {
	options := map[string]string{}

	for key, value := range a.Options {
		options[key] = value
	}

	if a.Size != "" {
		options["size"] = a.Size
	}

	return options
}
