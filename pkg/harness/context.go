// Package harness breaks a package, checks the user sees volume creation
// fail, then puts the package back the way it was.
package harness

import (
	"context"

	"github.com/couchbase/faultcheck/pkg/api"
	"github.com/couchbase/faultcheck/pkg/capability"
	"github.com/couchbase/faultcheck/pkg/identity"
	"github.com/couchbase/faultcheck/pkg/version"
	"github.com/couchbase/faultcheck/pkg/volumes"
)

// RecordStore is a directory style record store e.g. PAPI.
type RecordStore interface {
	// List returns records matching an LDAP filter and the total count.
	List(ctx context.Context, filter string, opts *api.RequestOptions) ([]api.Record, int, error)

	// Get returns a single record by identifier.
	Get(ctx context.Context, id string, opts *api.RequestOptions) (api.Record, error)

	// Update replaces the top level fields named in the patch.
	Update(ctx context.Context, id string, patch api.Record, opts *api.RequestOptions) error
}

// Pinger is optionally implemented by a record store to check connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Scenario describes the fault and the failure it should cause.
type Scenario struct {
	// RecordFilter selects exactly one record to break.
	RecordFilter string

	// RecordIDField names the record's identifier field.
	RecordIDField string

	// ConstraintsPointer addresses the constraints field e.g. /traits.
	ConstraintsPointer string

	// FaultMarker replaces the constraints.
	FaultMarker map[string]interface{}

	// VolumeNamePrefix namespaces the volume name.
	VolumeNamePrefix string

	// VolumeSize selects the package to provision from.
	VolumeSize string

	// ExpectedError is the literal text expected on stderr.
	ExpectedError string
}

// Context is threaded through each phase of a run.  Collaborators are set by
// the caller, state is filled in as the phases run.
type Context struct {
	Store     RecordStore
	Creator   volumes.Creator
	User      *identity.User
	Version   *version.Docker
	Supported capability.Predicate
	Scenario  *Scenario

	// MakeName generates a unique volume name from a prefix.
	MakeName func(prefix string) string

	// RequestOptions are passed to every record store call.
	RequestOptions *api.RequestOptions

	// RecordID is the identifier of the matched record, empty if the lookup
	// did not find exactly one.
	RecordID string

	// Original is the constraints value before injection, nil if absent.
	Original interface{}

	// Snapshotted is set once Original has been captured.
	Snapshotted bool

	// Restored is the value written back by the restore phase.
	Restored interface{}

	// VolumeName is the name the volume was created with.
	VolumeName string

	// Result is the outcome of the volume creation.
	Result *volumes.Result
}
