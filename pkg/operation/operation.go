// Package operation keeps a ledger of provisioning jobs, as the workflow
// service does, so failures can be inspected after the fact.
package operation

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// OperationKind is the type of operation being performed.
type OperationKind string

const (
	// OperationKindVolumeCreate is used when a volume is being provisioned.
	OperationKindVolumeCreate OperationKind = "volumeCreate"

	// OperationKindVolumeDelete is used when a volume is being deleted.
	OperationKindVolumeDelete OperationKind = "volumeDelete"
)

// OperationStatus is the state of an operation.
type OperationStatus string

const (
	// OperationStatusRunning means the operation has not completed.
	OperationStatusRunning OperationStatus = "running"

	// OperationStatusSucceeded means the operation completed without error.
	OperationStatusSucceeded OperationStatus = "succeeded"

	// OperationStatusFailed means the operation completed with an error.
	OperationStatusFailed OperationStatus = "failed"
)

// Operation represents a provisioning job.
type Operation struct {
	// Kind is the type of operation being performed.
	Kind OperationKind `json:"kind"`

	// ID is a unique identifier for the operation.
	ID string `json:"id"`

	// Resource is the name of the resource being operated on.
	Resource string `json:"resource"`

	// Owner is the login of the account that requested the operation.
	Owner string `json:"owner"`

	// Status is the state of the operation.
	Status OperationStatus `json:"status"`

	// Error is the failure reason if the operation failed.
	Error string `json:"error,omitempty"`

	// Started is when the operation was created.
	Started time.Time `json:"started"`

	// Finished is when the operation completed.
	Finished *time.Time `json:"finished,omitempty"`
}

// Runnable defines an operation body that is compatable with this package.
type Runnable interface {
	Run() error
}

// Ledger records operations.
type Ledger struct {
	operations map[string]*Operation
	lock       sync.Mutex
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		operations: map[string]*Operation{},
	}
}

// Run records an operation, runs it to completion and returns the record.
func (l *Ledger) Run(kind OperationKind, owner, resource string, r Runnable) *Operation {
	op := &Operation{
		Kind:     kind,
		ID:       uuid.New().String(),
		Resource: resource,
		Owner:    owner,
		Status:   OperationStatusRunning,
		Started:  time.Now(),
	}

	l.lock.Lock()
	l.operations[op.ID] = op
	l.lock.Unlock()

	err := r.Run()

	l.lock.Lock()
	defer l.lock.Unlock()

	finished := time.Now()
	op.Finished = &finished
	op.Status = OperationStatusSucceeded

	if err != nil {
		op.Status = OperationStatusFailed
		op.Error = err.Error()
	}

	copied := *op

	return &copied
}

// Get returns an operation by ID.
func (l *Ledger) Get(id string) (*Operation, bool) {
	l.lock.Lock()
	defer l.lock.Unlock()

	op, ok := l.operations[id]
	if !ok {
		return nil, false
	}

	copied := *op

	return &copied, true
}

// List returns all operations, oldest first.
func (l *Ledger) List() []Operation {
	l.lock.Lock()
	defer l.lock.Unlock()

	operations := make([]Operation, 0, len(l.operations))
	for _, op := range l.operations {
		operations = append(operations, *op)
	}

	sort.SliceStable(operations, func(i, j int) bool {
		if operations[i].Started.Equal(operations[j].Started) {
			return operations[i].ID < operations[j].ID
		}

		return operations[i].Started.Before(operations[j].Started)
	})

	return operations
}

// Reset is only to be used for testing to restore pristine state between test cases.
func (l *Ledger) Reset() {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.operations = map[string]*Operation{}
}

// RunnableFunc adapts a function to a Runnable.
type RunnableFunc func() error

// Run calls the function.
func (f RunnableFunc) Run() error {
	return f()
}
