package harness

import (
	"context"

	"github.com/couchbase/faultcheck/pkg/gate"
	"github.com/couchbase/faultcheck/pkg/naming"

	"github.com/golang/glog"
	"github.com/stretchr/testify/assert"
)

// Outcome is the overall result of a run.
type Outcome int

const (
	// Skipped means the environment does not support the feature.
	Skipped Outcome = iota

	// Passed means every step passed.
	Passed

	// Failed means at least one step failed.
	Failed
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	}

	return "unknown"
}

// Step names, as reported.
const (
	StepConnect = "connect to record store"
	StepLookup  = "find record to break"
	StepInject  = "break provisioning"
	StepRestore = "un-break provisioning"
	StepVerify  = "verify record restored"
)

// Runner reports steps.  A failing step does not stop those after it.
type Runner interface {
	// Skip reports the whole run as skipped.
	Skip(reason string)

	// Run runs a named step, returning true if it raised no errors.
	Run(name string, step func(t assert.TestingT)) bool
}

// StepCreate names the volume creation step.
func StepCreate(volumeName string) string {
	return "creating volume " + volumeName + " should fail with appropriate error message"
}

// Run runs the scenario.  Once the gate is passed the constraints are
// restored on every exit path, including a panicking step.
func Run(ctx context.Context, c *Context, runner Runner) (outcome Outcome) {
	decision := gate.Check(c.Version, c.Supported)
	if !decision.Proceed {
		glog.Info(decision.Reason)
		runner.Skip(decision.Reason)

		return Skipped
	}

	if c.MakeName == nil {
		c.MakeName = naming.MakeResourceName
	}

	ok := true

	step := func(ctx context.Context, name string, f func(context.Context, assert.TestingT)) {
		passed := runner.Run(name, func(t assert.TestingT) {
			f(ctx, t)
		})

		ok = passed && ok
	}

	defer func() {
		// An interrupted run must still leave the record unbroken.
		ctx := context.WithoutCancel(ctx)

		step(ctx, StepRestore, c.restore)

		if c.Snapshotted && c.Restored != nil {
			step(ctx, StepVerify, c.verify)
		}

		outcome = Failed
		if ok {
			outcome = Passed
		}

		glog.Infof("run %s", outcome)
	}()

	if _, isPinger := c.Store.(Pinger); isPinger {
		step(ctx, StepConnect, c.ping)
	}

	step(ctx, StepLookup, c.lookup)
	step(ctx, StepInject, c.inject)

	c.VolumeName = c.MakeName(c.Scenario.VolumeNamePrefix)

	step(ctx, StepCreate(c.VolumeName), c.exercise)

	return Passed
}
