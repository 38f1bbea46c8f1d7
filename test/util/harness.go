package util

import (
	"bytes"
	"context"
	"testing"

	"github.com/couchbase/faultcheck/pkg/config"
	"github.com/couchbase/faultcheck/pkg/harness"
	"github.com/couchbase/faultcheck/pkg/naming"
	"github.com/couchbase/faultcheck/pkg/report"
)

// Run is a completed harness run.
type Run struct {
	Context *harness.Context
	Outcome harness.Outcome
	TAP     string
}

// MustSetup builds a harness context from configuration.
func MustSetup(t *testing.T, c *config.Config) *harness.Context {
	hc, cleanup, err := harness.Setup(context.Background(), c, naming.RunName())
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(cleanup)

	return hc
}

// MustRun runs the harness with a TAP report.
func MustRun(t *testing.T, hc *harness.Context) *Run {
	buffer := &bytes.Buffer{}

	tap := report.NewTAP(buffer, t.Name())
	outcome := harness.Run(context.Background(), hc, tap)
	tap.Finish()

	t.Log("\n" + buffer.String())

	return &Run{
		Context: hc,
		Outcome: outcome,
		TAP:     buffer.String(),
	}
}

// MustHaveOutcome checks a run ended as expected.
func MustHaveOutcome(t *testing.T, run *Run, outcome harness.Outcome) {
	if run.Outcome != outcome {
		t.Fatalf("run %s, expected %s", run.Outcome, outcome)
	}
}
