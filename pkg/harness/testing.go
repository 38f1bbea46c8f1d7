package harness

import (
	"context"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

// testingRunner reports steps as subtests.
type testingRunner struct {
	t *testing.T
}

// Skip skips the test.
func (r *testingRunner) Skip(reason string) {
	r.t.Skip(reason)
}

// Run runs the step as a subtest.  Subtests run on their own goroutine, a
// panic is reported as a failure there so the caller can still restore.
func (r *testingRunner) Run(name string, step func(t assert.TestingT)) bool {
	return r.t.Run(name, func(t *testing.T) {
		defer func() {
			if p := recover(); p != nil {
				t.Errorf("panic: %v\n%s", p, debug.Stack())
			}
		}()

		step(t)
	})
}

// RunTest runs the scenario as a go test, skipping it if unsupported.
func RunTest(ctx context.Context, t *testing.T, c *Context) Outcome {
	return Run(ctx, c, &testingRunner{t: t})
}
