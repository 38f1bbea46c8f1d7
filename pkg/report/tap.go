// Package report renders runs in the Test Anything Protocol.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/golang/glog"
	"github.com/stretchr/testify/assert"
)

// failures collects assertion failures for a single step.
type failures struct {
	messages []string
}

// Errorf records a failure.
func (f *failures) Errorf(format string, args ...interface{}) {
	f.messages = append(f.messages, strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// TAP writes a TAP version 13 stream.
type TAP struct {
	w io.Writer

	tests   int
	failed  int
	skipped bool
}

// NewTAP starts a stream with a comment naming the run.
func NewTAP(w io.Writer, title string) *TAP {
	t := &TAP{
		w: w,
	}

	t.printf("TAP version 13\n")
	t.printf("# %s\n", title)

	return t
}

func (t *TAP) printf(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(t.w, format, args...); err != nil {
		glog.Errorf("failed to write report: %v", err)
	}
}

// Skip reports the whole run as skipped.
func (t *TAP) Skip(reason string) {
	t.skipped = true

	t.printf("1..0 # SKIP %s\n", reason)
}

// Run runs a step and reports it.  A panic is reported as a failure.
func (t *TAP) Run(name string, step func(assert.TestingT)) bool {
	f := &failures{}

	func() {
		defer func() {
			if r := recover(); r != nil {
				f.messages = append(f.messages, fmt.Sprintf("panic: %v", r))
			}
		}()

		step(f)
	}()

	t.tests++

	if len(f.messages) == 0 {
		t.printf("ok %d %s\n", t.tests, name)
		return true
	}

	t.failed++

	t.printf("not ok %d %s\n", t.tests, name)
	t.printf("  ---\n")
	t.printf("  messages:\n")

	for _, message := range f.messages {
		t.printf("    - |\n")

		for _, line := range strings.Split(message, "\n") {
			t.printf("      %s\n", strings.TrimRight(line, " \t"))
		}
	}

	t.printf("  ...\n")

	return false
}

// Finish writes the plan and summary.
func (t *TAP) Finish() {
	if t.skipped {
		return
	}

	t.printf("\n1..%d\n", t.tests)
	t.printf("# tests %d\n", t.tests)
	t.printf("# pass  %d\n", t.tests-t.failed)

	if t.failed != 0 {
		t.printf("# fail  %d\n", t.failed)
		return
	}

	t.printf("\n# ok\n")
}

// Failed returns whether any step failed.
func (t *TAP) Failed() bool {
	return t.failed != 0
}
