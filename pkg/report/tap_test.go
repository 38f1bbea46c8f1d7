package report

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
)

const title = "faultcheck run brave-otter"

func pass(assert.TestingT) {}

// TestTAPPass tests a passing run.
func TestTAPPass(t *testing.T) {
	buffer := &bytes.Buffer{}

	tap := NewTAP(buffer, title)
	assert.True(t, tap.Run("alpha", pass))
	assert.True(t, tap.Run("beta", pass))
	tap.Finish()

	assert.False(t, tap.Failed())

	goldie.New(t).Assert(t, "pass", buffer.Bytes())
}

// TestTAPFail tests failures and panics are reported with diagnostics.
func TestTAPFail(t *testing.T) {
	buffer := &bytes.Buffer{}

	tap := NewTAP(buffer, title)
	assert.True(t, tap.Run("alpha", pass))
	assert.False(t, tap.Run("beta", func(t assert.TestingT) {
		t.Errorf("should be 1 result []")
		t.Errorf("line one\nline two")
	}))
	assert.False(t, tap.Run("gamma", func(assert.TestingT) {
		panic("boom")
	}))
	tap.Finish()

	assert.True(t, tap.Failed())

	goldie.New(t).Assert(t, "fail", buffer.Bytes())
}

// TestTAPSkip tests a skipped run has an empty plan.
func TestTAPSkip(t *testing.T) {
	buffer := &bytes.Buffer{}

	tap := NewTAP(buffer, title)
	tap.Skip("Skipping volume tests: volumes are not supported in Docker versions < 1.9")
	tap.Finish()

	assert.False(t, tap.Failed())

	goldie.New(t).Assert(t, "skip", buffer.Bytes())
}
