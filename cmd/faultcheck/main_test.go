package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/couchbase/faultcheck/pkg/gate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the command line and returns standard output.
func execute(t *testing.T, args ...string) (string, error) {
	out := &bytes.Buffer{}

	cmd := newRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

// TestVersion tests the version command.
func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "faultcheck "))
}

// TestRunSkipsOldDocker tests a skipped run succeeds with a TAP skip.
func TestRunSkipsOldDocker(t *testing.T) {
	t.Setenv("DOCKER_CLI_VERSION", "1.8.3")
	t.Setenv("DOCKER_HOST", "tcp://127.0.0.1:2376")
	t.Setenv("PAPI_URL", "http://127.0.0.1:8080")

	out, err := execute(t, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "1..0 # SKIP "+gate.ReasonDockerVersion)
}

// TestRunSkipsUnsupported tests the feature flag gates the run.
func TestRunSkipsUnsupported(t *testing.T) {
	t.Setenv("DOCKER_CLI_VERSION", "1.12.6")
	t.Setenv("DOCKER_HOST", "tcp://127.0.0.1:2376")
	t.Setenv("PAPI_URL", "http://127.0.0.1:8080")
	t.Setenv("EXPERIMENTAL_DOCKER_NFS_SHARED_VOLUMES", "false")

	out, err := execute(t, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "1..0 # SKIP "+gate.ReasonUnsupported)
}

// TestRunBadVersion tests an unparsable client version is an error.
func TestRunBadVersion(t *testing.T) {
	t.Setenv("DOCKER_CLI_VERSION", "latest")
	t.Setenv("DOCKER_HOST", "tcp://127.0.0.1:2376")
	t.Setenv("PAPI_URL", "http://127.0.0.1:8080")

	_, err := execute(t, "run")
	assert.Error(t, err)
}
