package volumes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/couchbase/faultcheck/pkg/api"
	"github.com/couchbase/faultcheck/pkg/identity"

	"github.com/docker/docker/api/types/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	expectedError = "Error response from daemon: (InternalError) volume creation failed"

	// fakeDocker echoes its arguments and environment, and fails when asked
	// to create a volume whose name starts with "broken".
	fakeDocker = `#!/bin/sh
echo "$@"
echo "host=$DOCKER_HOST"
case "$4" in
broken*)
	echo "` + expectedError + `" >&2
	exit 1
	;;
esac
`
)

// mustFakeDocker writes a fake docker client and returns its path.
func mustFakeDocker(t *testing.T) string {
	if runtime.GOOS == "windows" {
		t.Skip("fake docker client requires a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "docker")
	require.NoError(t, os.WriteFile(path, []byte(fakeDocker), 0o700))

	return path
}

// mustUser returns a user for a daemon.
func mustUser(t *testing.T, host string) *identity.User {
	user, err := identity.New("alice", host, t.TempDir(), false, api.DockerAPIVersion)
	require.NoError(t, err)

	return user
}

// TestCLIArgs tests the command line is stable.
func TestCLIArgs(t *testing.T) {
	creator := NewCLICreator("docker")

	attributes := &Attributes{
		Name:    "test-nfs-shared-volume-a1b2c3d4",
		Size:    "10g",
		Driver:  "tritonnfs",
		Options: map[string]string{"network": "default"},
	}

	expected := []string{
		"volume", "create", "--name", "test-nfs-shared-volume-a1b2c3d4",
		"--driver", "tritonnfs",
		"--opt", "network=default",
		"--opt", "size=10g",
	}

	assert.Equal(t, expected, creator.args(attributes))
}

// TestCLICreate tests a successful creation captures stdout.
func TestCLICreate(t *testing.T) {
	creator := NewCLICreator(mustFakeDocker(t))
	user := mustUser(t, "tcp://127.0.0.1:2376")

	result := creator.CreateVolume(context.Background(), user, &Attributes{Name: "good", Size: "10g"})
	require.NoError(t, result.Err)
	assert.Equal(t, "volume create --name good --opt size=10g\nhost=tcp://127.0.0.1:2376\n", result.Stdout)
	assert.Empty(t, result.Stderr)
}

// TestCLICreateFailure tests stderr is kept apart from stdout.
func TestCLICreateFailure(t *testing.T) {
	creator := NewCLICreator(mustFakeDocker(t))
	user := mustUser(t, "tcp://127.0.0.1:2376")

	result := creator.CreateVolume(context.Background(), user, &Attributes{Name: "broken", Size: "10g"})
	require.Error(t, result.Err)
	assert.Equal(t, expectedError+"\n", result.Stderr)
	assert.NotContains(t, result.Stdout, expectedError)
}

// TestCLIMissingBinary tests a missing client is a failed result.
func TestCLIMissingBinary(t *testing.T) {
	creator := NewCLICreator(filepath.Join(t.TempDir(), "missing"))
	user := mustUser(t, "tcp://127.0.0.1:2376")

	result := creator.CreateVolume(context.Background(), user, &Attributes{Name: "good"})
	assert.Error(t, result.Err)
}

// fakeDaemon serves volume creation, failing for names starting with broken.
func fakeDaemon(t *testing.T) (string, *volume.CreateOptions) {
	received := &volume.CreateOptions{}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/volumes/create") {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		if err := json.NewDecoder(r.Body).Decode(received); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")

		if strings.HasPrefix(received.Name, "broken") {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(&api.DockerError{Message: api.DockerMessage(api.ErrorInternalError, "volume creation failed")})

			return
		}

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(&volume.Volume{Name: received.Name, Driver: received.Driver})
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return strings.Replace(server.URL, "http://", "tcp://", 1), received
}

// TestAPICreate tests a successful creation through the SDK.
func TestAPICreate(t *testing.T) {
	host, received := fakeDaemon(t)

	result := NewAPICreator().CreateVolume(context.Background(), mustUser(t, host), &Attributes{Name: "good", Size: "10g", Driver: "tritonnfs"})
	require.NoError(t, result.Err)
	assert.Equal(t, "good\n", result.Stdout)
	assert.Equal(t, "tritonnfs", received.Driver)
	assert.Equal(t, map[string]string{"size": "10g"}, received.DriverOpts)
}

// TestAPICreateFailure tests daemon errors are rendered as the client would.
func TestAPICreateFailure(t *testing.T) {
	host, _ := fakeDaemon(t)

	result := NewAPICreator().CreateVolume(context.Background(), mustUser(t, host), &Attributes{Name: "broken", Size: "10g"})
	require.Error(t, result.Err)
	assert.Equal(t, expectedError+"\n", result.Stderr)
}
