package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/couchbase/faultcheck/pkg/api"
	"github.com/couchbase/faultcheck/pkg/capability"
	"github.com/couchbase/faultcheck/pkg/certs"
	"github.com/couchbase/faultcheck/pkg/identity"
	"github.com/couchbase/faultcheck/pkg/operation"
	"github.com/couchbase/faultcheck/pkg/papi"
	"github.com/couchbase/faultcheck/pkg/util"

	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const expectedError = "Error response from daemon: (InternalError) volume creation failed"

func mustNewSimulator(t *testing.T) *Simulator {
	s, err := New(Options{})
	require.NoError(t, err)

	return s
}

// mustDockerClient starts the daemon over plain HTTP and returns a client.
func mustDockerClient(t *testing.T, s *Simulator) *client.Client {
	server := httptest.NewServer(s.DockerHandler())
	t.Cleanup(server.Close)

	cli, err := client.NewClientWithOpts(client.WithHost(strings.Replace(server.URL, "http://", "tcp://", 1)), client.WithAPIVersionNegotiation())
	require.NoError(t, err)

	t.Cleanup(func() { _ = cli.Close() })

	return cli
}

// mustPAPIClient starts PAPI and returns a client.
func mustPAPIClient(t *testing.T, s *Simulator) *papi.Client {
	server := httptest.NewServer(s.PAPIHandler())
	t.Cleanup(server.Close)

	c, err := papi.New(server.URL)
	require.NoError(t, err)

	return c
}

// TestPAPIRoundTrip tests the package API through its client.
func TestPAPIRoundTrip(t *testing.T) {
	s := mustNewSimulator(t)
	c := mustPAPIClient(t, s)
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))

	records, count, err := c.List(ctx, "(&(name=sdc_volume_nfs_10)(active=true))", nil)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	id := records[0].String("uuid")

	require.NoError(t, c.Update(ctx, id, api.Record{"traits": map[string]interface{}{"broken_by_docker_tests": true}}, nil))

	record, err := c.Get(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"broken_by_docker_tests": true}, record["traits"])
}

// TestPAPIErrors tests errors are reported in the PAPI style.
func TestPAPIErrors(t *testing.T) {
	s := mustNewSimulator(t)
	server := httptest.NewServer(s.PAPIHandler())
	t.Cleanup(server.Close)

	response, err := http.Get(server.URL + "/packages?filter=" + "(name:dn:=x)")
	require.NoError(t, err)

	defer response.Body.Close()

	assert.Equal(t, http.StatusBadRequest, response.StatusCode)

	e := &api.Error{}
	require.NoError(t, json.NewDecoder(response.Body).Decode(e))
	assert.Equal(t, api.ErrorInvalidQuery, e.Code)

	request, err := http.NewRequest(http.MethodPut, server.URL+"/packages/missing", bytes.NewBufferString(`{"traits":{}}`))
	require.NoError(t, err)

	response2, err := http.DefaultClient.Do(request)
	require.NoError(t, err)

	defer response2.Body.Close()

	assert.Equal(t, http.StatusNotFound, response2.StatusCode)
}

// TestDockerInfo tests the daemon advertises its volume driver.
func TestDockerInfo(t *testing.T) {
	s := mustNewSimulator(t)
	cli := mustDockerClient(t, s)

	assert.True(t, capability.VolumeDriver(context.Background(), cli, DefaultVolumeDriver)())
	assert.False(t, capability.VolumeDriver(context.Background(), cli, "local")())

	v, err := cli.ServerVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultDaemonVersion, v.Version)
	assert.Equal(t, api.DockerAPIVersion, cli.ClientVersion())
}

// TestDockerVolumeLifecycle tests creation, listing and removal.
func TestDockerVolumeLifecycle(t *testing.T) {
	s := mustNewSimulator(t)
	cli := mustDockerClient(t, s)
	ctx := context.Background()

	created, err := cli.VolumeCreate(ctx, volume.CreateOptions{Name: "data", DriverOpts: map[string]string{"size": "10g"}})
	require.NoError(t, err)
	assert.Equal(t, "data", created.Name)
	assert.Equal(t, DefaultVolumeDriver, created.Driver)
	assert.Equal(t, "cn0:/exports/data", created.Mountpoint)

	_, err = cli.VolumeCreate(ctx, volume.CreateOptions{Name: "data"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(Conflict) Volume with name data already exists")

	list, err := cli.VolumeList(ctx, volume.ListOptions{})
	require.NoError(t, err)
	require.Len(t, list.Volumes, 1)

	inspected, err := cli.VolumeInspect(ctx, "data")
	require.NoError(t, err)
	assert.Equal(t, "10g", inspected.Options["size"])

	require.NoError(t, cli.VolumeRemove(ctx, "data", false))

	_, err = cli.VolumeInspect(ctx, "data")
	require.Error(t, err)

	jobs := s.Jobs().List()
	require.Len(t, jobs, 2)
	assert.Equal(t, operation.OperationKindVolumeCreate, jobs[0].Kind)
	assert.Equal(t, operation.OperationKindVolumeDelete, jobs[1].Kind)
}

// TestDockerVolumeCreateFails tests an unallocatable package fails the
// creation with the sdc-docker error.
func TestDockerVolumeCreateFails(t *testing.T) {
	s := mustNewSimulator(t)
	cli := mustDockerClient(t, s)

	_, err := s.Store().UpdatePackage("0b2e5ab6-a8e2-4a4d-8b3c-6fd7f2c1e010", api.Record{"traits": map[string]interface{}{"broken_by_docker_tests": true}})
	require.NoError(t, err)

	_, err = cli.VolumeCreate(context.Background(), volume.CreateOptions{Name: "broken", DriverOpts: map[string]string{"size": "10g"}})
	require.Error(t, err)
	assert.Equal(t, expectedError, err.Error())

	jobs := s.Jobs().List()
	require.Len(t, jobs, 1)
	assert.Equal(t, operation.OperationStatusFailed, jobs[0].Status)
	assert.Contains(t, jobs[0].Error, "no compute nodes available")

	// Other sizes are unaffected.
	_, err = cli.VolumeCreate(context.Background(), volume.CreateOptions{Name: "bigger", DriverOpts: map[string]string{"size": "20g"}})
	assert.NoError(t, err)
}

// TestDockerVolumeCreateInvalid tests request validation.
func TestDockerVolumeCreateInvalid(t *testing.T) {
	s := mustNewSimulator(t)
	cli := mustDockerClient(t, s)
	ctx := context.Background()

	_, err := cli.VolumeCreate(ctx, volume.CreateOptions{Name: "x", Driver: "local"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(InvalidArgument) Volume driver local is not supported")

	_, err = cli.VolumeCreate(ctx, volume.CreateOptions{Name: "x", DriverOpts: map[string]string{"size": "lots"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(InvalidArgument) Volume size lots is invalid")

	_, err = cli.VolumeCreate(ctx, volume.CreateOptions{Name: "-x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(ValidationFailed)")

	_, err = cli.VolumeCreate(ctx, volume.CreateOptions{Name: "x", DriverOpts: map[string]string{"size": "10t"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not available")
}

// TestDockerAPIVersions tests versioned paths are checked.
func TestDockerAPIVersions(t *testing.T) {
	s := mustNewSimulator(t)
	server := httptest.NewServer(s.DockerHandler())
	t.Cleanup(server.Close)

	cases := []struct {
		path   string
		status int
	}{
		{"/_ping", http.StatusOK},
		{"/v1.24/_ping", http.StatusOK},
		{"/v" + api.DockerAPIVersion + "/version", http.StatusOK},
		{"/v1.12/version", http.StatusBadRequest},
		{"/v9.99/version", http.StatusBadRequest},
		{"/v1.44/containers/json", http.StatusNotFound},
	}

	for _, test := range cases {
		response, err := http.Get(server.URL + test.path)
		require.NoError(t, err)
		_ = response.Body.Close()

		assert.Equal(t, test.status, response.StatusCode, test.path)
		assert.Equal(t, api.DockerAPIVersion, response.Header.Get("API-Version"), test.path)
	}
}

// TestDockerTLSOwner tests volumes are owned by the client certificate's
// account.
func TestDockerTLSOwner(t *testing.T) {
	s := mustNewSimulator(t)

	bundle, err := certs.NewBundle("bob")
	require.NoError(t, err)

	tlsConfig, err := bundle.ServerTLSConfig()
	require.NoError(t, err)

	server := httptest.NewUnstartedServer(s.DockerHandler())
	server.TLS = tlsConfig
	server.StartTLS()
	t.Cleanup(server.Close)

	dir := filepath.Join(t.TempDir(), "bob")
	require.NoError(t, bundle.WriteClientDir(dir))

	user, err := identity.New("bob", strings.Replace(server.URL, "https://", "tcp://", 1), dir, true, "")
	require.NoError(t, err)

	opts, err := user.ClientOptions()
	require.NoError(t, err)

	cli, err := client.NewClientWithOpts(opts...)
	require.NoError(t, err)

	defer cli.Close()

	_, err = cli.VolumeCreate(context.Background(), volume.CreateOptions{Name: "shared"})
	require.NoError(t, err)

	s.lock.Lock()
	_, ok := s.volumes["bob"]["shared"]
	s.lock.Unlock()

	assert.True(t, ok)
}

// TestRun tests the servers start and stop with the context.
func TestRun(t *testing.T) {
	s := mustNewSimulator(t)

	papiListener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	dockerListener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	errs := make(chan error, 1)

	go func() {
		errs <- s.Run(ctx, papiListener, dockerListener, nil)
	}()

	c, err := papi.New("http://" + papiListener.Addr().String())
	require.NoError(t, err)

	require.NoError(t, util.WaitFor(ctx, func() error { return c.Ping(ctx) }, 10*time.Second))

	cancel()

	select {
	case err := <-errs:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("simulator did not stop")
	}
}
