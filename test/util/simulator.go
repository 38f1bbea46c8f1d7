package util

import (
	"crypto/tls"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/couchbase/faultcheck/pkg/api"
	"github.com/couchbase/faultcheck/pkg/config"
	"github.com/couchbase/faultcheck/pkg/simulator"
)

const (
	// Login is the account tests act as.
	Login = "alice"

	// PackageFilter selects the package broken by the tests.
	PackageFilter = "(&(name=sdc_volume_nfs_10)(active=true))"

	// ExpectedError is what users see when provisioning fails.
	ExpectedError = "Error response from daemon: (InternalError) volume creation failed"
)

// Environment is a running simulator.
type Environment struct {
	Simulator  *simulator.Simulator
	PAPIURL    string
	DockerHost string
}

// MustStartSimulator starts a simulated PAPI and daemon that are stopped when
// the test completes.  The daemon requires TLS if a configuration is given.
func MustStartSimulator(t *testing.T, tlsConfig *tls.Config) *Environment {
	sim, err := simulator.New(simulator.Options{})
	if err != nil {
		t.Fatal(err)
	}

	papi := httptest.NewServer(sim.PAPIHandler())
	t.Cleanup(papi.Close)

	docker := httptest.NewUnstartedServer(sim.DockerHandler())

	if tlsConfig != nil {
		docker.TLS = tlsConfig
		docker.StartTLS()
	} else {
		docker.Start()
	}

	t.Cleanup(docker.Close)

	return &Environment{
		Simulator:  sim,
		PAPIURL:    papi.URL,
		DockerHost: "tcp://" + docker.Listener.Addr().String(),
	}
}

// MustSetEnv points the harness configuration at the simulator as the
// sdc-docker test suite environment would.
func MustSetEnv(t *testing.T, env *Environment, certPath string) {
	t.Setenv("DOCKER_CLI_VERSION", "1.12.6")
	t.Setenv("DOCKER_HOST", env.DockerHost)
	t.Setenv("PAPI_URL", env.PAPIURL)
	t.Setenv("EXPERIMENTAL_DOCKER_NFS_SHARED_VOLUMES", "true")
	t.Setenv("FAULTCHECK_DOCKER_MODE", config.ModeAPI)

	if certPath != "" {
		t.Setenv("DOCKER_CERT_PATH", certPath)
		t.Setenv("DOCKER_TLS_VERIFY", "1")
	}
}

// MustLoadConfig loads the configuration from the environment.
func MustLoadConfig(t *testing.T) *config.Config {
	c, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}

	return c
}

// MustGetPackage returns the single package matching a filter.
func MustGetPackage(t *testing.T, env *Environment, filter string) api.Record {
	records, err := env.Simulator.Store().ListPackages(filter)
	if err != nil {
		t.Fatal(err)
	}

	if len(records) != 1 {
		t.Fatalf("expected 1 package matching %s, got %d", filter, len(records))
	}

	return records[0]
}

// MustUpdatePackage replaces package fields.
func MustUpdatePackage(t *testing.T, env *Environment, id string, update api.Record) {
	if _, err := env.Simulator.Store().UpdatePackage(id, update); err != nil {
		t.Fatal(err)
	}
}

// MustHaveRestored checks a package is as it was before a run.  Absent
// constraints are restored as an empty set.
func MustHaveRestored(t *testing.T, before, after api.Record, field string) {
	expected := api.Record{}
	for k, v := range before {
		expected[k] = v
	}

	if _, ok := expected[field]; !ok {
		expected[field] = map[string]interface{}{}
	}

	if !reflect.DeepEqual(expected, after) {
		t.Fatalf("package not restored, expected %v, got %v", expected, after)
	}
}
