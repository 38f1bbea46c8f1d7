package acceptance

import (
	"os"
	"testing"

	"github.com/couchbase/faultcheck/pkg/config"
)

// mustLoadConfig loads configuration for a live datacenter.  The test is
// skipped when none is available.
func mustLoadConfig(t *testing.T) *config.Config {
	if configPath == "" && (os.Getenv("PAPI_URL") == "" || os.Getenv("DOCKER_HOST") == "") {
		t.Skip("no datacenter configured, set PAPI_URL and DOCKER_HOST or -config")
	}

	c, err := config.Load(configPath)
	if err != nil {
		t.Fatal(err)
	}

	return c
}
