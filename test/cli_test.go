package test

import (
	"os/exec"
	"testing"

	"github.com/couchbase/faultcheck/pkg/config"
	"github.com/couchbase/faultcheck/pkg/harness"
	"github.com/couchbase/faultcheck/test/util"
)

// TestProvisionFailureCLI runs the scenario through the docker client.
func TestProvisionFailureCLI(t *testing.T) {
	binary, err := exec.LookPath("docker")
	if err != nil {
		t.Skip("docker client not installed")
	}

	env := util.MustStartSimulator(t, serverTLSConfig)
	util.MustSetEnv(t, env, certPath)
	t.Setenv("FAULTCHECK_DOCKER_MODE", config.ModeCLI)
	t.Setenv("FAULTCHECK_DOCKER_BINARY", binary)

	before := util.MustGetPackage(t, env, util.PackageFilter)

	run := util.MustRun(t, util.MustSetup(t, util.MustLoadConfig(t)))
	util.MustHaveOutcome(t, run, harness.Passed)

	util.MustHaveRestored(t, before, util.MustGetPackage(t, env, util.PackageFilter), "traits")
}
