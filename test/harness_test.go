package test

import (
	"context"
	"strings"
	"testing"

	"github.com/couchbase/faultcheck/pkg/api"
	"github.com/couchbase/faultcheck/pkg/harness"
	"github.com/couchbase/faultcheck/pkg/operation"
	"github.com/couchbase/faultcheck/test/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestProvisionFailure breaks the package over TLS, checks the daemon reports
// an internal error and that the package is restored afterwards.
func TestProvisionFailure(t *testing.T) {
	env := util.MustStartSimulator(t, serverTLSConfig)
	util.MustSetEnv(t, env, certPath)

	before := util.MustGetPackage(t, env, util.PackageFilter)

	hc := util.MustSetup(t, util.MustLoadConfig(t))
	run := util.MustRun(t, hc)
	util.MustHaveOutcome(t, run, harness.Passed)

	assert.Contains(t, run.TAP, "ok 1 "+harness.StepConnect)
	assert.Contains(t, run.TAP, "ok 3 "+harness.StepInject)
	assert.Contains(t, run.TAP, "# ok")
	assert.NotContains(t, run.TAP, "not ok")

	util.MustHaveRestored(t, before, util.MustGetPackage(t, env, util.PackageFilter), "traits")

	var failed []operation.Operation

	for _, job := range env.Simulator.Jobs().List() {
		if job.Kind == operation.OperationKindVolumeCreate && job.Status == operation.OperationStatusFailed {
			failed = append(failed, job)
		}
	}

	require.Len(t, failed, 1)
	assert.Equal(t, util.Login, failed[0].Owner)
	assert.Equal(t, hc.VolumeName, failed[0].Resource)
}

// TestProvisionFailureRestoresTraits checks existing constraints survive.
func TestProvisionFailureRestoresTraits(t *testing.T) {
	env := util.MustStartSimulator(t, serverTLSConfig)
	util.MustSetEnv(t, env, certPath)

	pkg := util.MustGetPackage(t, env, util.PackageFilter)

	traits := map[string]interface{}{
		"storage": true,
	}

	util.MustUpdatePackage(t, env, pkg.String("uuid"), api.Record{"traits": traits})

	run := util.MustRun(t, util.MustSetup(t, util.MustLoadConfig(t)))
	util.MustHaveOutcome(t, run, harness.Passed)

	after := util.MustGetPackage(t, env, util.PackageFilter)
	assert.Equal(t, traits, after["traits"])
}

// TestProvisionFailureNoPackage checks a missing package fails the run
// without touching any other package.
func TestProvisionFailureNoPackage(t *testing.T) {
	env := util.MustStartSimulator(t, serverTLSConfig)
	util.MustSetEnv(t, env, certPath)
	t.Setenv("FAULTCHECK_SCENARIO_RECORDFILTER", "(name=sdc_volume_nfs_missing)")

	before, err := env.Simulator.Store().ListPackages("")
	require.NoError(t, err)

	run := util.MustRun(t, util.MustSetup(t, util.MustLoadConfig(t)))
	util.MustHaveOutcome(t, run, harness.Failed)

	assert.Contains(t, run.TAP, "not ok 2 "+harness.StepLookup)
	assert.Contains(t, run.TAP, "should be 1 result []")
	assert.NotContains(t, run.TAP, harness.StepVerify)

	after, err := env.Simulator.Store().ListPackages("")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

// TestProvisionFailureUnsupported checks the run is skipped when the
// datacenter cannot provision shared volumes.
func TestProvisionFailureUnsupported(t *testing.T) {
	env := util.MustStartSimulator(t, serverTLSConfig)
	util.MustSetEnv(t, env, certPath)
	t.Setenv("EXPERIMENTAL_DOCKER_NFS_SHARED_VOLUMES", "false")

	run := util.MustRun(t, util.MustSetup(t, util.MustLoadConfig(t)))
	util.MustHaveOutcome(t, run, harness.Skipped)

	assert.True(t, strings.HasPrefix(strings.SplitN(run.TAP, "\n", 3)[2], "1..0 # SKIP"))
	assert.Empty(t, env.Simulator.Jobs().List())
}

// TestProvisionFailureProbe checks the capability is discovered from the
// daemon when probing is enabled.
func TestProvisionFailureProbe(t *testing.T) {
	env := util.MustStartSimulator(t, serverTLSConfig)
	util.MustSetEnv(t, env, certPath)
	t.Setenv("EXPERIMENTAL_DOCKER_NFS_SHARED_VOLUMES", "false")
	t.Setenv("FAULTCHECK_FEATURES_PROBEVOLUMEDRIVER", "true")

	run := util.MustRun(t, util.MustSetup(t, util.MustLoadConfig(t)))
	util.MustHaveOutcome(t, run, harness.Passed)
}

// TestProvisionFailureGoTest runs the scenario as a go subtest.
func TestProvisionFailureGoTest(t *testing.T) {
	env := util.MustStartSimulator(t, serverTLSConfig)
	util.MustSetEnv(t, env, certPath)

	before := util.MustGetPackage(t, env, util.PackageFilter)

	outcome := harness.RunTest(context.Background(), t, util.MustSetup(t, util.MustLoadConfig(t)))
	assert.Equal(t, harness.Passed, outcome)

	util.MustHaveRestored(t, before, util.MustGetPackage(t, env, util.PackageFilter), "traits")
}
