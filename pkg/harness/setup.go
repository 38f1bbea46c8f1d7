package harness

import (
	"context"
	"net/http"

	"github.com/couchbase/faultcheck/pkg/api"
	"github.com/couchbase/faultcheck/pkg/capability"
	"github.com/couchbase/faultcheck/pkg/config"
	"github.com/couchbase/faultcheck/pkg/errors"
	"github.com/couchbase/faultcheck/pkg/identity"
	"github.com/couchbase/faultcheck/pkg/naming"
	"github.com/couchbase/faultcheck/pkg/papi"
	"github.com/couchbase/faultcheck/pkg/version"
	"github.com/couchbase/faultcheck/pkg/volumes"

	"github.com/docker/docker/client"
)

// Setup builds a context from configuration.  The run name is sent with
// every record store request for correlation.  The returned cleanup function
// must be called when the run is complete.
func Setup(ctx context.Context, c *config.Config, runName string) (*Context, func(), error) {
	dockerVersion, err := version.ParseDocker(c.Docker.CLIVersion)
	if err != nil {
		return nil, nil, errors.NewConfigurationError("docker client version invalid: %v", err)
	}

	user, err := identity.New(c.User.Login, c.User.Host, c.User.CertPath, c.User.TLSVerify, c.Docker.APIVersion)
	if err != nil {
		return nil, nil, err
	}

	store, err := papi.New(c.PAPI.URL)
	if err != nil {
		return nil, nil, err
	}

	var creator volumes.Creator = volumes.NewCLICreator(c.Docker.Binary)
	if c.Docker.Mode == config.ModeAPI {
		creator = volumes.NewAPICreator()
	}

	cleanup := func() {}

	supported := capability.Static(c.Features.NFSSharedVolumes)

	if c.Features.ProbeVolumeDriver {
		opts, err := user.ClientOptions()
		if err != nil {
			return nil, nil, err
		}

		cli, err := client.NewClientWithOpts(opts...)
		if err != nil {
			return nil, nil, errors.NewConfigurationError("failed to create docker client: %v", err)
		}

		cleanup = func() {
			_ = cli.Close()
		}

		supported = capability.VolumeDriver(ctx, cli, c.Features.VolumeDriver)
	}

	hc := &Context{
		Store:     store,
		Creator:   creator,
		User:      user,
		Version:   dockerVersion,
		Supported: supported,
		Scenario: &Scenario{
			RecordFilter:       c.Scenario.RecordFilter,
			RecordIDField:      c.Scenario.RecordIDField,
			ConstraintsPointer: c.Scenario.ConstraintsPointer,
			FaultMarker:        c.Scenario.FaultMarker,
			VolumeNamePrefix:   c.Scenario.VolumeNamePrefix,
			VolumeSize:         c.Scenario.VolumeSize,
			ExpectedError:      c.Scenario.ExpectedError,
		},
		MakeName: naming.MakeResourceName,
		RequestOptions: &api.RequestOptions{
			Headers: http.Header{
				api.HeaderRequestID: []string{runName},
			},
		},
	}

	return hc, cleanup, nil
}
