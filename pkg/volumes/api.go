package volumes

import (
	"context"

	"github.com/couchbase/faultcheck/pkg/identity"
	"github.com/couchbase/faultcheck/pkg/log"

	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/golang/glog"
)

// APICreator calls the daemon with the Docker Engine SDK.
type APICreator struct{}

// NewAPICreator returns a creator that uses the Docker Engine SDK.
func NewAPICreator() *APICreator {
	return &APICreator{}
}

// CreateVolume creates a volume and renders any error as the docker client
// would print it.  The SDK prefixes daemon errors with "Error response from
// daemon: " just as the client does.
func (c *APICreator) CreateVolume(ctx context.Context, user *identity.User, attributes *Attributes) *Result {
	opts, err := user.ClientOptions()
	if err != nil {
		return &Result{Err: err, Stderr: err.Error() + "\n"}
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return &Result{Err: err, Stderr: err.Error() + "\n"}
	}

	defer cli.Close()

	options := volume.CreateOptions{
		Name:       attributes.Name,
		Driver:     attributes.Driver,
		DriverOpts: attributes.driverOptions(),
	}

	glog.V(log.LevelDebug).Infof("creating volume %s for %s", attributes.Name, user.Login)

	created, err := cli.VolumeCreate(ctx, options)
	if err != nil {
		glog.V(log.LevelDebug).Infof("volume creation failed: %v", err)

		return &Result{Err: err, Stderr: err.Error() + "\n"}
	}

	return &Result{Stdout: created.Name + "\n"}
}
