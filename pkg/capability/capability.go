// Package capability answers whether a deployment supports the feature under
// test.
package capability

import (
	"context"

	"github.com/docker/docker/api/types/system"
	"github.com/golang/glog"
)

// Predicate reports whether the target deployment supports a feature.  It is
// consulted once, before any test state is modified.
type Predicate func() bool

// Static returns a predicate with a fixed answer, typically from configuration.
func Static(supported bool) Predicate {
	return func() bool {
		return supported
	}
}

// InfoClient is the subset of the Docker client used to probe daemon features.
type InfoClient interface {
	Info(ctx context.Context) (system.Info, error)
}

// VolumeDriver returns a predicate that asks the daemon whether a volume
// driver plugin is installed.  Any error is treated as unsupported.
func VolumeDriver(ctx context.Context, client InfoClient, driver string) Predicate {
	return func() bool {
		info, err := client.Info(ctx)
		if err != nil {
			glog.Warningf("failed to query daemon info: %v", err)
			return false
		}

		for _, plugin := range info.Plugins.Volume {
			if plugin == driver {
				return true
			}
		}

		glog.Infof("volume driver %s not in %v", driver, info.Plugins.Volume)

		return false
	}
}
