package capability

import (
	"context"
	"fmt"
	"testing"

	"github.com/docker/docker/api/types/system"
	"github.com/stretchr/testify/assert"
)

type fakeInfoClient struct {
	plugins []string
	err     error
	calls   int
}

func (c *fakeInfoClient) Info(_ context.Context) (system.Info, error) {
	c.calls++

	if c.err != nil {
		return system.Info{}, c.err
	}

	return system.Info{
		Plugins: system.PluginsInfo{
			Volume: c.plugins,
		},
	}, nil
}

func TestStatic(t *testing.T) {
	assert.True(t, Static(true)())
	assert.False(t, Static(false)())
}

func TestVolumeDriver(t *testing.T) {
	client := &fakeInfoClient{plugins: []string{"local", "tritonnfs"}}

	assert.True(t, VolumeDriver(context.Background(), client, "tritonnfs")())
	assert.Equal(t, 1, client.calls)
}

func TestVolumeDriverMissing(t *testing.T) {
	client := &fakeInfoClient{plugins: []string{"local"}}

	assert.False(t, VolumeDriver(context.Background(), client, "tritonnfs")())
}

func TestVolumeDriverError(t *testing.T) {
	client := &fakeInfoClient{err: fmt.Errorf("connection refused")}

	assert.False(t, VolumeDriver(context.Background(), client, "tritonnfs")())
}

func TestVolumeDriverLazy(t *testing.T) {
	client := &fakeInfoClient{}

	_ = VolumeDriver(context.Background(), client, "tritonnfs")

	assert.Equal(t, 0, client.calls)
}
