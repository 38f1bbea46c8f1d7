package volumes

import (
	"bytes"
	"context"
	"os/exec"
	"sort"
	"strings"

	"github.com/couchbase/faultcheck/pkg/identity"
	"github.com/couchbase/faultcheck/pkg/log"

	"github.com/golang/glog"
)

// CLICreator runs the docker client.
type CLICreator struct {
	// Binary is the docker executable, looked up in PATH if not absolute.
	Binary string
}

// NewCLICreator returns a creator that runs the given docker binary.
func NewCLICreator(binary string) *CLICreator {
	return &CLICreator{
		Binary: binary,
	}
}

// args returns the command line for a creation.
func (c *CLICreator) args(attributes *Attributes) []string {
	args := []string{"volume", "create", "--name", attributes.Name}

	if attributes.Driver != "" {
		args = append(args, "--driver", attributes.Driver)
	}

	options := attributes.driverOptions()

	keys := make([]string, 0, len(options))
	for key := range options {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		args = append(args, "--opt", key+"="+options[key])
	}

	return args
}

// CreateVolume runs docker volume create with the user's environment.
func (c *CLICreator) CreateVolume(ctx context.Context, user *identity.User, attributes *Attributes) *Result {
	args := c.args(attributes)

	glog.V(log.LevelDebug).Infof("exec %s %s", c.Binary, strings.Join(args, " "))

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, c.Binary, args...)
	cmd.Env = user.Env()
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	glog.V(log.LevelDebug).Infof("exec complete: err=%v stdout=%q stderr=%q", err, stdout.String(), stderr.String())

	return &Result{
		Err:    err,
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
}
