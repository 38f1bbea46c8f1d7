package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"path/filepath"
	"time"

	"github.com/couchbase/faultcheck/pkg/certs"
	"github.com/couchbase/faultcheck/pkg/identity"
	"github.com/couchbase/faultcheck/pkg/papi"
	"github.com/couchbase/faultcheck/pkg/simulator"
	"github.com/couchbase/faultcheck/pkg/util"
	"github.com/couchbase/faultcheck/pkg/version"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

const (
	// readyTimeout is how long the simulator has to start answering.
	readyTimeout = 10 * time.Second
)

// simulateOptions configure the simulate command.
type simulateOptions struct {
	papiAddress   string
	dockerAddress string
	fixturesPath  string
	volumeDriver  string
	login         string
	tls           bool
	certPath      string
}

// newSimulateCommand serves a simulated PAPI and daemon.
func newSimulateCommand() *cobra.Command {
	o := &simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Serve a simulated package API and Docker daemon",
		Long: `Serves an in-memory package API and a Docker-compatible daemon that
provisions NFS shared volumes.  The environment needed to run against it is
printed on standard output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd)
		},
	}

	cmd.Flags().StringVar(&o.papiAddress, "papi-listen", "127.0.0.1:8080", "PAPI listen address")
	cmd.Flags().StringVar(&o.dockerAddress, "docker-listen", "127.0.0.1:2376", "Docker daemon listen address")
	cmd.Flags().StringVar(&o.fixturesPath, "fixtures", "", "YAML packages and compute nodes, built in fixtures if empty")
	cmd.Flags().StringVar(&o.volumeDriver, "volume-driver", simulator.DefaultVolumeDriver, "Volume driver to support")
	cmd.Flags().StringVar(&o.login, "login", simulator.DefaultOwner, "Account to generate a client certificate for")
	cmd.Flags().BoolVar(&o.tls, "tls", false, "Require TLS client certificates on the daemon")
	cmd.Flags().StringVar(&o.certPath, "cert-path", "", "Where to write client certificates, the account's default if empty")

	return cmd
}

func (o *simulateOptions) run(cmd *cobra.Command) error {
	options := simulator.Options{
		VolumeDriver: o.volumeDriver,
		DefaultOwner: o.login,
	}

	if o.fixturesPath != "" {
		fixtures, err := simulator.LoadFixtures(o.fixturesPath)
		if err != nil {
			return err
		}

		options.Fixtures = fixtures
	}

	sim, err := simulator.New(options)
	if err != nil {
		return err
	}

	papiListener, err := net.Listen("tcp", o.papiAddress)
	if err != nil {
		return err
	}

	dockerListener, err := net.Listen("tcp", o.dockerAddress)
	if err != nil {
		return err
	}

	var tlsConfig *tls.Config

	exports := []string{
		"PAPI_URL=http://" + papiListener.Addr().String(),
		"DOCKER_HOST=tcp://" + dockerListener.Addr().String(),
		"EXPERIMENTAL_DOCKER_NFS_SHARED_VOLUMES=true",
	}

	if o.tls {
		certPath, config, err := o.setupTLS()
		if err != nil {
			return err
		}

		tlsConfig = config

		exports = append(exports, "DOCKER_CERT_PATH="+certPath, "DOCKER_TLS_VERIFY=1")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	errs := make(chan error, 1)

	go func() {
		errs <- sim.Run(ctx, papiListener, dockerListener, tlsConfig)
	}()

	if err := waitForPAPI(ctx, papiListener.Addr().String()); err != nil {
		cancel()
		<-errs

		return err
	}

	glog.Infof("simulator ready, PAPI %s, daemon %s", papiListener.Addr(), dockerListener.Addr())

	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "# %s simulator %s\n", version.Application, version.Version)

	for _, export := range exports {
		fmt.Fprintf(out, "export %s\n", export)
	}

	return <-errs
}

// waitForPAPI waits until the simulated PAPI answers pings.
func waitForPAPI(ctx context.Context, address string) error {
	client, err := papi.New("http://" + address)
	if err != nil {
		return err
	}

	ping := func() error {
		return client.Ping(ctx)
	}

	if err := util.WaitFor(ctx, ping, readyTimeout); err != nil {
		return fmt.Errorf("simulator did not become ready: %w", err)
	}

	return nil
}

// setupTLS writes client certificates for the login and returns where they
// were written with the daemon's TLS configuration.
func (o *simulateOptions) setupTLS() (string, *tls.Config, error) {
	bundle, err := certs.NewBundle(o.login)
	if err != nil {
		return "", nil, err
	}

	certPath := o.certPath
	if certPath == "" {
		certPath = identity.DefaultCertPath(o.login)
	}

	certPath, err = filepath.Abs(certPath)
	if err != nil {
		return "", nil, err
	}

	if err := bundle.WriteClientDir(certPath); err != nil {
		return "", nil, err
	}

	tlsConfig, err := bundle.ServerTLSConfig()
	if err != nil {
		return "", nil, err
	}

	return certPath, tlsConfig, nil
}
