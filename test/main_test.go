package test

import (
	"crypto/tls"
	"flag"
	"fmt"
	"os"
	"testing"

	"github.com/couchbase/faultcheck/pkg/certs"
	"github.com/couchbase/faultcheck/test/util"
)

var (
	// certPath is a docker client certificate directory for util.Login.
	certPath string

	// serverTLSConfig is used by every simulated daemon.
	serverTLSConfig *tls.Config
)

func setup() (func(), error) {
	bundle, err := certs.NewBundle(util.Login)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "faultcheck-certs-")
	if err != nil {
		return nil, err
	}

	cleanup := func() {
		_ = os.RemoveAll(dir)
	}

	if err := bundle.WriteClientDir(dir); err != nil {
		cleanup()
		return nil, err
	}

	if serverTLSConfig, err = bundle.ServerTLSConfig(); err != nil {
		cleanup()
		return nil, err
	}

	certPath = dir

	return cleanup, nil
}

func TestMain(m *testing.M) {
	flag.Parse()

	cleanup, err := setup()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	code := m.Run()

	cleanup()

	os.Exit(code)
}
