// Copyright 2021 Couchbase, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file  except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the  License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package simulator serves in-process stand-ins for the Triton package API
// and the sdc-docker daemon, enough to provision NFS shared volumes and to
// fail doing so when a package cannot be allocated.
package simulator

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/couchbase/faultcheck/pkg/operation"

	"github.com/golang/glog"
)

const (
	// DefaultVolumeDriver is the NFS shared volume driver.
	DefaultVolumeDriver = "tritonnfs"

	// DefaultDaemonVersion is the docker version the daemon reports.
	DefaultDaemonVersion = "1.12.6"

	// DefaultOwner is the account used when a client presents no certificate.
	DefaultOwner = "alice"

	// shutdownTimeout is how long to wait for requests to drain.
	shutdownTimeout = 5 * time.Second
)

// Options configure a simulator.
type Options struct {
	// Fixtures are the initial packages and compute nodes.
	Fixtures *Fixtures

	// VolumeDriver is the only volume driver the daemon supports.
	VolumeDriver string

	// DaemonVersion is the docker version the daemon reports.
	DaemonVersion string

	// DefaultOwner owns volumes created without a client certificate.
	DefaultOwner string
}

// Simulator holds the simulated datacenter state.
type Simulator struct {
	store   *Store
	jobs    *operation.Ledger
	options Options

	// volumes are keyed by owner then name.
	volumes map[string]map[string]*simulatedVolume
	lock    sync.Mutex
}

// New creates a simulator.
func New(options Options) (*Simulator, error) {
	if options.Fixtures == nil {
		options.Fixtures = DefaultFixtures()
	}

	if options.VolumeDriver == "" {
		options.VolumeDriver = DefaultVolumeDriver
	}

	if options.DaemonVersion == "" {
		options.DaemonVersion = DefaultDaemonVersion
	}

	if options.DefaultOwner == "" {
		options.DefaultOwner = DefaultOwner
	}

	store, err := NewStore(options.Fixtures)
	if err != nil {
		return nil, err
	}

	s := &Simulator{
		store:   store,
		jobs:    operation.NewLedger(),
		options: options,
		volumes: map[string]map[string]*simulatedVolume{},
	}

	return s, nil
}

// Store returns the package and compute node store.
func (s *Simulator) Store() *Store {
	return s.store
}

// Jobs returns the provisioning job ledger.
func (s *Simulator) Jobs() *operation.Ledger {
	return s.jobs
}

// responseWriter wraps the standard response writer so we can extract the response data.
type responseWriter struct {
	writer http.ResponseWriter
	status int
}

// Header returns a reference to the response headers.
func (w *responseWriter) Header() http.Header {
	return w.writer.Header()
}

// Write writes out data after the headers have been written.
func (w *responseWriter) Write(body []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	return w.writer.Write(body)
}

// WriteHeader writes out the headers.
func (w *responseWriter) WriteHeader(statusCode int) {
	w.status = statusCode
	w.writer.WriteHeader(statusCode)
}

// loggingHandler logs every request and response.
type loggingHandler struct {
	name string
	http.Handler
}

// ServeHTTP logs the request, routes it, then logs the response.
func (handler *loggingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Start the profiling timer.
	start := time.Now()

	// DO NOT print out headers at info level as that will leak credentials into the log stream.
	userAgent := "-"

	for name := range r.Header {
		if strings.EqualFold(name, "User-Agent") {
			userAgent = r.Header[name][0]
			break
		}
	}

	glog.Infof(`%s HTTP req: "%s %s %s" %s %s`, handler.name, r.Method, r.URL.Path, r.Proto, r.RemoteAddr, userAgent)

	// Start using the wrapped writer so we can capture the status code etc.
	writer := &responseWriter{
		writer: w,
	}

	handler.Handler.ServeHTTP(writer, r)

	glog.Infof(`%s HTTP rsp: "%d %s" %v`, handler.name, writer.status, http.StatusText(writer.status), time.Since(start))
}

// serve runs a server until the context is cancelled.
func serve(ctx context.Context, server *http.Server, listener net.Listener, tlsEnabled bool) error {
	errs := make(chan error, 1)

	go func() {
		if tlsEnabled {
			errs <- server.ServeTLS(listener, "", "")
			return
		}

		errs <- server.Serve(listener)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

// Run serves PAPI and the daemon on the given listeners until the context is
// cancelled.  If tlsConfig is not nil the daemon requires TLS.
func (s *Simulator) Run(ctx context.Context, papiListener, dockerListener net.Listener, tlsConfig *tls.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	papiServer := &http.Server{
		Handler:           s.PAPIHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	dockerServer := &http.Server{
		Handler:           s.DockerHandler(),
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
	}

	glog.Infof("PAPI listening on %s", papiListener.Addr())
	glog.Infof("docker listening on %s (tls=%v)", dockerListener.Addr(), tlsConfig != nil)

	errs := make(chan error, 2)

	go func() {
		errs <- serve(ctx, papiServer, papiListener, false)
	}()

	go func() {
		errs <- serve(ctx, dockerServer, dockerListener, tlsConfig != nil)
	}()

	// The first server to stop takes the other down with it.
	err := <-errs

	cancel()

	if err2 := <-errs; err == nil {
		err = err2
	}

	if err == http.ErrServerClosed {
		err = nil
	}

	return err
}
