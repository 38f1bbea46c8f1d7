// Package identity describes the account a test acts as when talking to a
// Docker-compatible daemon.
package identity

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/couchbase/faultcheck/pkg/certs"
	"github.com/couchbase/faultcheck/pkg/errors"

	"github.com/docker/docker/client"
	"github.com/docker/go-connections/tlsconfig"
)

// User is a pre-authenticated account.  Triton identifies the account by the
// common name of the client certificate in CertPath.
type User struct {
	// Login is the account login.
	Login string

	// DockerHost is the daemon address e.g. tcp://docker.example.com:2376.
	DockerHost string

	// CertPath is the directory containing ca.pem, cert.pem and key.pem.
	CertPath string

	// TLSVerify enables verification of the daemon certificate.
	TLSVerify bool

	// APIVersion pins the Docker API version, negotiated if empty.
	APIVersion string
}

// DefaultCertPath returns the directory sdc-docker-setup.sh writes client
// certificates to for a login.
func DefaultCertPath(login string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return filepath.Join(home, ".sdc", "docker", login)
}

// New validates and returns a user.  The certificate path defaults to the
// sdc-docker-setup.sh location.
func New(login, dockerHost, certPath string, tlsVerify bool, apiVersion string) (*User, error) {
	if login == "" {
		return nil, errors.NewConfigurationError("user login not specified")
	}

	if dockerHost == "" {
		return nil, errors.NewConfigurationError("docker host not specified for user %s", login)
	}

	if certPath == "" {
		certPath = DefaultCertPath(login)
	}

	user := &User{
		Login:      login,
		DockerHost: dockerHost,
		CertPath:   certPath,
		TLSVerify:  tlsVerify,
		APIVersion: apiVersion,
	}

	return user, nil
}

// Env returns the process environment for running the docker CLI as this
// user.  Only PATH and HOME are inherited so that ambient DOCKER_* settings
// cannot leak in.
func (u *User) Env() []string {
	env := []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + os.Getenv("HOME"),
		"DOCKER_HOST=" + u.DockerHost,
		"DOCKER_CERT_PATH=" + u.CertPath,
	}

	if u.TLSVerify {
		env = append(env, "DOCKER_TLS_VERIFY=1")
	}

	if u.APIVersion != "" {
		env = append(env, "DOCKER_API_VERSION="+u.APIVersion)
	}

	return env
}

// hasCertificates returns whether the certificate directory is populated.
func (u *User) hasCertificates() bool {
	for _, name := range []string{certs.CAFile, certs.CertFile, certs.KeyFile} {
		if _, err := os.Stat(filepath.Join(u.CertPath, name)); err != nil {
			return false
		}
	}

	return true
}

// ClientOptions returns Docker SDK options equivalent to Env.  As with the
// docker CLI, a populated certificate directory enables TLS, and the daemon
// certificate is only verified when TLSVerify is set.
func (u *User) ClientOptions() ([]client.Opt, error) {
	var opts []client.Opt

	if u.hasCertificates() {
		config, err := tlsconfig.Client(tlsconfig.Options{
			CAFile:             filepath.Join(u.CertPath, certs.CAFile),
			CertFile:           filepath.Join(u.CertPath, certs.CertFile),
			KeyFile:            filepath.Join(u.CertPath, certs.KeyFile),
			InsecureSkipVerify: !u.TLSVerify,
		})
		if err != nil {
			return nil, errors.NewConfigurationError("failed to load client certificates for %s: %v", u.Login, err)
		}

		httpClient := &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: config,
			},
		}

		opts = append(opts, client.WithHTTPClient(httpClient))
	}

	// The host must follow the HTTP client so it can configure its transport.
	opts = append(opts, client.WithHost(u.DockerHost))

	if u.APIVersion != "" {
		opts = append(opts, client.WithVersion(u.APIVersion))
	} else {
		opts = append(opts, client.WithAPIVersionNegotiation())
	}

	return opts, nil
}
