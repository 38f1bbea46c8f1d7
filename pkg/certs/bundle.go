package certs

import (
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/couchbase/faultcheck/pkg/errors"
)

const (
	// lifetime is how long generated certificates live for.  They are only
	// intended to last a test run.
	lifetime = 24 * time.Hour

	// CAFile is the name of the CA certificate in a Docker cert directory.
	CAFile = "ca.pem"

	// CertFile is the name of the client certificate in a Docker cert directory.
	CertFile = "cert.pem"

	// KeyFile is the name of the client key in a Docker cert directory.
	KeyFile = "key.pem"
)

// Bundle is a CA with a server certificate for a Docker-compatible daemon and a
// client certificate for a single account.  The daemon identifies the account
// by the client certificate's common name.
type Bundle struct {
	CACert     []byte
	CAKey      []byte
	ServerCert []byte
	ServerKey  []byte
	ClientCert []byte
	ClientKey  []byte
}

// NewBundle generates a complete certificate set for an account login.  The
// server certificate is valid for localhost and the loopback addresses.
func NewBundle(login string) (*Bundle, error) {
	b := &Bundle{}

	var err error

	if b.CAKey, err = GenerateKey(CurveP384); err != nil {
		return nil, err
	}

	ca := &CertificateRequest{
		Subject:  pkix.Name{CommonName: "faultcheck CA"},
		Lifetime: lifetime,
		Usage:    UsageCA,
	}

	if b.CACert, err = GenerateCertificate(b.CAKey, ca, nil, nil); err != nil {
		return nil, err
	}

	if b.ServerKey, err = GenerateKey(CurveP256); err != nil {
		return nil, err
	}

	server := &CertificateRequest{
		Subject:     pkix.Name{CommonName: "localhost"},
		Lifetime:    lifetime,
		Usage:       UsageServer,
		DNSNames:    []string{"localhost"},
		IPAddresses: []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}

	if b.ServerCert, err = GenerateCertificate(b.ServerKey, server, b.CAKey, b.CACert); err != nil {
		return nil, err
	}

	if b.ClientKey, err = GenerateKey(CurveP256); err != nil {
		return nil, err
	}

	client := &CertificateRequest{
		Subject:  pkix.Name{CommonName: login},
		Lifetime: lifetime,
		Usage:    UsageClient,
	}

	if b.ClientCert, err = GenerateCertificate(b.ClientKey, client, b.CAKey, b.CACert); err != nil {
		return nil, err
	}

	return b, nil
}

// WriteClientDir writes the CA, client certificate and key into a directory in
// the layout expected by DOCKER_CERT_PATH.
func (b *Bundle) WriteClientDir(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	files := map[string][]byte{
		CAFile:   b.CACert,
		CertFile: b.ClientCert,
		KeyFile:  b.ClientKey,
	}

	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
			return err
		}
	}

	return nil
}

// ServerTLSConfig returns a TLS configuration for the daemon that requires
// clients to present a certificate signed by the bundle CA.
func (b *Bundle) ServerTLSConfig() (*tls.Config, error) {
	cert, err := tls.X509KeyPair(b.ServerCert, b.ServerKey)
	if err != nil {
		return nil, err
	}

	pool := x509.NewCertPool()
	if ok := pool.AppendCertsFromPEM(b.CACert); !ok {
		return nil, errors.NewConfigurationError("failed to import CA certificate")
	}

	config := &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientCAs:    pool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS12,
	}

	return config, nil
}
