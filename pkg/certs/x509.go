package certs

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha1" // nolint:gosec
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"time"

	"github.com/couchbase/faultcheck/pkg/errors"
)

const (
	pemTypeECPrivateKey = "EC PRIVATE KEY"
	pemTypePrivateKey   = "PRIVATE KEY"
	pemTypeCertificate  = "CERTIFICATE"

	// serialBits bounds serial numbers well inside the 20 octets allowed.
	serialBits = 128

	// clockSkew backdates certificates so hosts with slow clocks accept them.
	clockSkew = time.Hour
)

// Curve is the elliptic curve of a generated key.
type Curve string

const (
	CurveP256 Curve = "P256"
	CurveP384 Curve = "P384"
)

// Usage is what a certificate may be used for.
type Usage string

const (
	UsageCA     Usage = "CA"
	UsageServer Usage = "Server"
	UsageClient Usage = "Client"
)

// usages are the key usages for each certificate role.
var usages = map[Usage]struct {
	key      x509.KeyUsage
	extended []x509.ExtKeyUsage
}{
	UsageCA:     {key: x509.KeyUsageCertSign | x509.KeyUsageCRLSign},
	UsageServer: {key: x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment, extended: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}},
	UsageClient: {key: x509.KeyUsageDigitalSignature, extended: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}},
}

// GenerateKey creates a SEC 1 PEM encoded EC private key, the format the
// docker client expects in key.pem.
func GenerateKey(curve Curve) ([]byte, error) {
	var c elliptic.Curve

	switch curve {
	case CurveP256:
		c = elliptic.P256()
	case CurveP384:
		c = elliptic.P384()
	default:
		return nil, errors.NewConfigurationError("unsupported curve %s", curve)
	}

	key, err := ecdsa.GenerateKey(c, rand.Reader)
	if err != nil {
		return nil, err
	}

	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, err
	}

	return pem.EncodeToMemory(&pem.Block{Type: pemTypeECPrivateKey, Bytes: der}), nil
}

// decodePEM returns the single block of the expected type.
func decodePEM(data []byte, types ...string) (*pem.Block, error) {
	block, rest := pem.Decode(data)
	if block == nil {
		return nil, errors.NewConfigurationError("no PEM data found")
	}

	if len(rest) > 0 {
		return nil, errors.NewConfigurationError("unexpected content after %s PEM block", block.Type)
	}

	for _, t := range types {
		if block.Type == t {
			return block, nil
		}
	}

	return nil, errors.NewConfigurationError("PEM block type %s unsupported", block.Type)
}

// DecodePrivateKey parses a PEM encoded SEC 1 or PKCS #8 private key.
func DecodePrivateKey(keyPEM []byte) (crypto.Signer, error) {
	block, err := decodePEM(keyPEM, pemTypeECPrivateKey, pemTypePrivateKey)
	if err != nil {
		return nil, err
	}

	if block.Type == pemTypeECPrivateKey {
		return x509.ParseECPrivateKey(block.Bytes)
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, errors.NewConfigurationError("private key cannot be used for signing")
	}

	return signer, nil
}

// DecodeCertificate parses a PEM encoded certificate.
func DecodeCertificate(certPEM []byte) (*x509.Certificate, error) {
	block, err := decodePEM(certPEM, pemTypeCertificate)
	if err != nil {
		return nil, err
	}

	return x509.ParseCertificate(block.Bytes)
}

// CertificateRequest describes a certificate to be generated.
type CertificateRequest struct {
	// Subject is the certificate subject, the common name is the account
	// login for Docker client certificates.
	Subject pkix.Name

	// Lifetime is how long the certificate is valid for.
	Lifetime time.Duration

	// Usage is what the certificate may be used for.
	Usage Usage

	// DNSNames and IPAddresses are subject alternative names.
	DNSNames    []string
	IPAddresses []net.IP
}

// subjectKeyID is the SHA-1 of the public key, used to build chains.
func subjectKeyID(pub crypto.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, err
	}

	sum := sha1.Sum(der) // nolint:gosec

	return sum[:], nil
}

// GenerateCertificate generates and signs an X.509 certificate.  If the CA key
// and certificate are nil the certificate is self signed.
func GenerateCertificate(keyPEM []byte, request *CertificateRequest, caKeyPEM, caCertPEM []byte) ([]byte, error) {
	usage, ok := usages[request.Usage]
	if !ok {
		return nil, errors.NewConfigurationError("unknown usage type %v", request.Usage)
	}

	key, err := DecodePrivateKey(keyPEM)
	if err != nil {
		return nil, err
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), serialBits))
	if err != nil {
		return nil, err
	}

	keyID, err := subjectKeyID(key.Public())
	if err != nil {
		return nil, err
	}

	notBefore := time.Now().Add(-clockSkew)

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               request.Subject,
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(request.Lifetime),
		BasicConstraintsValid: true,
		IsCA:                  request.Usage == UsageCA,
		KeyUsage:              usage.key,
		ExtKeyUsage:           usage.extended,
		SubjectKeyId:          keyID,
		DNSNames:              request.DNSNames,
		IPAddresses:           request.IPAddresses,
	}

	parent, signer := template, key

	if caKeyPEM != nil {
		if signer, err = DecodePrivateKey(caKeyPEM); err != nil {
			return nil, err
		}

		if parent, err = DecodeCertificate(caCertPEM); err != nil {
			return nil, err
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, template, parent, key.Public(), signer)
	if err != nil {
		return nil, err
	}

	return pem.EncodeToMemory(&pem.Block{Type: pemTypeCertificate, Bytes: der}), nil
}
