package heartbeat

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"os"

	"golang.org/x/crypto/pkcs12"
	"google.golang.org/grpc/credentials"
)

// TLSConfig names the certificate material needed to build client transport
// credentials, grounded on the teacher's grpc.go CertPool/newTls/NewClientTLS.
type TLSConfig struct {
	CertFile   string
	KeyFile    string
	CACertFile string
	ServerName string

	// GridKeystoreFile / GridKeystorePassword select the GRID-TLS path: a
	// PKCS#12 keystore decoded with golang.org/x/crypto/pkcs12 instead of a
	// separate cert/key pair. XtreemFS's "grid security" mode authenticates
	// with a grid-proxy keystore rather than a conventional cert/key pair;
	// the teacher's TLS plumbing has no equivalent need for this, but
	// directly supports extending it this way.
	GridKeystoreFile     string
	GridKeystorePassword string
}

// BuildClientCredentials constructs transport credentials for the configured
// Protocol. ProtocolPlain returns nil (insecure.NewCredentials is the
// caller's job, to keep this package free of the insecure-transport
// decision). ProtocolTLS uses a conventional cert/key pair; ProtocolGridTLS
// decodes a PKCS#12 keystore into the same tls.Config shape.
func BuildClientCredentials(protocol Protocol, cfg TLSConfig) (credentials.TransportCredentials, error) {
	switch protocol {
	case ProtocolTLS:
		return newClientTLSFromKeyPair(cfg)
	case ProtocolGridTLS:
		return newClientTLSFromPKCS12(cfg)
	default:
		return nil, nil
	}
}

func newClientTLSFromKeyPair(cfg TLSConfig) (credentials.TransportCredentials, error) {
	if cfg.CertFile == "" || cfg.KeyFile == "" || cfg.CACertFile == "" {
		return nil, errors.New("heartbeat: TLS requires CertFile, KeyFile and CACertFile")
	}

	pair, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, err
	}

	pool, err := loadCACertPool(cfg.CACertFile)
	if err != nil {
		return nil, err
	}

	return credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{pair},
		ServerName:   cfg.ServerName,
		RootCAs:      pool,
	}), nil
}

func newClientTLSFromPKCS12(cfg TLSConfig) (credentials.TransportCredentials, error) {
	if cfg.GridKeystoreFile == "" {
		return nil, errors.New("heartbeat: GRID-TLS requires GridKeystoreFile")
	}

	raw, err := os.ReadFile(cfg.GridKeystoreFile)
	if err != nil {
		return nil, err
	}

	key, cert, caCerts, err := pkcs12.DecodeChain(raw, cfg.GridKeystorePassword)
	if err != nil {
		return nil, err
	}

	pool := x509.NewCertPool()
	for _, ca := range caCerts {
		pool.AddCert(ca)
	}
	if cfg.CACertFile != "" {
		extra, err := loadCACertPool(cfg.CACertFile)
		if err == nil {
			pool = extra
		}
	}

	tlsCert := tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  key,
		Leaf:        cert,
	}

	return credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{tlsCert},
		ServerName:   cfg.ServerName,
		RootCAs:      pool,
	}), nil
}

func loadCACertPool(path string) (*x509.CertPool, error) {
	ca, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(ca) {
		return nil, errors.New("heartbeat: failed to parse CA certificate")
	}
	return pool, nil
}
