package redis

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/pkcs12"

	"github.com/gaborage/redisbridge/cache"
	"github.com/gaborage/redisbridge/topology"
)

var (
	errNoCertificates = errors.New("no certificates found")
	errEmptyChain     = errors.New("peer presented no certificates")
)

var pemMarker = []byte("-----BEGIN")

// tlsEnabled reports whether the topology talks TLS. topology.Resolve has already
// rejected topologies mixing redis:// and rediss:// addresses.
func tlsEnabled(cfg *topology.ClientConfig) bool {
	for _, a := range cfg.Addresses() {
		if a.TLS {
			return true
		}
	}
	return false
}

// buildTLSConfig turns keystore and truststore material into a client tls.Config.
func buildTLSConfig(t *topology.TLSConfig) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if t.Keystore != "" {
		data, err := os.ReadFile(t.Keystore)
		if err != nil {
			return nil, cache.NewConfigError("redisson.sslkeystore", "cannot read keystore", err)
		}
		cert, err := loadKeyPair(data, t.KeystorePassword)
		if err != nil {
			return nil, cache.NewConfigError("redisson.sslkeystore", "cannot load keystore", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	if t.Truststore != "" {
		data, err := os.ReadFile(t.Truststore)
		if err != nil {
			return nil, cache.NewConfigError("redisson.ssltruststore", "cannot read truststore", err)
		}
		pool, err := loadCertPool(data, t.TruststorePassword)
		if err != nil {
			return nil, cache.NewConfigError("redisson.ssltruststore", "cannot load truststore", err)
		}
		cfg.RootCAs = pool
	}

	if t.EnableEndpointIdentification != nil && !*t.EnableEndpointIdentification {
		// The chain is still verified, only the host name check is skipped.
		cfg.InsecureSkipVerify = true //nolint:gosec // G402: chain verified in verifyChainOnly
		cfg.VerifyPeerCertificate = verifyChainOnly(cfg.RootCAs)
	}

	return cfg, nil
}

// loadKeyPair reads a PEM certificate and key, or a PKCS#12 keystore.
func loadKeyPair(data []byte, password string) (tls.Certificate, error) {
	if bytes.Contains(data, pemMarker) {
		return tls.X509KeyPair(data, data)
	}

	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decode pkcs12: %w", err)
	}

	var pemData []byte
	for _, b := range blocks {
		pemData = append(pemData, pem.EncodeToMemory(b)...)
	}
	return tls.X509KeyPair(pemData, pemData)
}

// loadCertPool reads a PEM bundle or the certificates of a PKCS#12 store.
func loadCertPool(data []byte, password string) (*x509.CertPool, error) {
	pool := x509.NewCertPool()

	if bytes.Contains(data, pemMarker) {
		if !pool.AppendCertsFromPEM(data) {
			return nil, errNoCertificates
		}
		return pool, nil
	}

	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		return nil, fmt.Errorf("decode pkcs12: %w", err)
	}

	added := 0
	for _, b := range blocks {
		if b.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(b.Bytes)
		if err != nil {
			return nil, err
		}
		pool.AddCert(cert)
		added++
	}
	if added == 0 {
		return nil, errNoCertificates
	}
	return pool, nil
}

// verifyChainOnly verifies the peer chain against roots without checking the host name.
// A nil roots pool means the system roots.
func verifyChainOnly(roots *x509.CertPool) func([][]byte, [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return errEmptyChain
		}

		certs := make([]*x509.Certificate, 0, len(rawCerts))
		for _, raw := range rawCerts {
			cert, err := x509.ParseCertificate(raw)
			if err != nil {
				return err
			}
			certs = append(certs, cert)
		}

		intermediates := x509.NewCertPool()
		for _, c := range certs[1:] {
			intermediates.AddCert(c)
		}

		_, err := certs[0].Verify(x509.VerifyOptions{
			Roots:         roots,
			Intermediates: intermediates,
		})
		return err
	}
}
