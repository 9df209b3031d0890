package redis

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/redisbridge/cache"
	"github.com/gaborage/redisbridge/config"
	"github.com/gaborage/redisbridge/topology"
)

type testPKI struct {
	caPEM     []byte
	leafPEM   []byte
	keyPEM    []byte
	leafCert  tls.Certificate
	leafDER   []byte
	rogueDER  []byte
	caPool    *x509.CertPool
	certsDir  string
	caFile    string
	keystore  string
	untrusted string
}

// newTestPKI creates a CA and a leaf certificate valid only for redis.internal.
func newTestPKI(t *testing.T) *testPKI {
	t.Helper()

	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	caTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "test-ca"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTmpl, caTmpl, &caKey.PublicKey, caKey)
	require.NoError(t, err)
	caCert, err := x509.ParseCertificate(caDER)
	require.NoError(t, err)

	leafKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	leafTmpl := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "redis.internal"},
		DNSNames:     []string{"redis.internal"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTmpl, caCert, &leafKey.PublicKey, caKey)
	require.NoError(t, err)

	rogueTmpl := *leafTmpl
	rogueTmpl.SerialNumber = big.NewInt(3)
	rogueDER, err := x509.CreateCertificate(rand.Reader, &rogueTmpl, &rogueTmpl, &leafKey.PublicKey, leafKey)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(leafKey)
	require.NoError(t, err)

	p := &testPKI{
		caPEM:    pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: caDER}),
		leafPEM:  pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: leafDER}),
		keyPEM:   pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}),
		leafDER:  leafDER,
		rogueDER: rogueDER,
		caPool:   x509.NewCertPool(),
		certsDir: t.TempDir(),
	}
	p.caPool.AddCert(caCert)
	p.leafCert, err = tls.X509KeyPair(p.leafPEM, p.keyPEM)
	require.NoError(t, err)

	p.caFile = filepath.Join(p.certsDir, "ca.pem")
	require.NoError(t, os.WriteFile(p.caFile, p.caPEM, 0o600))
	p.keystore = filepath.Join(p.certsDir, "client.pem")
	require.NoError(t, os.WriteFile(p.keystore, append(append([]byte{}, p.leafPEM...), p.keyPEM...), 0o600))
	p.untrusted = filepath.Join(p.certsDir, "garbage.p12")
	require.NoError(t, os.WriteFile(p.untrusted, []byte{0x30, 0x01, 0x02}, 0o600))

	return p
}

func TestBuildTLSConfigPEM(t *testing.T) {
	pki := newTestPKI(t)

	cfg, err := buildTLSConfig(&topology.TLSConfig{
		Keystore:   pki.keystore,
		Truststore: pki.caFile,
	})
	require.NoError(t, err)

	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	require.Len(t, cfg.Certificates, 1)
	assert.NotNil(t, cfg.RootCAs)
	assert.False(t, cfg.InsecureSkipVerify)
	assert.Nil(t, cfg.VerifyPeerCertificate)
}

func TestBuildTLSConfigErrors(t *testing.T) {
	pki := newTestPKI(t)

	tests := []struct {
		name      string
		tls       topology.TLSConfig
		wantField string
	}{
		{name: "missing_keystore", tls: topology.TLSConfig{Keystore: filepath.Join(pki.certsDir, "nope.p12")}, wantField: "redisson.sslkeystore"},
		{name: "corrupt_pkcs12_keystore", tls: topology.TLSConfig{Keystore: pki.untrusted, KeystorePassword: "pw"}, wantField: "redisson.sslkeystore"},
		{name: "missing_truststore", tls: topology.TLSConfig{Truststore: filepath.Join(pki.certsDir, "nope.pem")}, wantField: "redisson.ssltruststore"},
		{name: "corrupt_pkcs12_truststore", tls: topology.TLSConfig{Truststore: pki.untrusted}, wantField: "redisson.ssltruststore"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildTLSConfig(&tt.tls)

			var cfgErr *cache.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantField, cfgErr.Field)
		})
	}
}

func TestLoadCertPoolEmptyPEM(t *testing.T) {
	_, err := loadCertPool([]byte("-----BEGIN NOTHING-----\n-----END NOTHING-----\n"), "")
	assert.ErrorIs(t, err, errNoCertificates)
}

func TestVerifyChainOnly(t *testing.T) {
	pki := newTestPKI(t)
	verify := verifyChainOnly(pki.caPool)

	assert.NoError(t, verify([][]byte{pki.leafDER}, nil))
	assert.Error(t, verify([][]byte{pki.rogueDER}, nil), "self-signed peer is not trusted")
	assert.ErrorIs(t, verify(nil, nil), errEmptyChain)
}

func TestBuildTLSConfigWithoutEndpointIdentification(t *testing.T) {
	pki := newTestPKI(t)
	off := false

	cfg, err := buildTLSConfig(&topology.TLSConfig{
		Truststore:                   pki.caFile,
		EnableEndpointIdentification: &off,
	})
	require.NoError(t, err)
	assert.True(t, cfg.InsecureSkipVerify)
	require.NotNil(t, cfg.VerifyPeerCertificate)
	assert.NoError(t, cfg.VerifyPeerCertificate([][]byte{pki.leafDER}, nil))
}

func startTLSRedis(t *testing.T, pki *testPKI) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.RunTLS(&tls.Config{
		Certificates: []tls.Certificate{pki.leafCert},
		MinVersion:   tls.VersionTLS12,
	})
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return mr
}

func TestConnectTLS(t *testing.T) {
	pki := newTestPKI(t)
	mr := startTLSRedis(t, pki)
	off := false

	cfg := resolveT(t, config.Properties{
		Mode:                            "single",
		Address:                         "rediss://" + mr.Addr(),
		SSLTruststore:                   pki.caFile,
		SSLEnableEndpointIdentification: &off,
	})
	h := connectT(t, cfg)

	require.NoError(t, h.Client().Set(context.Background(), "secure", "yes", 0).Err())
	got, err := mr.Get("secure")
	require.NoError(t, err)
	assert.Equal(t, "yes", got)
}

func TestConnectTLSHostnameMismatch(t *testing.T) {
	pki := newTestPKI(t)
	mr := startTLSRedis(t, pki)

	// The certificate names redis.internal, not 127.0.0.1.
	cfg := resolveT(t, config.Properties{
		Mode:          "single",
		Address:       "rediss://" + mr.Addr(),
		SSLTruststore: pki.caFile,
		PingTimeout:   2 * time.Second,
		RetryAttempts: zero(),
	})

	_, err := Connect(context.Background(), cfg, testLogger())

	var connErr *cache.ConnectionError
	require.ErrorAs(t, err, &connErr)
}

func TestDialerPlain(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		c, acceptErr := ln.Accept()
		if acceptErr == nil {
			_ = c.Close()
		}
	}()

	noDelay := false
	keepAlive := false
	dial := newDialer(&topology.ServerConfig{
		ConnectTimeout: time.Second,
		TCPNoDelay:     &noDelay,
		KeepAlive:      &keepAlive,
	}, nil)

	conn, err := dial(context.Background(), "tcp", ln.Addr().String())
	require.NoError(t, err)
	_, isTCP := conn.(*net.TCPConn)
	assert.True(t, isTCP)
	require.NoError(t, conn.Close())
}
