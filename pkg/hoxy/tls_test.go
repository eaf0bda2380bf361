package hoxy

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func genCertPair(t *testing.T, host string) (certFile, keyFile string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: host},
		DNSNames:     []string{host},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDer, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	dir := t.TempDir()
	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	certPem := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPem := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDer})
	require.NoError(t, os.WriteFile(certFile, certPem, 0o600))
	require.NoError(t, os.WriteFile(keyFile, keyPem, 0o600))
	return certFile, keyFile
}

func TestGetCertificateByServerName(t *testing.T) {
	certFile, keyFile := genCertPair(t, "app-a.example.com")

	p := New(time.Hour, "")
	err := p.Configure(
		[]Route{
			{Host: "app-a.example.com", Target: "http://127.0.0.1:8000"},
			{Host: "app-b.example.com", Target: "http://127.0.0.1:8501"},
		},
		[]CertBinding{{Host: "app-a.example.com", CertFile: certFile, KeyFile: keyFile}},
	)
	require.NoError(t, err)

	cert, err := p.getCertificate(&tls.ClientHelloInfo{ServerName: "App-A.example.com"})
	require.NoError(t, err)
	require.NotNil(t, cert)
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	require.Contains(t, leaf.DNSNames, "app-a.example.com")

	// routed host without a binding
	_, err = p.getCertificate(&tls.ClientHelloInfo{ServerName: "app-b.example.com"})
	require.ErrorIs(t, err, ErrTLSConfig)

	// unknown host
	_, err = p.getCertificate(&tls.ClientHelloInfo{ServerName: "app-c.example.com"})
	require.ErrorIs(t, err, ErrTLSConfig)
}

func TestConfigureRejectsBrokenCertPair(t *testing.T) {
	dir := t.TempDir()
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certFile, []byte("not a cert"), 0o600))
	require.NoError(t, os.WriteFile(keyFile, []byte("not a key"), 0o600))

	p := New(time.Hour, "")
	err := p.Configure(
		[]Route{{Host: "app-a.example.com", Target: "http://127.0.0.1:8000"}},
		[]CertBinding{{Host: "app-a.example.com", CertFile: certFile, KeyFile: keyFile}},
	)
	require.ErrorIs(t, err, ErrConfig)
}
