package hoxy

import (
	"crypto/tls"
	"fmt"

	"github.com/lockline/hoxy/internal/log"
	"github.com/lockline/hoxy/internal/metrics"
)

// TLSConfig builds the listener config for the encrypted port. Certificate
// selection runs against the active table on every handshake, so a reload
// changes behavior without restarting the listener.
func (p *Proxy) TLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: p.getCertificate,
	}
}

func (p *Proxy) getCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	host := canonicalHost(hello.ServerName)
	e, ok := p.active.Load().entries[host]
	if !ok || !e.hasCert {
		metrics.TLSHandshakeErrors.Inc()
		log.New().WithField("host", host).Warn("handshake for host without certificate binding")
		return nil, fmt.Errorf("%w: %q", ErrTLSConfig, host)
	}
	cert, ok := p.certs.Get(host)
	if !ok {
		metrics.TLSHandshakeErrors.Inc()
		return nil, fmt.Errorf("%w: %q", ErrTLSConfig, host)
	}
	return cert, nil
}
