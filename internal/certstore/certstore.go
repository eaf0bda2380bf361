package certstore

import (
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/lockline/hoxy/internal/log"
	"github.com/lockline/hoxy/internal/metrics"
)

// Binding names the certificate chain and private key files for one host.
type Binding struct {
	CertFile string
	KeyFile  string
}

type entry struct {
	binding  Binding
	cert     *tls.Certificate
	loadedAt time.Time
}

// Store caches parsed certificate pairs per host. Entries older than the
// reload interval are re-read from disk on the next lookup, which is how
// certificates replaced in place by an external renewal process get picked
// up without a restart.
type Store struct {
	mu             sync.RWMutex
	reloadInterval time.Duration
	entries        map[string]*entry
}

func New(reloadInterval time.Duration) *Store {
	return &Store{
		reloadInterval: reloadInterval,
		entries:        make(map[string]*entry),
	}
}

// SetBindings loads every pair upfront and replaces the stored set
// wholesale. On any load error nothing is replaced.
func (s *Store) SetBindings(bindings map[string]Binding) error {
	entries := make(map[string]*entry, len(bindings))
	for host, b := range bindings {
		cert, err := tls.LoadX509KeyPair(b.CertFile, b.KeyFile)
		if err != nil {
			return fmt.Errorf("loading certificate pair for %q: %w", host, err)
		}
		entries[host] = &entry{binding: b, cert: &cert, loadedAt: time.Now()}
	}
	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	return nil
}

func (s *Store) Get(host string) (*tls.Certificate, bool) {
	s.mu.RLock()
	e, ok := s.entries[host]
	var cert *tls.Certificate
	var stale bool
	if ok {
		cert = e.cert
		stale = time.Since(e.loadedAt) > s.reloadInterval
	}
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if stale {
		cert = s.reload(host)
	}
	return cert, true
}

// reload re-reads the pair from disk. A failed read keeps the last good
// certificate and pushes the next attempt one interval out.
func (s *Store) reload(host string) *tls.Certificate {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[host]
	if !ok {
		return nil
	}
	if time.Since(e.loadedAt) <= s.reloadInterval {
		return e.cert
	}
	e.loadedAt = time.Now()
	fresh, err := tls.LoadX509KeyPair(e.binding.CertFile, e.binding.KeyFile)
	if err != nil {
		log.New().WithError(err).WithField("host", host).Warn("certificate reload failed, keeping previous pair")
		return e.cert
	}
	e.cert = &fresh
	metrics.CertReloads.Inc()
	return e.cert
}
