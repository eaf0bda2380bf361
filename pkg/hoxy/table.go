package hoxy

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sync/atomic"
	"time"

	"github.com/lockline/hoxy/internal/certstore"
	"github.com/lockline/hoxy/internal/fallbackfs"
	"github.com/lockline/hoxy/internal/metrics"
)

// Proxy routes requests to backends by virtual host. The active table is an
// immutable snapshot behind an atomic pointer, so in-flight requests always
// observe either the full old table or the full new one.
type Proxy struct {
	active       atomic.Pointer[table]
	certs        *certstore.Store
	redirectPort string
}

type table struct {
	entries map[string]*tableEntry
}

type tableEntry struct {
	route   Route
	handler http.Handler
	hasCert bool
}

// New returns a Proxy with an empty table. redirectPort is the port part of
// the encrypted listener address, used when building plaintext-to-encrypted
// redirects; pass "" or "443" to omit it from redirect urls.
func New(certReloadInterval time.Duration, redirectPort string) *Proxy {
	p := &Proxy{
		certs:        certstore.New(certReloadInterval),
		redirectPort: redirectPort,
	}
	p.active.Store(&table{entries: map[string]*tableEntry{}})
	return p
}

// Configure validates and compiles a complete routing table and swaps it in
// atomically. Any error leaves the previously active table untouched.
func (p *Proxy) Configure(routes []Route, certs []CertBinding) error {
	entries := make(map[string]*tableEntry, len(routes))
	for _, r := range routes {
		host := canonicalHost(r.Host)
		if host == "" {
			return fmt.Errorf("%w: route with empty host", ErrConfig)
		}
		if _, ok := entries[host]; ok {
			return fmt.Errorf("%w: duplicate route for host %q", ErrConfig, host)
		}
		h, err := compileRoute(r)
		if err != nil {
			return err
		}
		entries[host] = &tableEntry{route: r, handler: h}
	}

	bindings := make(map[string]certstore.Binding, len(certs))
	for _, c := range certs {
		host := canonicalHost(c.Host)
		e, ok := entries[host]
		if !ok {
			return fmt.Errorf("%w: certificate binding for unrouted host %q", ErrConfig, host)
		}
		if _, dup := bindings[host]; dup {
			return fmt.Errorf("%w: duplicate certificate binding for host %q", ErrConfig, host)
		}
		bindings[host] = certstore.Binding{CertFile: c.CertFile, KeyFile: c.KeyFile}
		e.hasCert = true
	}

	if err := p.certs.SetBindings(bindings); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	p.active.Store(&table{entries: entries})
	metrics.TableSwaps.Inc()
	return nil
}

func compileRoute(r Route) (http.Handler, error) {
	switch {
	case r.Target != "" && r.Dir != "":
		return nil, fmt.Errorf("%w: route %q has both a target and a dir", ErrConfig, r.Host)
	case r.Target != "":
		target, err := url.Parse(r.Target)
		if err != nil {
			return nil, fmt.Errorf("%w: route %q: parsing target: %v", ErrConfig, r.Host, err)
		}
		if target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("%w: route %q: target must be an absolute url", ErrConfig, r.Host)
		}
		return backendProxy(target), nil
	case r.Dir != "":
		fi, err := os.Stat(r.Dir)
		if err != nil || !fi.IsDir() {
			return nil, fmt.Errorf("%w: route %q: %q is not a directory", ErrConfig, r.Host, r.Dir)
		}
		f := fallbackfs.New(os.DirFS(r.Dir), "index.html")
		return http.FileServer(http.FS(f)), nil
	default:
		return nil, fmt.Errorf("%w: route %q needs a target or a dir", ErrConfig, r.Host)
	}
}
