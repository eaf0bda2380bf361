package hoxy

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/lockline/hoxy/internal/log"
	"github.com/lockline/hoxy/internal/metrics"
)

var backendTransport = &http.Transport{
	DialContext: (&net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ForceAttemptHTTP2:   true,
	MaxIdleConns:        256,
	MaxIdleConnsPerHost: 32,
	IdleConnTimeout:     90 * time.Second,
}

// Handler returns the request entry point for one listener. encrypted tells
// it whether the connection already went through TLS, which drives the
// plaintext redirect and the X-Forwarded-Proto value.
func (p *Proxy) Handler(encrypted bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := canonicalHost(r.Host)
		e, ok := p.active.Load().entries[host]
		if !ok {
			log.New().WithError(fmt.Errorf("%w: %q", ErrNoRoute, host)).AddToContext(r.Context())
			http.Error(w, "no such host", http.StatusNotFound)
			return
		}
		if !encrypted && e.route.RedirectPlain {
			http.Redirect(w, r, p.encryptedURL(host, r.URL), http.StatusMovedPermanently)
			return
		}
		e.handler.ServeHTTP(w, r)
	})
}

func (p *Proxy) encryptedURL(host string, u *url.URL) string {
	target := *u
	target.Scheme = "https"
	target.Host = host
	if p.redirectPort != "" && p.redirectPort != "443" {
		target.Host = net.JoinHostPort(host, p.redirectPort)
	}
	return target.String()
}

// backendProxy streams requests through to target. The outbound request
// keeps the original Host header, the backend address only replaces the url.
func backendProxy(target *url.URL) http.Handler {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		Transport: backendTransport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.New().WithError(fmt.Errorf("%w: %v", ErrBackendUnavailable, err)).AddToContext(r.Context())
			metrics.BackendErrors.WithLabelValues(canonicalHost(r.Host)).Inc()
			w.WriteHeader(http.StatusBadGateway)
		},
	}
}
