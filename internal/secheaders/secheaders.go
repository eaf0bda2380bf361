package secheaders

import (
	"fmt"
	"net/http"
	"time"

	"github.com/lockline/hoxy/pkg/hoxy"
)

// Policy holds the response headers the proxy stamps on every response.
// Zero values leave the corresponding header alone.
type Policy struct {
	CSP        string
	HSTSMaxAge time.Duration
	NoCache    bool
}

func Middleware(p Policy) hoxy.Middleware {
	var hsts string
	if p.HSTSMaxAge > 0 {
		hsts = fmt.Sprintf("max-age=%d", int(p.HSTSMaxAge.Seconds()))
	}
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			if p.CSP != "" {
				w.Header().Set("Content-Security-Policy", p.CSP)
			}
			// HSTS is only meaningful on the encrypted listener.
			if hsts != "" && r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", hsts)
			}
			if p.NoCache {
				w.Header().Set("Cache-Control", "no-cache")
			}
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}
