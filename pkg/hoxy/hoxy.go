package hoxy

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/lockline/hoxy/internal/log"
)

// Listeners names the listen addresses for the two traffic ports. An empty
// HTTPSAddr disables the encrypted listener.
type Listeners struct {
	HTTPAddr  string
	HTTPSAddr string
}

// Serve runs the plaintext listener and, when configured, the encrypted one
// until ctx is cancelled, then shuts both down gracefully. Middlewares wrap
// both listeners, first in the slice innermost.
func Serve(ctx context.Context, p *Proxy, l Listeners, middlewares []Middleware) error {
	wrap := func(h http.Handler) http.Handler {
		for _, m := range middlewares {
			h = m(h)
		}
		return h
	}

	servers := []*http.Server{
		{Addr: l.HTTPAddr, Handler: wrap(p.Handler(false))},
	}
	log.New().WithField("addr", l.HTTPAddr).Info("listening for plaintext traffic")

	if l.HTTPSAddr != "" {
		servers = append(servers, &http.Server{
			Addr:      l.HTTPSAddr,
			Handler:   wrap(p.Handler(true)),
			TLSConfig: p.TLSConfig(),
		})
		log.New().WithField("addr", l.HTTPSAddr).Info("listening for encrypted traffic")
	}

	fns := []func() error{func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		var err error
		for _, s := range servers {
			if e := s.Shutdown(shutdownCtx); e != nil {
				err = e
			}
		}
		return err
	}}
	for _, s := range servers {
		fns = append(fns, func() error {
			var err error
			if s.TLSConfig != nil {
				err = s.ListenAndServeTLS("", "")
			} else {
				err = s.ListenAndServe()
			}
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
	}
	return waitAll(fns...)
}
