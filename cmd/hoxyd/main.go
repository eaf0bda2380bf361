package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/lockline/hoxy/internal/basicauth"
	"github.com/lockline/hoxy/internal/config"
	"github.com/lockline/hoxy/internal/gzipmw"
	"github.com/lockline/hoxy/internal/jwtauth"
	"github.com/lockline/hoxy/internal/log"
	"github.com/lockline/hoxy/internal/metrics"
	"github.com/lockline/hoxy/internal/secheaders"
	"github.com/lockline/hoxy/pkg/hoxy"
)

func main() {
	cfg := config.Get()
	metrics.Init()

	proxy := hoxy.New(cfg.CertReloadInterval, cfg.RedirectPort())
	if err := proxy.Configure(cfg.Routes, cfg.Certs); err != nil {
		log.New().WithError(err).Fatal("invalid initial configuration")
	}

	var middlewares []hoxy.Middleware
	if cfg.JwksUrl != "" {
		middlewares = append(middlewares, jwtauth.Middleware(cfg.JwksUrl, cfg.JwtProtectHosts))
	}
	if cfg.BasicAuthHash != "" {
		middlewares = append(middlewares, basicauth.Middleware(cfg.BasicAuthHash, cfg.BasicAuthHosts))
	}
	middlewares = append(middlewares, secheaders.Middleware(secheaders.Policy{
		CSP:        cfg.CSP,
		HSTSMaxAge: cfg.HSTSMaxAge,
		NoCache:    cfg.NoCache,
	}))
	if cfg.Gzip {
		middlewares = append(middlewares, gzipmw.Middleware)
	}
	middlewares = append(middlewares, metrics.Middleware)
	middlewares = append(middlewares, log.Middleware)

	ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)

	if cfg.RoutesFile != "" {
		go reloadOnSighup(ctx, proxy, cfg.RoutesFile)
	}
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.New().WithError(err).Error("metrics listener failed")
			}
		}()
	}

	err := hoxy.Serve(ctx, proxy, hoxy.Listeners{HTTPAddr: cfg.HTTPAddr, HTTPSAddr: cfg.HTTPSAddr}, middlewares)
	log.New().WithError(err).Info("shutting down")
	log.Drain(context.Background())
}

// reloadOnSighup re-reads the routes file and swaps in the new table. A
// failed reload keeps the active table and only logs.
func reloadOnSighup(ctx context.Context, proxy *hoxy.Proxy, path string) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			routes, certs, err := config.LoadFile(path)
			if err == nil {
				err = proxy.Configure(routes, certs)
			}
			if err != nil {
				log.New().WithError(err).Error("reload failed, keeping active table")
				continue
			}
			log.New().WithField("routes", len(routes)).Info("configuration reloaded")
		}
	}
}
