package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hoxy_requests_total",
			Help: "Requests handled, by virtual host and status code",
		},
		[]string{"host", "code"},
	)
	BackendErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hoxy_backend_errors_total",
			Help: "Forwards that failed because the backend was unreachable or broke mid-stream",
		},
		[]string{"host"},
	)
	TLSHandshakeErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hoxy_tls_handshake_errors_total",
			Help: "Handshakes rejected because no certificate binding matched the requested host",
		},
	)
	CertReloads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hoxy_cert_reloads_total",
			Help: "Certificate pairs re-read from disk after the reload interval passed",
		},
	)
	TableSwaps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hoxy_table_swaps_total",
			Help: "Routing tables swapped in by Configure",
		},
	)
)

// Init registers all collectors. Call once before serving.
func Init() {
	prometheus.MustRegister(RequestsTotal, BackendErrors, TLSHandshakeErrors, CertReloads, TableSwaps)
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
