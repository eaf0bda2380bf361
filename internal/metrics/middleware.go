package metrics

import (
	"net"
	"net/http"
	"strconv"
	"strings"
)

// Middleware counts every request by virtual host and status code.
func Middleware(next http.Handler) http.Handler {
	fn := func(respWriter http.ResponseWriter, r *http.Request) {
		w := &responseWriter{ResponseWriter: respWriter, status: http.StatusOK}
		next.ServeHTTP(w, r)
		RequestsTotal.WithLabelValues(hostOnly(r.Host), strconv.Itoa(w.status)).Inc()
	}
	return http.HandlerFunc(fn)
}

func hostOnly(hostport string) string {
	h := hostport
	if host, _, err := net.SplitHostPort(h); err == nil && host != "" {
		h = host
	}
	return strings.ToLower(h)
}

type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
	rw.wroteHeader = true
}

// Unwrap lets http.ResponseController reach hijack/flush on the underlying
// writer, which proxied upgrade requests need.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
