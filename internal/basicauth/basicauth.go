package basicauth

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/lockline/hoxy/internal/log"
	"github.com/lockline/hoxy/pkg/hoxy"
	"golang.org/x/crypto/bcrypt"
)

type contextKey struct{}

// Middleware gates the listed virtual hosts behind http basic auth checked
// against a bcrypt hash. Hosts not listed pass through untouched.
func Middleware(bcryptHash string, hosts []string) hoxy.Middleware {
	if bcryptHash == "" || len(hosts) == 0 {
		log.New().Fatal("basicauth: BASIC_AUTH_HASH and BASIC_AUTH_HOSTS required")
	}
	protected := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		protected[hostOnly(h)] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !protected[hostOnly(r.Host)] {
				next.ServeHTTP(w, r)
				return
			}
			username, password, ok := r.BasicAuth()
			if !ok {
				log.New().WithError(errors.New("basicauth: couldn't parse Authorization header")).AddToContext(r.Context())
				w.Header().Set("WWW-Authenticate", "Basic")
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if bcrypt.CompareHashAndPassword([]byte(bcryptHash), []byte(password)) != nil {
				log.New().WithError(errors.New("basicauth: wrong password")).AddToContext(r.Context())
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			log.New().WithField("basic_auth_username", username).AddToContext(r.Context())
			ctx := context.WithValue(r.Context(), contextKey{}, username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func Username(ctx context.Context) (string, error) {
	if u, ok := ctx.Value(contextKey{}).(string); ok {
		return u, nil
	}
	return "", errors.New("couldn't get basic auth username from context, make sure basicauth.Middleware has run")
}

func hostOnly(hostport string) string {
	h := strings.TrimSpace(hostport)
	if host, _, err := net.SplitHostPort(h); err == nil && host != "" {
		h = host
	}
	return strings.ToLower(h)
}
