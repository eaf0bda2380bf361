package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lockline/hoxy/internal/log"
	"github.com/lockline/hoxy/pkg/hoxy"
)

type contextKey struct{}

// Middleware gates the listed virtual hosts behind a bearer token validated
// against the JWKS document at jwksUrl. Hosts not listed pass through
// untouched. The JWKS is refreshed in the background by keyfunc.
func Middleware(jwksUrl string, hosts []string) hoxy.Middleware {
	if jwksUrl == "" || len(hosts) == 0 {
		log.New().Fatal("jwtauth: JWKS_URL and JWT_PROTECT_HOSTS required")
	}
	jwks, err := keyfunc.NewDefault([]string{jwksUrl})
	if err != nil {
		log.New().WithError(err).Fatal("jwtauth: couldn't load jwks")
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
			raw := bearerToken(r)
			if raw == "" {
				log.New().WithError(errors.New("jwtauth: missing bearer token")).AddToContext(r.Context())
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			token, err := jwt.Parse(raw, jwks.Keyfunc)
			if err != nil || !token.Valid {
				log.New().WithError(fmt.Errorf("jwtauth: parsing token: %w", err)).AddToContext(r.Context())
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if sub, err := token.Claims.GetSubject(); err == nil && sub != "" {
				log.New().WithField("jwt_sub", sub).AddToContext(r.Context())
			}
			ctx := context.WithValue(r.Context(), contextKey{}, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Token returns the validated token for hosts the middleware protects.
func Token(ctx context.Context) (*jwt.Token, error) {
	if t, ok := ctx.Value(contextKey{}).(*jwt.Token); ok {
		return t, nil
	}
	return nil, errors.New("couldn't get token from context, make sure jwtauth.Middleware has run")
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

func hostOnly(hostport string) string {
	h := strings.TrimSpace(hostport)
	if host, _, err := net.SplitHostPort(h); err == nil && host != "" {
		h = host
	}
	return strings.ToLower(h)
}
