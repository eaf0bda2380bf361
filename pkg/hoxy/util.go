package hoxy

import (
	"net"
	"net/http"
	"strings"
	"sync"
)

type Middleware func(next http.Handler) http.Handler

// canonicalHost normalizes a request host (possibly host:port, possibly
// with a trailing dot) into the lowercase form used as table key.
func canonicalHost(hostport string) string {
	h := strings.TrimSpace(hostport)
	if host, _, err := net.SplitHostPort(h); err == nil && host != "" {
		h = host
	}
	return strings.ToLower(strings.TrimSuffix(h, "."))
}

func waitAll(functions ...func() error) error {
	var wg sync.WaitGroup
	wg.Add(len(functions))
	errs := make([]error, len(functions))
	for i, f := range functions {
		go func(i int, f func() error) {
			errs[i] = f()
			wg.Done()
		}(i, f)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
