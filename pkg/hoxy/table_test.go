package hoxy

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfigureDuplicateHost(t *testing.T) {
	a := newBackend(t, "backend-a")
	b := newBackend(t, "backend-b")

	p := New(time.Hour, "")
	require.NoError(t, p.Configure([]Route{{Host: "app-a.example.com", Target: a.URL}}, nil))

	err := p.Configure([]Route{
		{Host: "App-A.example.com", Target: a.URL},
		{Host: "app-a.example.com", Target: b.URL},
	}, nil)
	require.ErrorIs(t, err, ErrConfig)

	// the previously active table must survive a failed configure
	ts := httptest.NewServer(p.Handler(false))
	defer ts.Close()
	resp := doRequest(t, ts, "app-a.example.com", "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "backend-a", body(t, resp))
}

func TestConfigureCertBindingWithoutRoute(t *testing.T) {
	a := newBackend(t, "backend-a")

	p := New(time.Hour, "")
	err := p.Configure(
		[]Route{{Host: "app-a.example.com", Target: a.URL}},
		[]CertBinding{{Host: "app-b.example.com", CertFile: "cert.pem", KeyFile: "key.pem"}},
	)
	require.ErrorIs(t, err, ErrConfig)
}

func TestConfigureRouteShape(t *testing.T) {
	p := New(time.Hour, "")

	err := p.Configure([]Route{{Host: "app-a.example.com"}}, nil)
	require.ErrorIs(t, err, ErrConfig)

	err = p.Configure([]Route{{Host: "app-a.example.com", Target: "http://127.0.0.1:8000", Dir: "/tmp"}}, nil)
	require.ErrorIs(t, err, ErrConfig)

	err = p.Configure([]Route{{Host: "app-a.example.com", Target: "relative/path"}}, nil)
	require.ErrorIs(t, err, ErrConfig)

	err = p.Configure([]Route{{Host: ""}}, nil)
	require.ErrorIs(t, err, ErrConfig)
}

func TestConfigureSwapIsAtomic(t *testing.T) {
	a := newBackend(t, "backend-a")
	b := newBackend(t, "backend-b")

	p := New(time.Hour, "")
	require.NoError(t, p.Configure([]Route{{Host: "app.example.com", Target: a.URL}}, nil))

	ts := httptest.NewServer(p.Handler(false))
	defer ts.Close()

	done := make(chan struct{})
	failures := make(chan string, 64)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{}
			for {
				select {
				case <-done:
					return
				default:
				}
				req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
				if err != nil {
					failures <- err.Error()
					return
				}
				req.Host = "app.example.com"
				resp, err := client.Do(req)
				if err != nil {
					failures <- err.Error()
					return
				}
				got := body(t, resp)
				_ = resp.Body.Close()
				if resp.StatusCode != http.StatusOK || (got != "backend-a" && got != "backend-b") {
					select {
					case failures <- got:
					default:
					}
					return
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		target := a.URL
		if i%2 == 1 {
			target = b.URL
		}
		require.NoError(t, p.Configure([]Route{{Host: "app.example.com", Target: target}}, nil))
	}
	close(done)
	wg.Wait()
	close(failures)
	for f := range failures {
		t.Fatalf("request observed a torn table: %s", f)
	}
}
