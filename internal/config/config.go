package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/lockline/hoxy/internal/log"
	"github.com/lockline/hoxy/pkg/hoxy"
	"gopkg.in/yaml.v3"
)

var cfg Config
var once sync.Once

type config struct {
	Routes     string `env:"ROUTES"`
	RoutesFile string `env:"ROUTES_FILE"`
	Certs      string `env:"CERTS"`

	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	HTTPSAddr   string `env:"HTTPS_ADDR"`
	MetricsAddr string `env:"METRICS_ADDR"`

	CertReloadInterval time.Duration `env:"CERT_RELOAD_INTERVAL" envDefault:"12h"`

	Gzip bool `env:"GZIP" envDefault:"true"`

	CSP        string        `env:"CSP"`
	HSTSMaxAge time.Duration `env:"HSTS_MAX_AGE"`
	NoCache    bool          `env:"NO_CACHE"`

	JwksUrl         string   `env:"JWKS_URL"`
	JwtProtectHosts []string `env:"JWT_PROTECT_HOSTS" envSeparator:","`

	BasicAuthHash  string   `env:"BASIC_AUTH_HASH"`
	BasicAuthHosts []string `env:"BASIC_AUTH_HOSTS" envSeparator:","`
}

func Get() Config {
	once.Do(func() {
		var c config
		err := env.Parse(&c)
		if err != nil {
			log.New().WithError(err).Fatal("error parsing env")
		}

		var routes []hoxy.Route
		var certs []hoxy.CertBinding
		if strings.TrimSpace(c.RoutesFile) != "" {
			routes, certs, err = LoadFile(strings.TrimSpace(c.RoutesFile))
			if err != nil {
				log.New().WithError(err).Fatal("error loading ROUTES_FILE")
			}
		} else {
			if strings.TrimSpace(c.Routes) != "" {
				routes, err = parseRoutes(c.Routes)
				if err != nil {
					log.New().WithError(err).Fatal("error parsing ROUTES")
				}
			}
			if strings.TrimSpace(c.Certs) != "" {
				certs, err = parseCerts(c.Certs)
				if err != nil {
					log.New().WithError(err).Fatal("error parsing CERTS")
				}
			}
		}

		if len(certs) > 0 && strings.TrimSpace(c.HTTPSAddr) == "" {
			log.New().Fatal("error: certificate bindings configured without HTTPS_ADDR")
		}

		cfg = Config{
			Routes:             routes,
			Certs:              certs,
			RoutesFile:         strings.TrimSpace(c.RoutesFile),
			HTTPAddr:           strings.TrimSpace(c.HTTPAddr),
			HTTPSAddr:          strings.TrimSpace(c.HTTPSAddr),
			MetricsAddr:        strings.TrimSpace(c.MetricsAddr),
			CertReloadInterval: c.CertReloadInterval,
			Gzip:               c.Gzip,
			CSP:                strings.TrimSpace(c.CSP),
			HSTSMaxAge:         c.HSTSMaxAge,
			NoCache:            c.NoCache,
			JwksUrl:            strings.TrimSpace(c.JwksUrl),
			JwtProtectHosts:    trimAll(c.JwtProtectHosts),
			BasicAuthHash:      strings.TrimSpace(c.BasicAuthHash),
			BasicAuthHosts:     trimAll(c.BasicAuthHosts),
		}
	})
	return cfg
}

type Config struct {
	Routes             []hoxy.Route
	Certs              []hoxy.CertBinding
	RoutesFile         string
	HTTPAddr           string
	HTTPSAddr          string
	MetricsAddr        string
	CertReloadInterval time.Duration
	Gzip               bool
	CSP                string
	HSTSMaxAge         time.Duration
	NoCache            bool
	JwksUrl            string
	JwtProtectHosts    []string
	BasicAuthHash      string
	BasicAuthHosts     []string
}

// RedirectPort extracts the port of the encrypted listener, used to build
// plaintext-to-encrypted redirect urls.
func (c Config) RedirectPort() string {
	if c.HTTPSAddr == "" {
		return ""
	}
	_, port, err := net.SplitHostPort(c.HTTPSAddr)
	if err != nil {
		return ""
	}
	return port
}

type fileConfig struct {
	Routes       []hoxy.Route       `yaml:"routes"`
	Certificates []hoxy.CertBinding `yaml:"certificates"`
}

// LoadFile reads routes and certificate bindings from a yaml document. Main
// calls it again on SIGHUP to pick up changes.
func LoadFile(path string) ([]hoxy.Route, []hoxy.CertBinding, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var fc fileConfig
	err = yaml.Unmarshal(b, &fc)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return fc.Routes, fc.Certificates, nil
}

// parseRoutes accepts either a json array of routes or a line format, one
// route per line:
//
//	proxy <host> <target> [redirect]
//	static <host> <dir>
func parseRoutes(routesString string) ([]hoxy.Route, error) {
	var routes []hoxy.Route
	err := json.Unmarshal([]byte(routesString), &routes)
	if err == nil && len(routes) > 0 {
		return routes, nil
	}
	for _, l := range strings.Split(routesString, "\n") {
		if strings.TrimSpace(l) == "" {
			continue
		}
		parts := strings.Fields(l)
		if len(parts) < 3 {
			return nil, errors.New("at least 3 tokens per line required")
		}
		switch strings.ToLower(parts[0]) {
		case "proxy":
			r := hoxy.Route{Host: parts[1], Target: parts[2]}
			if len(parts) == 4 && strings.EqualFold(parts[3], "redirect") {
				r.RedirectPlain = true
			} else if len(parts) > 3 {
				return nil, fmt.Errorf("unexpected token %q after proxy route", parts[3])
			}
			routes = append(routes, r)
		case "static":
			if len(parts) != 3 {
				return nil, errors.New("static route takes exactly a host and a dir")
			}
			routes = append(routes, hoxy.Route{Host: parts[1], Dir: parts[2]})
		default:
			return nil, errors.New("route kind required (proxy/static)")
		}
	}
	return routes, nil
}

// parseCerts reads one binding per line: <host> <cert file> <key file>
func parseCerts(certsString string) ([]hoxy.CertBinding, error) {
	var certs []hoxy.CertBinding
	for _, l := range strings.Split(certsString, "\n") {
		if strings.TrimSpace(l) == "" {
			continue
		}
		parts := strings.Fields(l)
		if len(parts) != 3 {
			return nil, errors.New("3 tokens per cert line required")
		}
		certs = append(certs, hoxy.CertBinding{Host: parts[0], CertFile: parts[1], KeyFile: parts[2]})
	}
	return certs, nil
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
