package hoxy

import "errors"

var (
	// ErrConfig marks an invalid or conflicting routing table. Configure
	// never swaps in a table that produced it.
	ErrConfig = errors.New("invalid proxy configuration")

	// ErrNoRoute means the requested virtual host has no route. Answered
	// per request, never forwarded anywhere.
	ErrNoRoute = errors.New("no route for host")

	// ErrTLSConfig means a handshake asked for a host without a
	// certificate binding.
	ErrTLSConfig = errors.New("no certificate for host")

	// ErrBackendUnavailable means the backend was unreachable or broke
	// mid-stream. Not retried.
	ErrBackendUnavailable = errors.New("backend unavailable")
)
