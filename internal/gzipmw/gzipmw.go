package gzipmw

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

// Middleware transparently gzips responses for clients that accept it.
func Middleware(next http.Handler) http.Handler {
	return gzhttp.GzipHandler(next)
}
