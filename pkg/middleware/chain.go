package middleware

import "net/http"

// Chain wraps h so that the first middleware runs outermost.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Server is the standard stack for every route:
// request ID -> real IP -> logging -> version header.
func Server(version string) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return Chain(h, RequestID, StoreRealIP, Logging, VersionMiddleware(version))
	}
}
