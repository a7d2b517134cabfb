package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/tomasen/realip"
)

type contextKey string

// RealIPKey is the context key for storing the real client IP address
const RealIPKey contextKey = "real-ip"

// StoreRealIP extracts the real client IP and stores it in request context.
// It uses the tomasen/realip library to handle X-Forwarded-For and other proxy headers.
func StoreRealIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// realip never returns empty
		ctx := context.WithValue(r.Context(), RealIPKey, realip.RealIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IPExtractable interface for types that can provide IP extraction methods
type IPExtractable interface {
	Header() http.Header
	Peer() connect.Peer
}

const (
	UnknownIP            = "unknown"
	XFFHeader            = "X-Forwarded-For"
	XRealIPHeader        = "X-Real-IP"
	CFConnectingIPHeader = "CF-Connecting-IP"
)

// ClientIP resolves the caller's address for audit logs: the StoreRealIP
// context value, then proxy headers, then the connect peer.
func ClientIP(ctx context.Context, req IPExtractable) string {
	// Set by StoreRealIP.
	if realIP, ok := ctx.Value(RealIPKey).(string); ok && realIP != "" && realIP != UnknownIP {
		return realIP
	}

	headers := req.Header()
	if xff := headers.Get(XFFHeader); xff != "" {
		if ips := strings.Split(xff, ","); len(ips) > 0 {
			if ip := strings.TrimSpace(ips[0]); ip != "" && ip != UnknownIP {
				return ip
			}
		}
	}
	if ip := headers.Get(XRealIPHeader); ip != "" && ip != UnknownIP {
		return ip
	}
	if ip := headers.Get(CFConnectingIPHeader); ip != "" && ip != UnknownIP {
		return ip
	}

	peer := req.Peer()
	if peer.Addr != "" {
		if ip, _, err := net.SplitHostPort(peer.Addr); err == nil {
			return ip
		}
		return peer.Addr
	}

	return UnknownIP
}
