package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/jh125486/batchreview/pkg/contextlog"
)

// VersionHeader carries the server build version on every response.
const VersionHeader = "X-Version"

// VersionMiddleware returns a middleware that adds the X-Version header to all responses.
// This allows clients to detect the server version and warn if there's a mismatch.
func VersionMiddleware(version string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(VersionHeader, version)
			next.ServeHTTP(w, r)
		})
	}
}

// WarnVersionMismatch is a client interceptor that logs once per response
// when the server reports a version other than local. Development builds
// never warn.
func WarnVersionMismatch(local string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			resp, err := next(ctx, req)
			if err != nil || resp == nil {
				return resp, err
			}
			remote := resp.Header().Get(VersionHeader)
			if remote != "" && remote != local && local != devVersion && remote != devVersion {
				contextlog.From(ctx).WarnContext(ctx, "Server version differs from client",
					slog.String("client", local),
					slog.String("server", remote),
					slog.String("procedure", req.Spec().Procedure),
				)
			}
			return resp, err
		}
	}
}

const devVersion = "dev"
