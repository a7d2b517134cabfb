package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"

	"github.com/jh125486/batchreview/pkg/contextlog"
)

// ResponseWriter wraps http.ResponseWriter to capture the status code
type ResponseWriter struct {
	http.ResponseWriter
	Status int
}

// WriteHeader captures the status code and writes it to the underlying ResponseWriter
func (rw *ResponseWriter) WriteHeader(code int) {
	rw.Status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Logging logs HTTP requests with method, path, status, duration, and client IP.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()

		rw := &ResponseWriter{ResponseWriter: w, Status: http.StatusOK}
		next.ServeHTTP(rw, r)

		clientIP := r.RemoteAddr
		if realIP, ok := ctx.Value(RealIPKey).(string); ok && realIP != "" {
			clientIP = realIP
		}

		contextlog.From(ctx).InfoContext(ctx, "HTTP request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rw.Status),
			slog.Duration("duration", time.Since(start)),
			slog.String("client_ip", clientIP),
		)
	})
}

// LogRPCErrors is a handler interceptor that logs the connect code of every
// failed procedure. Internal errors log at error level, the rest at warn.
func LogRPCErrors() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			resp, err := next(ctx, req)
			if err == nil {
				return resp, nil
			}

			code := connect.CodeOf(err)
			level := slog.LevelWarn
			if code == connect.CodeInternal || code == connect.CodeUnknown {
				level = slog.LevelError
			}
			var cerr *connect.Error
			msg := err.Error()
			if errors.As(err, &cerr) {
				msg = cerr.Message()
			}
			contextlog.From(ctx).Log(ctx, level, "RPC failed",
				slog.String("procedure", req.Spec().Procedure),
				slog.String("code", code.String()),
				slog.String("message", msg),
			)
			return resp, err
		}
	}
}
