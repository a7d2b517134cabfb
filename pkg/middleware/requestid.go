package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/jh125486/batchreview/pkg/contextlog"
)

const RequestIDHeader = "X-Request-ID"

// RequestIDKey is the context key for storing the request ID
const RequestIDKey contextKey = "request-id"

// RequestID generates a unique request ID and adds it to context and logger.
// It checks for an existing X-Request-ID header from upstream proxies, or generates a new one.
// The request ID is added to the response headers and enriched in the logger for log correlation.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := WithRequestID(r.Context(), requestID)
		w.Header().Set(RequestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithRequestID stores the ID in ctx and tags the context logger with it.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	return contextlog.With(ctx, contextlog.From(ctx).With(slog.String("request_id", requestID)))
}

// RequestIDFrom returns the request ID stored in ctx, if any.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// PropagateRequestID is a client interceptor that forwards the context's
// request ID so server logs correlate with the caller's.
func PropagateRequestID() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if id := RequestIDFrom(ctx); id != "" {
				req.Header().Set(RequestIDHeader, id)
			}
			return next(ctx, req)
		}
	}
}
