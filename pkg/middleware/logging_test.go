package middleware_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jh125486/batchreview/pkg/contextlog"
	"github.com/jh125486/batchreview/pkg/middleware"
)

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		method            string
		path              string
		statusCode        int
		realIPContext     string
		remoteAddr        string
		expectLogContains []string
	}{
		{
			name:              "logs_request_details",
			method:            http.MethodGet,
			path:              "/review.v1.ReviewService/ListTalents",
			statusCode:        http.StatusOK,
			realIPContext:     "192.168.1.100",
			remoteAddr:        "127.0.0.1:54321",
			expectLogContains: []string{"GET", "/review.v1.ReviewService/ListTalents", "status=200", "192.168.1.100"},
		},
		{
			name:              "logs_error_status",
			method:            http.MethodPost,
			path:              "/review.v1.ReviewService/SubmitGrade",
			statusCode:        http.StatusNotFound,
			realIPContext:     "172.16.0.1",
			remoteAddr:        "127.0.0.1:54323",
			expectLogContains: []string{"POST", "status=404", "172.16.0.1"},
		},
		{
			name:              "uses_remote_addr_when_no_real_ip",
			method:            http.MethodGet,
			path:              "/health",
			statusCode:        http.StatusOK,
			remoteAddr:        "192.168.1.200:12345",
			expectLogContains: []string{"/health", "192.168.1.200:12345"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			req.RemoteAddr = tt.remoteAddr
			ctx := contextlog.With(t.Context(), bufferLogger(&buf))
			if tt.realIPContext != "" {
				ctx = context.WithValue(ctx, middleware.RealIPKey, tt.realIPContext)
			}
			req = req.WithContext(ctx)

			rr := httptest.NewRecorder()
			middleware.Logging(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = io.WriteString(w, "ok")
			})).ServeHTTP(rr, req)

			assert.Equal(t, tt.statusCode, rr.Code)
			for _, s := range tt.expectLogContains {
				assert.Contains(t, buf.String(), s)
			}
		})
	}
}

func TestResponseWriterCapturesStatus(t *testing.T) {
	t.Parallel()

	rw := &middleware.ResponseWriter{ResponseWriter: httptest.NewRecorder(), Status: http.StatusOK}
	rw.WriteHeader(http.StatusNotFound)
	assert.Equal(t, http.StatusNotFound, rw.Status)
}

func TestLogRPCErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		wantLevel string
		wantCode  string
	}{
		{name: "success", err: nil},
		{name: "not_found", err: connect.NewError(connect.CodeNotFound, errors.New("no such batch")), wantLevel: "WARN", wantCode: "not_found"},
		{name: "internal", err: connect.NewError(connect.CodeInternal, errors.New("db down")), wantLevel: "ERROR", wantCode: "internal"},
		{name: "plain_error", err: errors.New("boom"), wantLevel: "ERROR", wantCode: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			ctx := contextlog.With(t.Context(), bufferLogger(&buf))
			next := connect.UnaryFunc(func(context.Context, connect.AnyRequest) (connect.AnyResponse, error) {
				if tt.err != nil {
					return nil, tt.err
				}
				return connect.NewResponse(&struct{}{}), nil
			})

			_, err := middleware.LogRPCErrors()(next)(ctx, connect.NewRequest(&struct{}{}))
			if tt.err == nil {
				require.NoError(t, err)
				assert.Empty(t, buf.String())
				return
			}
			require.Error(t, err)
			assert.Contains(t, buf.String(), "level="+tt.wantLevel)
			assert.Contains(t, buf.String(), "code="+tt.wantCode)
		})
	}
}
