package middleware_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jh125486/batchreview/pkg/contextlog"
	"github.com/jh125486/batchreview/pkg/middleware"
)

func TestRequestIDMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		headerSet bool
		headerVal string
	}{
		{name: "uses_existing_header", headerSet: true, headerVal: "test-id-123"},
		{name: "no_header_generates", headerSet: false, headerVal: ""},
		{name: "empty_header_generates", headerSet: true, headerVal: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.headerSet {
				req.Header.Set(middleware.RequestIDHeader, tt.headerVal)
			}

			var capturedID string
			h := middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				capturedID = middleware.RequestIDFrom(r.Context())
			}))

			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			respID := w.Header().Get(middleware.RequestIDHeader)
			if tt.headerSet && tt.headerVal != "" {
				require.Equal(t, tt.headerVal, respID)
				require.Equal(t, tt.headerVal, capturedID)
				return
			}
			_, err := uuid.Parse(respID)
			require.NoError(t, err)
			require.Equal(t, respID, capturedID)
		})
	}
}

func TestWithRequestID_TagsLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := contextlog.With(t.Context(), bufferLogger(&buf))
	ctx = middleware.WithRequestID(ctx, "rid-7")
	contextlog.From(ctx).InfoContext(ctx, "hello")

	assert.Equal(t, "rid-7", middleware.RequestIDFrom(ctx))
	assert.Contains(t, buf.String(), "request_id=rid-7")
	assert.Empty(t, middleware.RequestIDFrom(t.Context()))
}

func TestPropagateRequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		id   string
	}{
		{name: "forwards", id: "rid-42"},
		{name: "absent", id: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := t.Context()
			if tt.id != "" {
				ctx = middleware.WithRequestID(contextlog.With(ctx, contextlog.DiscardLogger()), tt.id)
			}
			var seen string
			next := connect.UnaryFunc(func(_ context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
				seen = req.Header().Get(middleware.RequestIDHeader)
				return connect.NewResponse(&struct{}{}), nil
			})

			_, err := middleware.PropagateRequestID()(next)(ctx, connect.NewRequest(&struct{}{}))
			require.NoError(t, err)
			assert.Equal(t, tt.id, seen)
		})
	}
}
