// Package server hosts the review.v1.ReviewService over connect.
package server

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"net/http"
	"time"

	"connectrpc.com/connect"

	"github.com/jh125486/batchreview/pkg/api"
	"github.com/jh125486/batchreview/pkg/contextlog"
	mw "github.com/jh125486/batchreview/pkg/middleware"
	"github.com/jh125486/batchreview/pkg/openai"
	"github.com/jh125486/batchreview/pkg/storage"
)

const (
	contentTypeHeader = "Content-Type"
	jsonContentType   = "application/json"
	shutdownTimeout   = 5 * time.Second
)

// Config contains the configuration required to start the server.
type Config struct {
	Port    string
	Version string
	Storage storage.Storage
	// Remarker drafts remarks for DraftRemarks. Nil disables the procedure.
	Remarker openai.Remarker
}

// tlsConfig configures TLS 1.2 with ciphers compatible with corporate proxies.
func tlsConfig() *tls.Config {
	//#nosec:G402 // This is needed to get around proxies that don't support TLS 1.3
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
		},
	}
}

// Handler builds the routed handler: the review service and /health, both
// behind the standard middleware stack.
func Handler(cfg Config) http.Handler {
	stack := mw.Server(cfg.Version)

	path, svc := api.NewReviewServiceHandler(
		NewReviewServer(cfg.Storage, cfg.Remarker),
		connect.WithInterceptors(mw.LogRPCErrors()),
	)

	mux := http.NewServeMux()
	mux.Handle(path, stack(svc))
	mux.Handle("/health", stack(http.HandlerFunc(HealthHandler)))
	return mux
}

// HealthHandler reports liveness for load balancers and monitoring.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set(contentTypeHeader, jsonContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

// Start runs the connect HTTP server on the configured port until ctx is
// cancelled or the listener fails. Cancellation triggers a graceful shutdown.
func Start(ctx context.Context, cfg Config) error {
	contextlog.From(ctx).InfoContext(ctx, "Server will start on port", slog.String("port", cfg.Port))
	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "tcp", ":"+cfg.Port)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           Handler(cfg),
		ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
		TLSConfig:         tlsConfig(),
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	contextlog.From(ctx).InfoContext(ctx, "Connect HTTP server listening",
		slog.String("addr", lis.Addr().String()),
		slog.Bool("remarks_enabled", cfg.Remarker != nil),
	)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(lis)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		// The original context is already cancelled.
		shutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
		return ctx.Err()
	}
}
