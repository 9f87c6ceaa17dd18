// Package server exposes the operational HTTP surface: health, status, and
// Prometheus metrics. It carries no bot functionality of its own.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mkobayashi/stream-herald/telemetry"
)

// StatusFunc reports the bot's current state for the /status endpoint.
type StatusFunc func() map[string]any

// NewMux returns the HTTP handler with all routes.
func NewMux(status StatusFunc) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		st := map[string]any{"time": time.Now().UTC()}
		if status != nil {
			for k, v := range status() {
				st[k] = v
			}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(st); err != nil {
			slog.Error("failed to encode status", slog.Any("err", err))
		}
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := telemetry.StartSpan(r.Context(), "http-server", r.Method+" "+r.URL.Path)
		defer span.End()
		mux.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Start runs the HTTP server and shuts down gracefully on context
// cancellation.
func Start(ctx context.Context, addr string, status StatusFunc) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      NewMux(status),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err))
		}
	}()

	slog.Info("http server listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("http server error", slog.Any("err", err))
		return err
	}
	return nil
}
