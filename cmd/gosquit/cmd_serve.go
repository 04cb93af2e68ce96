package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brunobiangulo/gosquit"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve generation, resolution and statistics over HTTP",
	Long: `Serve the engine over HTTP.

GOSQUIT_API_KEY enables bearer authentication on everything except /health
and /metrics. GOSQUIT_CORS_ORIGINS sets the allowed CORS origins.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
}

// newServer wires routes and the middleware chain:
// recovery -> cors -> auth -> logging -> mux.
func newServer(engine gosquit.Engine, log *zap.Logger, gatherer prometheus.Gatherer, apiKey, corsOrigins string) http.Handler {
	h := newHandler(engine, log)
	mux := http.NewServeMux()

	mux.HandleFunc("POST /generate", h.handleGenerate)
	mux.HandleFunc("POST /resolve", h.handleResolve)
	mux.HandleFunc("GET /stats", h.handleStats)
	mux.HandleFunc("GET /templates/{shape}", h.handleTemplates)
	mux.HandleFunc("GET /records", h.handleRecords)
	mux.HandleFunc("GET /runs", h.handleRuns)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	var handler http.Handler = mux
	handler = logMiddleware(log, handler)
	handler = authMiddleware(apiKey, handler)
	handler = corsMiddleware(corsOrigins, handler)
	handler = recoveryMiddleware(log, handler)
	return handler
}

func runServe(cmd *cobra.Command, args []string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	engine, err := openEngine(cmd, reg)
	if err != nil {
		return err
	}
	defer engine.Close()

	log := logger.Named("http")
	srv := &http.Server{
		Addr:         serveAddr,
		Handler:      newServer(engine, log, reg, os.Getenv("GOSQUIT_API_KEY"), os.Getenv("GOSQUIT_CORS_ORIGINS")),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // corpus runs can be long
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", serveAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}
