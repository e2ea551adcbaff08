package app

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"
)

// Handler serves the diagnostics status payload and Prometheus metrics
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /diagnostics/status", a.handleStatus)
	mux.Handle("GET /metrics", a.metrics.Handler())
	return mux
}

func (a *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	report := a.reporter.Status(r.Context())

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		a.logger.Warn("Failed to write status response", "error", err)
	}
}

// startServer binds the listen address synchronously so a bad address fails Run
func (a *App) startServer() error {
	addr := a.cfg.Diagnostics.ListenAddr
	if addr == "" {
		return nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	a.server = &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Diagnostics server stopped", "error", err)
		}
	}()

	a.logger.Info("Diagnostics server listening", "addr", ln.Addr().String())
	return nil
}
