package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/neboloop/browserchat/internal/handler/browserchat"
	"github.com/neboloop/browserchat/internal/middleware"
	"github.com/neboloop/browserchat/internal/svc"
	"github.com/neboloop/browserchat/internal/websocket"
)

// APIPrefix is where every browser chat route is mounted.
const APIPrefix = "/api/browser-chat"

// ServerOptions holds optional behavior for the server
type ServerOptions struct {
	Quiet bool // Suppress per-request logs
}

// NewRouter builds the HTTP API on top of svcCtx.
func NewRouter(svcCtx *svc.ServiceContext, opts ServerOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	if !opts.Quiet {
		r.Use(middleware.RequestLogger(svcCtx.Logger))
	}
	r.Use(middleware.CORS())

	r.Route(APIPrefix, func(r chi.Router) {
		r.Get("/health", browserchat.HealthHandler(svcCtx))
		r.Post("/send", browserchat.SendHandler(svcCtx))
		r.Get("/agents", browserchat.ListAgentsHandler(svcCtx))
		r.Get("/sessions", browserchat.ListSessionsHandler(svcCtx))
		r.Delete("/sessions/{id}", browserchat.CloseSessionHandler(svcCtx))
		r.Get("/executions", browserchat.ListExecutionsHandler(svcCtx))
		r.Get("/executions/{id}", browserchat.GetExecutionHandler(svcCtx))
		r.Get("/events", websocket.Handler(svcCtx.Events, svcCtx.Logger))
	})
	return r
}

// Run serves the API until ctx is cancelled, then drains in-flight requests
// and closes every live session.
func Run(ctx context.Context, svcCtx *svc.ServiceContext, opts ...ServerOptions) error {
	var o ServerOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	addr := svcCtx.Config.Addr()

	if err := checkPortAvailable(addr); err != nil {
		return fmt.Errorf("address %s is already in use: %w", addr, err)
	}

	// No ReadTimeout/WriteTimeout: a send blocks for as long as the agent
	// takes to answer, and they would also cut hijacked websocket connections.
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(svcCtx, o),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		svcCtx.Logger.Info("server ready", "url", "http://"+addr+APIPrefix)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	svcCtx.Logger.Info("shutting down server gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	svcCtx.Sessions.Close("server stopped")
	return httpServer.Shutdown(shutdownCtx)
}

// checkPortAvailable checks if an address is available for binding
func checkPortAvailable(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}
