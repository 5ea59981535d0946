package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Boptone/boptone-ai-sub008/internal/service"
	"github.com/Boptone/boptone-ai-sub008/internal/telemetry"
)

// Server encapsulates the HTTP server functionality
type Server struct {
	services *service.Services
	port     string
	server   *http.Server
}

// NewServer creates a new API server with the provided services
func NewServer(svc *service.Services, port string) *Server {
	if port == "" {
		port = "8080"
	}

	return &Server{
		services: svc,
		port:     port,
	}
}

// Routes builds the request mux. Exposed separately so tests can exercise
// handlers without binding a listener.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /media", s.handleCreateMedia)
	mux.HandleFunc("POST /media/{id}/process", s.handleEnqueue)
	mux.HandleFunc("GET /media/{id}/status", s.handleStatus)
	mux.HandleFunc("DELETE /media/{id}", s.handleDelete)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	return mux
}

// Start initializes routes and starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         ":" + s.port,
		Handler:      s.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to capture server errors
	errCh := make(chan error, 1)

	go func() {
		telemetry.Logger.Info("Starting server", zap.String("port", s.port))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		telemetry.Logger.Info("Shutting down server gracefully")
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// pathID parses the {id} segment; writes a 400 and returns false on garbage.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid media item id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// requesterID parses the authenticated account from the X-Owner-ID header set
// by the upstream auth proxy.
func requesterID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.Header.Get("X-Owner-ID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
