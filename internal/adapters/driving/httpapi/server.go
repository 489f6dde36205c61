// Package httpapi serves the document chat API over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// DefaultMaxUploadBytes limits the size of an uploaded document.
const DefaultMaxUploadBytes = 32 << 20

// Services are the driving ports the API exposes.
// Chat and Suggestions can be nil; the matching endpoints then report
// the feature as unavailable or fall back to an empty list.
type Services struct {
	Ingest      driving.IngestService
	Chat        driving.ChatService
	Suggestions driving.SuggestionService
}

// Options configures the server.
type Options struct {
	// Addr is the listen address, e.g. ":8000". Port 0 picks a free port.
	Addr string

	// MaxUploadBytes limits request bodies on /upload.
	MaxUploadBytes int64

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// Server is the HTTP API server.
type Server struct {
	services Services
	opts     Options
	handler  http.Handler

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	errChan  chan error
}

// NewServer creates a server. Call Start or Serve to listen.
func NewServer(services Services, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = domain.DefaultServerAddr
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}

	s := &Server{
		services: services,
		opts:     opts,
		errChan:  make(chan error, 1),
	}
	s.handler = s.routes()
	return s
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// routes registers every endpoint, also under the /api prefix.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	for _, prefix := range []string{"", "/api"} {
		mux.HandleFunc("POST "+prefix+"/upload", s.handleUpload)
		mux.HandleFunc("POST "+prefix+"/chat", s.handleChat)
		mux.HandleFunc("GET "+prefix+"/status", s.handleStatus)
		mux.HandleFunc("GET "+prefix+"/suggested-prompts", s.handleSuggestions)
		mux.HandleFunc("GET "+prefix+"/health", s.handleHealth)
		mux.HandleFunc("POST "+prefix+"/reset", s.handleReset)
	}
	mux.HandleFunc("GET /{$}", s.handleRoot)
	return logRequests(mux)
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.New("server already started")
	}

	listener, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.errChan <- err:
			default:
			}
		}
	}()

	logger.Info("API listening on %s", listener.Addr())
	return nil
}

// Serve starts the server and blocks until ctx is cancelled or the
// server fails. Cancellation triggers a graceful shutdown.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		logger.Info("Shutting down API server")
		return s.Stop()
	case err := <-s.errChan:
		_ = s.Stop()
		return fmt.Errorf("serve: %w", err)
	}
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	err := s.server.Shutdown(ctx)
	s.server = nil
	s.listener = nil
	return err
}

// Addr returns the address the server listens on, or the configured
// address before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.opts.Addr
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("%s %s -> %d in %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}
