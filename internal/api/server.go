// Package api serves the clipboard history over a local JSON HTTP API for
// the browser UI.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mindmorass/clipdeck/internal/clipboard"
	"github.com/mindmorass/clipdeck/internal/item"
	"github.com/mindmorass/clipdeck/internal/library"
	"github.com/mindmorass/clipdeck/internal/store"
)

// DefaultAddr is where the API listens unless configured otherwise
const DefaultAddr = "127.0.0.1:7777"

// maxBodyBytes bounds request bodies; images arrive base64 encoded
const maxBodyBytes = 32 << 20

// writeSlack is added to the provider timeout when bounding responses
const writeSlack = 30 * time.Second

// Copier writes items back to the system clipboard
type Copier interface {
	CopyToClipboard(it *item.ClipboardItem) error
	CopyText(text string) error
}

// Options configures the server
type Options struct {
	Addr   string
	Logger *zap.Logger

	// Copier enables the copy endpoints when set
	Copier Copier

	// RequestTimeout bounds augmentation calls; zero means unbounded
	RequestTimeout time.Duration
}

// Server handles HTTP requests for the clipboard API
type Server struct {
	svc    *library.Service
	copier Copier
	logger *zap.Logger
	addr   string

	writeTimeout time.Duration

	handler http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

// New creates a server
func New(svc *library.Service, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		addr = DefaultAddr
	}
	s := &Server{
		svc:    svc,
		copier: opts.Copier,
		logger: logger.With(zap.String("component", "api-server")),
		addr:   addr,

		writeTimeout: writeTimeoutFor(opts.RequestTimeout),
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.health)

	// Items
	mux.HandleFunc("GET /items", s.listItems)
	mux.HandleFunc("POST /items", s.addItem)
	mux.HandleFunc("GET /items/{id}", s.getItem)
	mux.HandleFunc("PATCH /items/{id}", s.updateItem)
	mux.HandleFunc("DELETE /items/{id}", s.deleteItem)
	mux.HandleFunc("PUT /items/{id}/tags", s.setTags)
	mux.HandleFunc("POST /items/{id}/enrich", s.enrichItem)
	mux.HandleFunc("POST /items/{id}/translate", s.translateItem)
	mux.HandleFunc("POST /items/{id}/format", s.formatItem)
	mux.HandleFunc("POST /items/{id}/copy", s.copyItem)

	// Tags
	mux.HandleFunc("GET /tags", s.listTags)

	// Templates
	mux.HandleFunc("GET /templates", s.listTemplates)
	mux.HandleFunc("POST /templates", s.addTemplate)
	mux.HandleFunc("DELETE /templates/{id}", s.deleteTemplate)
	mux.HandleFunc("POST /templates/{id}/copy", s.copyTemplate)

	// Stateless augmentation
	mux.HandleFunc("POST /augment/ocr", s.augmentOCR)
	mux.HandleFunc("POST /augment/analyze", s.augmentAnalyze)
	mux.HandleFunc("POST /augment/format", s.augmentFormat)
	mux.HandleFunc("POST /augment/translate", s.augmentTranslate)

	return withCORS(s.withLogging(mux))
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the listen address, resolved once the server has started
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Start listens and serves in the background until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", zap.String("address", listener.Addr().String()))
	return nil
}

// writeTimeoutFor leaves room for the slowest augmentation call
func writeTimeoutFor(requestTimeout time.Duration) time.Duration {
	if requestTimeout <= 0 {
		return 0
	}
	return requestTimeout + writeSlack
}

// Stop shuts the server down
func (s *Server) Stop() {
	s.mu.Lock()
	server := s.server
	s.mu.Unlock()
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

// withCORS lets the browser UI call the API from another origin
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) withLogging(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		h.ServeHTTP(rec, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeFailure maps service errors to HTTP status codes
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrExists):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, item.ErrUnknownType),
		errors.Is(err, library.ErrEmptyContent),
		errors.Is(err, library.ErrEmptyName):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, library.ErrNotEnrichable),
		errors.Is(err, library.ErrNothingToTranslate),
		errors.Is(err, library.ErrNotFormattable):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, clipboard.ErrUnsupported):
		s.writeError(w, http.StatusNotImplemented, err.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

type healthResponse struct {
	Status     string `json:"status"`
	Provider   string `json:"provider,omitempty"`
	Configured bool   `json:"aiConfigured"`
	Items      int    `json:"items"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	count, err := s.svc.Store().CountItems(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	ai := s.svc.Augment()
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:     "ok",
		Provider:   ai.Provider(),
		Configured: ai.Configured(),
		Items:      count,
	})
}
