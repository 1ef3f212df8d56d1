// Package httpapi exposes the chat, retrieval and corpus administration
// services over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// Default limits.
const (
	DefaultMaxUploadBytes = 256 << 20
	DefaultMaxAudioBytes  = 32 << 20
	DefaultMaxJSONBytes   = 1 << 20
	shutdownTimeout       = 10 * time.Second
)

// Services groups the core services the API drives.
type Services struct {
	Chat      driving.ChatService
	Retrieval driving.RetrievalService
	Training  driving.TrainingService
	Readiness driving.ReadinessProbe
}

// Config holds server options.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// AdminToken guards /api/admin. Empty disables every admin route.
	AdminToken string

	// MaxUploadBytes bounds a training upload (default: 256 MiB).
	MaxUploadBytes int64

	// MaxAudioBytes bounds a transcription upload (default: 32 MiB).
	MaxAudioBytes int64

	// MaxJSONBytes bounds a JSON request body (default: 1 MiB).
	MaxJSONBytes int64

	// AllowedOrigin is the CORS origin header value (default: "*").
	AllowedOrigin string
}

// Server is the HTTP front end.
type Server struct {
	cfg      Config
	services Services
	validate *validator.Validate
	router   *mux.Router
}

// NewServer creates a server and registers its routes.
func NewServer(cfg Config, services Services) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.MaxAudioBytes <= 0 {
		cfg.MaxAudioBytes = DefaultMaxAudioBytes
	}
	if cfg.MaxJSONBytes <= 0 {
		cfg.MaxJSONBytes = DefaultMaxJSONBytes
	}
	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = "*"
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	s := &Server{
		cfg:      cfg,
		services: services,
		validate: validate,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(loggingMiddleware)
	r.Use(corsMiddleware(s.cfg.AllowedOrigin))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/retrieve", s.handleRetrieve).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/transcribe", s.handleTranscribe).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/feedback", s.handleFeedback).Methods(http.MethodPost, http.MethodOptions)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(s.adminMiddleware)
	admin.HandleFunc("/logs", s.handleLogs).Methods(http.MethodGet)
	admin.HandleFunc("/logs/export", s.handleExport).Methods(http.MethodGet)
	admin.HandleFunc("/train", s.handleTrain).Methods(http.MethodPost, http.MethodOptions)
	admin.HandleFunc("/train/info", s.handleTrainInfo).Methods(http.MethodGet)
	admin.HandleFunc("/train/history", s.handleHistory).Methods(http.MethodGet)
	admin.HandleFunc("/activate", s.handleActivate).Methods(http.MethodPost, http.MethodOptions)
	admin.HandleFunc("/delete-version", s.handleDeleteVersion).Methods(http.MethodPost, http.MethodOptions)

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("HTTP API shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	}
}
