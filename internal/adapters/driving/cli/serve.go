package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdesk/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// ServeConfig holds what the serve command needs beyond the core services.
type ServeConfig struct {
	Addr       string
	AdminToken string
	Readiness  driving.ReadinessProbe

	// Background tasks run for the lifetime of the server, e.g. the
	// readiness warm-up and the registry file watcher.
	Background []func(ctx context.Context) error
}

var (
	serveConfig *ServeConfig
	serveAddr   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API for chat, retrieval and corpus administration.

Public routes:
  GET  /healthz
  POST /api/chat, /api/retrieve, /api/transcribe, /api/feedback

Admin routes (Authorization: Bearer <server.admin_token>):
  GET  /api/admin/logs, /api/admin/logs/export
  POST /api/admin/train, /api/admin/activate, /api/admin/delete-version
  GET  /api/admin/train/info?model=..., /api/admin/train/history

The admin routes are disabled while server.admin_token is empty.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// SetServeConfig sets the configuration for the serve command.
func SetServeConfig(cfg *ServeConfig) {
	serveConfig = cfg
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if chatService == nil || retrievalService == nil || trainingService == nil {
		return fmt.Errorf("serve: %w", errNotConfigured)
	}

	cfg := ServeConfig{Addr: ":8080"}
	if serveConfig != nil {
		cfg = *serveConfig
	}
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}
	if cfg.AdminToken == "" {
		logger.Warn("server.admin_token is empty; admin routes are disabled")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, task := range cfg.Background {
		go func() {
			if err := task(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background task stopped: %v", err)
			}
		}()
	}

	server := httpapi.NewServer(httpapi.Config{
		Addr:       cfg.Addr,
		AdminToken: cfg.AdminToken,
	}, httpapi.Services{
		Chat:      chatService,
		Retrieval: retrievalService,
		Training:  trainingService,
		Readiness: cfg.Readiness,
	})
	return server.ListenAndServe(ctx)
}
