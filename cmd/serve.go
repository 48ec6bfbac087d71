package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/pixcelsafe/pixcelsafe/internal/enrichment"
	"github.com/pixcelsafe/pixcelsafe/internal/handlers"
	"github.com/pixcelsafe/pixcelsafe/internal/storage"
	"github.com/spf13/cobra"
)

func newServeCmd(rt *appState) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the enrichment and catalog API server",
		Long: `Starts the HTTP API on the specified port.

Endpoints:
  POST   /generate-metadata   generate metadata for {imageId, apiKey}
  POST   /upload-images       store {images: [...]} in the server-side catalog
  GET    /images              list stored images
  DELETE /images/{id}         remove a stored image
  GET    /health              liveness probe`,
		Example: `  # Start server on default port 3001
  pixcelsafe serve

  # Start server on custom port with Gemini-backed generation
  ENRICHMENT_GENERATOR=gemini pixcelsafe serve --port 8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rt.cfg
			if port != "" {
				cfg.HTTP.Port = port
			}

			store := storage.New()
			service := enrichment.NewService(
				newGenerator(cfg.Enrichment),
				enrichment.WithModel(cfg.Enrichment.Model),
				enrichment.WithRecordStore(store),
			)
			handler := handlers.New(store, service, cfg.HTTP.MaxBodyBytes)

			addr := ":" + cfg.HTTP.Port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("PixcelSafe API server running", "addr", addr, "health", "http://localhost"+addr+"/health", "generator", cfg.Enrichment.Generator)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides PORT, default 3001)")

	return cmd
}
