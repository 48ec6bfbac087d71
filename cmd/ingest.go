package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/pixcelsafe/pixcelsafe/internal/enrichment"
	"github.com/pixcelsafe/pixcelsafe/internal/export"
	"github.com/pixcelsafe/pixcelsafe/internal/images"
	"github.com/pixcelsafe/pixcelsafe/internal/models"
	"github.com/pixcelsafe/pixcelsafe/internal/orchestrator"
	"github.com/pixcelsafe/pixcelsafe/internal/stats"
	"github.com/pixcelsafe/pixcelsafe/internal/storage"
	"github.com/pixcelsafe/pixcelsafe/internal/validation"
	"github.com/spf13/cobra"
)

func newIngestCmd(rt *appState) *cobra.Command {
	var (
		enrich     bool
		serviceURL string
		provider   string
		apiKey     string
		exportPath string
		search     string
	)

	cmd := &cobra.Command{
		Use:   "ingest [files or URLs...]",
		Short: "Upload images into a catalog and enrich them",
		Long: `Validates the given images (image types only, up to 50MB each, at most 50
per batch), adds them to a catalog and requests metadata for each one.

Enrichment runs in-process unless --service-url (or ENRICHMENT_SERVICE_URL)
points at a running "pixcelsafe serve".`,
		Example: `  # Ingest and enrich two local files
  GEMINI_API_KEY=... pixcelsafe ingest beach.jpg sunset.png

  # Use a remote enrichment service and export the result
  pixcelsafe ingest ./photos/*.jpg --service-url http://localhost:3001 --export catalog.yaml

  # Ingest without enrichment
  pixcelsafe ingest https://example.com/photo.jpg --enrich=false`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rt.cfg
			if serviceURL != "" {
				cfg.Enrichment.ServiceURL = serviceURL
			}
			if provider != "" {
				cfg.Enrichment.Provider = provider
				if err := cfg.Validate(); err != nil {
					return fmt.Errorf("config error: %w", err)
				}
			}
			creds := cfg.Credentials()
			if apiKey != "" {
				creds[cfg.Enrichment.Provider] = apiKey
			}

			catalog := storage.New()
			notifier := orchestrator.LogNotifier{}

			var transport enrichment.Transport
			if cfg.Enrichment.ServiceURL != "" {
				transport = enrichment.NewHTTPTransport(cfg.Enrichment.ServiceURL, nil)
			} else {
				transport = enrichment.NewService(
					newGenerator(cfg.Enrichment),
					enrichment.WithModel(cfg.Enrichment.Model),
					enrichment.WithImageLookup(catalog),
				)
			}

			client := enrichment.NewClient(catalog, transport,
				enrichment.WithProvider(cfg.Enrichment.Provider),
				enrichment.WithTimeout(cfg.Enrichment.Timeout),
				enrichment.WithNotifier(notifier.Notify),
			)
			orch := orchestrator.New(catalog, validation.New(), client, notifier, creds)
			orch.OnRender(func(s stats.Statistics) {
				slog.Debug("Catalog changed", "total", s.TotalImages, "enriched", s.WithMetadata, "processing", s.Processing)
			})

			ctx := cmd.Context()
			candidates := images.NewFetcher().Candidates(ctx, args)
			report := orch.Upload(candidates)

			out := cmd.OutOrStdout()
			for _, r := range report.Rejections {
				fmt.Fprintf(out, "rejected  %s\n", r.Message())
			}

			if enrich {
				requestAll(ctx, orch, report.Inserted)
				waitCtx := ctx
				if cfg.Enrichment.Timeout > 0 {
					var cancel context.CancelFunc
					waitCtx, cancel = context.WithTimeout(ctx, cfg.Enrichment.Timeout+5*time.Second)
					defer cancel()
				}
				if err := orch.Wait(waitCtx); err != nil {
					return fmt.Errorf("waiting for enrichment: %w", err)
				}
			}

			printCatalog(out, orch.Search(search), orch.Stats())

			if exportPath != "" {
				if err := export.SaveToFile(exportPath, orch.Items()); err != nil {
					return err
				}
				slog.Info("Catalog exported", "path", exportPath)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&enrich, "enrich", true, "Request metadata for every ingested image")
	cmd.Flags().StringVar(&serviceURL, "service-url", "", "Base URL of a remote enrichment service")
	cmd.Flags().StringVar(&provider, "provider", "", "Credential provider used for enrichment (gemini, openai, claude)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key for the selected provider; overrides the environment")
	cmd.Flags().StringVar(&exportPath, "export", "", "Write the catalog to a .json, .yaml or .parquet file")
	cmd.Flags().StringVar(&search, "search", "", "Only list items matching this keyword")

	return cmd
}

func requestAll(ctx context.Context, orch *orchestrator.Orchestrator, items []models.Item) {
	for _, item := range items {
		if _, err := orch.RequestEnrichment(ctx, item.ID); err != nil {
			slog.Warn("Enrichment not started", "item", item.Name, "err", err)
		}
	}
}

func printCatalog(out io.Writer, items []models.Item, s stats.Statistics) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATUS\tSIZE\tTITLE\tSCORE")
	for _, item := range items {
		title, score := "-", "-"
		if item.Metadata != nil {
			title = item.Metadata.Title
			score = fmt.Sprintf("%.1f", item.Metadata.CommercialViability.Score)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", item.Name, item.Status, item.Payload.Size, title, score)
	}
	_ = tw.Flush()

	fmt.Fprintf(out, "\nTotal images: %d  With metadata: %d  AI suggestions: %d\n", s.TotalImages, s.WithMetadata, s.AISuggestions)
}
