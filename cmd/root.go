package cmd

import (
	"github.com/joho/godotenv"
	"github.com/pixcelsafe/pixcelsafe/internal/config"
	"github.com/spf13/cobra"
)

// appState holds state prepared by the root command for its subcommands
type appState struct {
	cfg      *config.Config
	closeLog func() error
}

func NewRootCmd() *cobra.Command {
	rt := &appState{closeLog: func() error { return nil }}
	var logLevel string

	cmd := &cobra.Command{
		Use:   "pixcelsafe",
		Short: "Image catalog with AI metadata enrichment",
		Long: `PixcelSafe ingests images into a catalog and enriches each one with
AI-generated stock metadata: title, keywords, tags, technical analysis and
a commercial viability assessment.

It can run the enrichment service over HTTP or ingest local files and URLs
directly from the command line.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			cfg, err := config.New()
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			rt.cfg = cfg

			_, rt.closeLog = config.SetupLogger(cfg.Log.File, config.ParseLevel(cfg.Log.Level))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return rt.closeLog()
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")

	cmd.AddCommand(newServeCmd(rt))
	cmd.AddCommand(newIngestCmd(rt))

	return cmd
}
