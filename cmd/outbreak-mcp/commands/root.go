package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"outbreak-mcp/internal/config"
	"outbreak-mcp/internal/dataset"
	"outbreak-mcp/internal/epi"
	"outbreak-mcp/internal/logging"
	"outbreak-mcp/internal/mcp"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "outbreak-mcp",
	Short: "Outbreak-MCP screens food and exposure histories for the source of an outbreak",
	Long: `An MCP Server for outbreak investigations. For every candidate exposure in a line list it
builds a 2x2 table, tests the association with the outcome (chi-square or Fisher's exact test)
and estimates the odds ratio or risk ratio with a 95% confidence interval.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// One-shot commands write their result to stdout and keep logs on the console only.
		oneShot := cmd != cmd.Root()
		if err := logging.Init(logging.Options{Verbose: verbose, ConsoleOnly: oneShot}); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		log.Debug().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("dataPath", cfg.DataPath).
			Msg("Outbreak-MCP starting")
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		store := dataset.NewStore(cfg.CacheDir)
		if n, err := store.LoadAll(); err != nil {
			log.Warn().Err(err).Msg("Failed to restore cached datasets")
		} else if n > 0 {
			log.Info().Int("count", n).Msg("Restored cached datasets")
		}

		engine := epi.NewEngine(epi.Options{
			PlaceholderFactors: cfg.PlaceholderFactors,
			Workers:            cfg.AnalysisWorkers,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		server := mcp.NewServer(cfg, store, engine, Version)
		if err := server.Serve(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		log.Info().Msg("MCP Server stopped")
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.AddCommand(analyzeCmd, versionCmd)
}
