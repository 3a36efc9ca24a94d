package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/config"
	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/db"
	httpserver "github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/http"
	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/areas"
	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/logging"
	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/pipeline"
	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/session"
)

const version = "0.3.0"

var (
	verbose bool
	port    int

	reportFile    string
	reportSpecies string
	reportFormat  string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "biodash",
	Short: "Darwin Core occurrence dashboard",
	Long: `biodash serves an interactive dashboard for tab-separated Darwin Core
occurrence files: pick a species and get its records, yearly and monthly
counts and the number of records inside each protected area.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port > 0 {
			cfg.Port = port
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		src := areaSource(cfg)
		deps := httpserver.Deps{
			Runner:   newRunner(cfg, src),
			Areas:    src,
			Sessions: session.NewStore(cfg.SessionTTL),
			Logger:   logger,
		}

		if cfg.DatabaseURL != "" {
			store, err := db.New(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("db connection error: %w", err)
			}
			defer store.Close()
			if err := store.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("db schema error: %w", err)
			}
			deps.History = store
			logger.Info("run history enabled")
		}

		srv := httpserver.New(cfg, deps)
		logger.Info("dashboard listening",
			zap.String("addr", cfg.ListenAddr()),
			zap.String("areas_url", cfg.AreasURL),
			zap.String("date_policy", string(cfg.DatePolicy)))

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run the pipeline once on a file and print the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(reportFile)
		if err != nil {
			return fmt.Errorf("read %s: %w", reportFile, err)
		}

		model, err := newRunner(cfg, areaSource(cfg)).Run(cmd.Context(), data, reportSpecies)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), reportFormat, model)
	},
}

var areasCmd = &cobra.Command{
	Use:   "areas",
	Short: "List the protected areas served by the configured source",
	RunE: func(cmd *cobra.Command, args []string) error {
		protected, err := areaSource(cfg).Fetch(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, a := range protected {
			fmt.Fprintf(out, "%s\t%s\n", a.ID, a.Name)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "biodash v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides PORT)")

	reportCmd.Flags().StringVarP(&reportFile, "file", "f", "", "tab-separated Darwin Core file")
	reportCmd.Flags().StringVarP(&reportSpecies, "species", "s", "", "species to report (default: first in sorted order)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "json", "output format: json or yaml")
	_ = reportCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(serveCmd, reportCmd, areasCmd, versionCmd)
}

func areaSource(cfg config.Config) areas.Source {
	var src areas.Source = areas.NewClient(cfg.AreasURL, cfg.AreasTimeout, cfg.AreasMaxBytes, areas.Properties{
		ID:   cfg.AreasIDProperty,
		Name: cfg.AreasNameProperty,
	})
	if cfg.AreasCacheTTL > 0 {
		src = areas.NewCachedSource(src, cfg.AreasCacheTTL)
	}
	return src
}

func newRunner(cfg config.Config, src areas.Source) *pipeline.Runner {
	return pipeline.New(src, pipeline.Options{
		DatePolicy: cfg.DatePolicy,
		TopAreas:   cfg.TopAreas,
		Logger:     logger,
	})
}

func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
