package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"FeedPub/internal/app"
	"FeedPub/internal/config"
	"FeedPub/internal/logging"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"

	configPath string
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "feedpub",
		Short: "Daily e-book digest of your RSS and Atom feeds",
		Long: `FeedPub reads a list of feeds, keeps the entries published within the
cutoff window, summarizes each article with a language model and packs
everything into an EPUB with a navigable table of contents.`,
		SilenceUsage: true,
		RunE:         runOnce,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config (defaults to $FEEDPUB_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Build and deliver today's publication once",
		RunE:  runOnce,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "schedule",
		Short: "Build a publication every scheduler.interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, logger, err := loadConfig(true)
			if err != nil {
				return err
			}
			application, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeApp(application, logger)

			return application.Schedule(ctx)
		},
	})

	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the summary cache",
	}
	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(false)
			if err != nil {
				return err
			}
			cache, closeCache, err := app.OpenCache(cmd.Context(), cfg.Cache)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeCache(); err != nil {
					logger.Warn("close cache", "error", err)
				}
			}()

			if err := cache.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			logger.Info("cache cleared", "dir", cfg.Cache.Dir, "backend", cfg.Cache.Backend)
			return nil
		},
	})
	rootCmd.AddCommand(cacheCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("feedpub %s (%s, %s)\n", version, commit, buildDate)
		},
	})

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runOnce(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig(true)
	if err != nil {
		return err
	}
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeApp(application, logger)

	report, err := application.Run(ctx)
	if err != nil {
		logger.Error("application stopped", "error", err)
		return err
	}
	logger.Info("run finished",
		"path", report.Path,
		"feeds", report.Feeds,
		"articles", report.Articles,
		"degraded", report.Degraded,
		"feed_errors", report.FeedErrors,
		"delivered", report.Delivered,
		"total_tokens", report.Usage.TotalTokens)
	return nil
}

func loadConfig(validate bool) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logger := logging.NewWithFormat(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)

	if validate {
		if err := cfg.Validate(); err != nil {
			return config.Config{}, nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return cfg, logger, nil
}

func closeApp(a *app.Application, logger *slog.Logger) {
	if err := a.Close(); err != nil {
		logger.Warn("close application", "error", err)
	}
}
