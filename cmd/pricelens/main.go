package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pricelens/backend/config"
	httpDelivery "github.com/pricelens/backend/internal/delivery/http"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version = "0.1.0"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pricelens",
		Short: "PriceLens - market price discovery for product catalogs",
		Long: `PriceLens searches the web for each product in a catalog, fetches the
candidate store pages and records the prices it finds.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newEnrichCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// setup loads config and builds the logger shared by every command
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(cfg.Server.Environment, cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return cfg, log, nil
}

func newEnrichCmd() *cobra.Command {
	var (
		in       string
		out      string
		maxSites int
	)

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Enrich a catalog file with prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			if in == "" {
				in = cfg.Catalog.Input
			}
			if out == "" {
				out = cfg.Catalog.Output
			}

			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			catalog, err := a.catalogs.Load(ctx, in)
			if err != nil {
				if !errors.Is(err, domain.ErrCatalogUnavailable) {
					return err
				}
				log.Warn("catalog unavailable, continuing with empty catalog", zap.Error(err))
			}

			enriched, summary, runErr := a.enricher.EnrichCatalog(ctx, catalog, maxSites)
			if runErr != nil {
				log.Warn("run interrupted, saving partial results", zap.Error(runErr))
			}

			if err := a.catalogs.Save(context.WithoutCancel(ctx), out, enriched); err != nil {
				return fmt.Errorf("failed to save catalog: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d products (%d priced, %d sites). Saved to %s\n",
				summary.Products, summary.PricedProducts, summary.TotalSites, out)
			if summary.QuotaExceeded > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Search quota exceeded %d times\n", summary.QuotaExceeded)
			}

			return runErr
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "input catalog path (default from config)")
	cmd.Flags().StringVar(&out, "out", "", "output catalog path (default from config)")
	cmd.Flags().IntVar(&maxSites, "max-sites", 0, "priced sites to collect per product (default from config)")

	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			log.Info("starting pricelens",
				zap.String("version", version),
				zap.String("environment", cfg.Server.Environment),
				zap.String("port", cfg.Server.Port),
				zap.String("cache", cfg.Cache.Type),
				zap.String("search_key", cfg.Search.MaskedAPIKey()))

			handler := httpDelivery.NewHandler(a.enricher, version, log)
			router := httpDelivery.SetupRouter(cfg, handler, log)

			srv := &http.Server{
				Addr:              ":" + cfg.Server.Port,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Info("server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			printConfig(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "PriceLens v%s\n", version)
		},
	}
}
