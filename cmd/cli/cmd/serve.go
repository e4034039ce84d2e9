package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"interpreting-pricing/api"
	"interpreting-pricing/core/rates"
	"interpreting-pricing/db/postgres"
	"interpreting-pricing/internal/config"
	"interpreting-pricing/internal/logging"
	"interpreting-pricing/internal/metrics"
)

var (
	serveAddr      string
	serveSeedsFile string
)

// serveCmd runs the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pricing API",
	Long: `Serve loads the rate catalog (Postgres when configured, otherwise the
seed file) and serves quotes, rate lookups and regeneration over HTTP.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default http.addr)")
	serveCmd.Flags().StringVar(&serveSeedsFile, "seeds", "", "seed file (default pricing.seeds_file)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	log := logging.Component("serve")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.DSN != "" && cfg.Postgres.MigrateOnStart {
		if err := postgres.Migrate(cfg.Postgres.DSN); err != nil {
			return err
		}
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	reg := rates.NewRegistry()
	reg.OnSwap(func(t *rates.Table) {
		m.ObserveTable(t.Version, t.Len())
		log.Info("rate table active",
			zap.Int64("version", t.Version),
			zap.String("content_hash", t.ContentHash),
			zap.Int("rows", t.Len()),
		)
	})

	c, err := openCatalog(ctx, reg, cfg, seedsPathOr(serveSeedsFile, cfg), true)
	if err != nil {
		return err
	}
	defer c.Close()

	svc, err := newQuoteService(reg, cfg, m)
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.HTTP.Addr
	}

	srv := api.NewServer(Version, api.Deps{
		Quotes:   svc,
		Registry: reg,
		Store:    c.Store(),
		Metrics:  m,
	})

	log.Info("listening",
		zap.String("addr", addr),
		zap.String("rates", c.source),
		zap.Bool("metrics", m != nil),
		zap.Bool("persistence", c.store != nil),
	)
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return err
	}
	log.Info("shut down")
	return nil
}
