package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"interpreting-pricing/core/quote"
	"interpreting-pricing/core/rates"
	"interpreting-pricing/core/tax"
	"interpreting-pricing/db/postgres"
	"interpreting-pricing/internal/config"
	"interpreting-pricing/internal/logging"
	"interpreting-pricing/internal/metrics"
)

// catalog is a loaded registry plus the store it was read from, if any
type catalog struct {
	registry *rates.Registry
	store    *postgres.RateStore
	pool     *pgxpool.Pool
	source   string
}

// openCatalog fills reg from Postgres when a DSN is configured and the
// store holds rows, and from the seed file otherwise.
func openCatalog(ctx context.Context, reg *rates.Registry, cfg *config.Config, seedsPath string, useStore bool) (*catalog, error) {
	c := &catalog{registry: reg}
	log := logging.Component("catalog")

	if useStore && cfg.Postgres.DSN != "" {
		pool, err := postgres.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		c.pool = pool
		c.store = postgres.NewRateStore(pool)

		rows, err := c.store.Load(ctx)
		if err != nil {
			c.Close()
			return nil, err
		}
		if len(rows) > 0 {
			if _, err := reg.Replace(rows); err != nil {
				c.Close()
				return nil, err
			}
			c.source = "postgres"
			log.Info("rates loaded", zap.String("source", c.source), zap.Int("rows", len(rows)))
			return c, nil
		}
		log.Info("rate store empty, falling back to seeds", zap.String("seeds", seedsPath))
	}

	seeds, err := rates.LoadSeeds(seedsPath)
	if err != nil {
		c.Close()
		return nil, err
	}
	rows, err := rates.GenerateAll(seeds)
	if err != nil {
		c.Close()
		return nil, err
	}
	if _, err := reg.Replace(rows); err != nil {
		c.Close()
		return nil, err
	}
	c.source = seedsPath
	log.Info("rates loaded", zap.String("source", c.source), zap.Int("rows", len(rows)))
	return c, nil
}

// Store returns the persistence backend, or nil when none is configured
func (c *catalog) Store() rates.Store {
	if c.store == nil {
		return nil
	}
	return c.store
}

// Close releases the database pool
func (c *catalog) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}

func newQuoteService(reg *rates.Registry, cfg *config.Config, m *metrics.Metrics) (*quote.Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return quote.NewService(reg, quote.Options{
		PeakHour: cfg.Pricing.PeakHour,
		Location: loc,
		Resolver: tax.NewResolver(cfg.Pricing.TaxJurisdiction),
		Metrics:  m,
	}), nil
}

func seedsPathOr(flag string, cfg *config.Config) string {
	if flag != "" {
		return flag
	}
	return cfg.Pricing.SeedsFile
}

func commandContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func requireDSN(cfg *config.Config) error {
	if cfg.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is not configured (set INTERP_POSTGRES_DSN)")
	}
	return nil
}
