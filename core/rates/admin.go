package rates

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"interpreting-pricing/internal/logging"
)

// Store persists catalog rows outside the process
type Store interface {
	Persist(ctx context.Context, rows []Row) error
	RecordTable(ctx context.Context, t *Table) error
}

// Regenerate rebuilds one category from its seed price and swaps it into the
// registry. With a store the rows are persisted under the registry's writer
// lock before the swap, so the store and the active table change in the same
// order and a failed write leaves the active table untouched.
func (r *Registry) Regenerate(ctx context.Context, store Store, category Category, seed decimal.Decimal) (*Table, error) {
	rows, err := Generate(category, seed)
	if err != nil {
		return nil, err
	}

	var commit func(*Table) error
	if store != nil {
		commit = func(*Table) error { return store.Persist(ctx, rows) }
	}
	table, err := r.ReplaceCategoryWith(category, rows, commit)
	if err != nil {
		return nil, err
	}

	if store != nil {
		if err := store.RecordTable(ctx, table); err != nil {
			logging.Component("registry").Warn("rate table not recorded",
				zap.Int64("version", table.Version),
				zap.Error(err),
			)
		}
	}
	return table, nil
}
