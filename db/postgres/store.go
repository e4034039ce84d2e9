// Package postgres persists the rate catalog. The engine never reads from
// here directly: rows are loaded once into the registry at startup and
// written back on administrative regeneration.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"interpreting-pricing/core/rates"
	apperrors "interpreting-pricing/internal/errors"
)

// RateStore reads and writes rate rows
type RateStore struct {
	pool *pgxpool.Pool
}

// Connect opens a pool and verifies the connection
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, apperrors.Storage("open pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrors.Storage("ping database", err)
	}
	return pool, nil
}

// NewRateStore creates a store on an open pool
func NewRateStore(pool *pgxpool.Pool) *RateStore {
	return &RateStore{pool: pool}
}

const selectRows = `
	SELECT category, scheduling, channel, mode, qualifier, sequence, block_minutes,
	       client_with_tax::text, client_without_tax::text,
	       interpreter_with_tax::text, interpreter_without_tax::text,
	       special_client_with_tax::text, special_client_without_tax::text,
	       special_interpreter_with_tax::text, special_interpreter_without_tax::text
	FROM rate_rows
	ORDER BY category, scheduling, channel, mode, qualifier, sequence`

const insertRow = `
	INSERT INTO rate_rows (
	    category, scheduling, channel, mode, qualifier, sequence, block_minutes,
	    client_with_tax, client_without_tax, interpreter_with_tax, interpreter_without_tax,
	    special_client_with_tax, special_client_without_tax,
	    special_interpreter_with_tax, special_interpreter_without_tax)
	VALUES ($1, $2, $3, $4, $5, $6, $7,
	    $8::text::numeric, $9::text::numeric, $10::text::numeric, $11::text::numeric,
	    $12::text::numeric, $13::text::numeric, $14::text::numeric, $15::text::numeric)`

// Load returns every stored row
func (s *RateStore) Load(ctx context.Context) ([]rates.Row, error) {
	rows, err := s.pool.Query(ctx, selectRows)
	if err != nil {
		return nil, apperrors.Storage("query rate rows", err)
	}
	defer rows.Close()

	var out []rates.Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("iterate rate rows", err)
	}
	return out, nil
}

// Persist replaces the stored rows of every category present in rows,
// in one transaction.
func (s *RateStore) Persist(ctx context.Context, rows []rates.Row) error {
	categories := categoriesOf(rows)
	if len(categories) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperrors.Storage("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM rate_rows WHERE category = ANY($1)`, categories); err != nil {
		return apperrors.Storage("delete rate rows", err)
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertRow, rowArgs(r)...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return apperrors.Storage("insert rate rows", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.Storage("commit rate rows", err)
	}
	return nil
}

// RecordTable stores the identity of an activated table
func (s *RateStore) RecordTable(ctx context.Context, t *rates.Table) error {
	const q = `
		INSERT INTO rate_table_versions (id, version, content_hash, row_count, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.pool.Exec(ctx, q, t.ID, t.Version, t.ContentHash, t.Len(), t.CreatedAt); err != nil {
		return apperrors.Storage("record rate table", err)
	}
	return nil
}

func categoriesOf(rows []rates.Row) []string {
	seen := make(map[rates.Category]bool)
	var out []string
	for _, r := range rows {
		if !seen[r.Category] {
			seen[r.Category] = true
			out = append(out, string(r.Category))
		}
	}
	return out
}

func rowArgs(r rates.Row) []any {
	return []any{
		string(r.Category), string(r.Scheduling), string(r.Channel), string(r.Mode),
		string(r.Qualifier), string(r.Sequence), r.BlockMinutes,
		r.General.ClientWithTax.StringFixed(2), r.General.ClientWithoutTax.StringFixed(2),
		r.General.InterpreterWithTax.StringFixed(2), r.General.InterpreterWithoutTax.StringFixed(2),
		r.Special.ClientWithTax.StringFixed(2), r.Special.ClientWithoutTax.StringFixed(2),
		r.Special.InterpreterWithTax.StringFixed(2), r.Special.InterpreterWithoutTax.StringFixed(2),
	}
}

func scanRow(rows pgx.Rows) (rates.Row, error) {
	var (
		category, scheduling, channel, mode, qualifier, sequence string
		minutes                                                  int
		prices                                                   [8]string
	)
	err := rows.Scan(&category, &scheduling, &channel, &mode, &qualifier, &sequence, &minutes,
		&prices[0], &prices[1], &prices[2], &prices[3], &prices[4], &prices[5], &prices[6], &prices[7])
	if err != nil {
		return rates.Row{}, apperrors.Storage("scan rate row", err)
	}
	return decodeRow([6]string{category, scheduling, channel, mode, qualifier, sequence}, minutes, prices)
}

// decodeRow validates the stored enum values and prices
func decodeRow(key [6]string, minutes int, prices [8]string) (rates.Row, error) {
	var (
		r   rates.Row
		err error
	)
	if r.Category, err = rates.ParseCategory(key[0]); err != nil {
		return r, apperrors.Storage("decode rate row", err)
	}
	if r.Scheduling, err = rates.ParseScheduling(key[1]); err != nil {
		return r, apperrors.Storage("decode rate row", err)
	}
	if r.Channel, err = rates.ParseChannel(key[2]); err != nil {
		return r, apperrors.Storage("decode rate row", err)
	}
	if r.Mode, err = rates.ParseMode(key[3]); err != nil {
		return r, apperrors.Storage("decode rate row", err)
	}
	if r.Qualifier, err = rates.ParseQualifier(key[4]); err != nil {
		return r, apperrors.Storage("decode rate row", err)
	}
	if r.Sequence, err = rates.ParseSequence(key[5]); err != nil {
		return r, apperrors.Storage("decode rate row", err)
	}
	r.BlockMinutes = minutes

	var d [8]decimal.Decimal
	for i, p := range prices {
		if d[i], err = decimal.NewFromString(p); err != nil {
			return r, apperrors.Storage(fmt.Sprintf("decode price of %s", r.Key), err)
		}
	}
	r.General = rates.PriceSet{ClientWithTax: d[0], ClientWithoutTax: d[1], InterpreterWithTax: d[2], InterpreterWithoutTax: d[3]}
	r.Special = rates.PriceSet{ClientWithTax: d[4], ClientWithoutTax: d[5], InterpreterWithTax: d[6], InterpreterWithoutTax: d[7]}
	return r, nil
}
