package postgres

import (
	"context"
	"io/fs"
	"os"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"interpreting-pricing/core/rates"
	apperrors "interpreting-pricing/internal/errors"
	"interpreting-pricing/internal/logging"
)

func init() {
	logging.UseNop()
}

func TestMigrationsAreEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("migrations = %v, want 2 files", files)
	}
	for _, f := range files {
		body, _ := fs.ReadFile(migrations, f)
		if !strings.Contains(string(body), "-- +goose Up") || !strings.Contains(string(body), "-- +goose Down") {
			t.Errorf("%s lacks goose annotations", f)
		}
	}
}

func TestRowArgsRoundTrip(t *testing.T) {
	rows, err := rates.Generate(rates.CategoryProfessional, decimal.RequireFromString("28"))
	if err != nil {
		t.Fatal(err)
	}

	for _, r := range rows {
		args := rowArgs(r)
		if len(args) != 15 {
			t.Fatalf("args = %d, want 15", len(args))
		}
		var key [6]string
		for i := range key {
			key[i] = args[i].(string)
		}
		var prices [8]string
		for i := range prices {
			prices[i] = args[7+i].(string)
		}

		got, err := decodeRow(key, args[6].(int), prices)
		if err != nil {
			t.Fatalf("decode %s: %v", r.Key, err)
		}
		if got.Key != r.Key || got.BlockMinutes != r.BlockMinutes {
			t.Errorf("key = %s/%d, want %s/%d", got.Key, got.BlockMinutes, r.Key, r.BlockMinutes)
		}
		if !got.Special.InterpreterWithoutTax.Equal(r.Special.InterpreterWithoutTax) ||
			!got.General.ClientWithTax.Equal(r.General.ClientWithTax) {
			t.Errorf("%s: prices changed in round trip", r.Key)
		}
	}
}

func TestDecodeRowRejectsUnknownValues(t *testing.T) {
	prices := [8]string{"1", "1", "1", "1", "1", "1", "1", "1"}
	_, err := decodeRow([6]string{"professional", "on_demand", "telepathy", "consecutive", "standard_hours", "first_block"}, 15, prices)
	if !apperrors.IsType(err, apperrors.TypeStorage) {
		t.Errorf("got %v, want storage error", err)
	}

	prices[3] = "n/a"
	_, err = decodeRow([6]string{"professional", "on_demand", "audio", "consecutive", "standard_hours", "first_block"}, 15, prices)
	if !apperrors.IsType(err, apperrors.TypeStorage) {
		t.Errorf("got %v, want storage error", err)
	}
}

func TestCategoriesOf(t *testing.T) {
	pro, _ := rates.Generate(rates.CategoryProfessional, decimal.RequireFromString("28"))
	rec, _ := rates.Generate(rates.CategoryRecognised, decimal.RequireFromString("20"))
	got := categoriesOf(append(pro, rec...))
	if len(got) != 2 || got[0] != "professional" || got[1] != "recognised" {
		t.Errorf("categories = %v", got)
	}
}

// TestRateStore runs against a real database when INTERP_TEST_POSTGRES_DSN is set
func TestRateStore(t *testing.T) {
	dsn := os.Getenv("INTERP_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("INTERP_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	if err := Migrate(dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	pool, err := Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()
	store := NewRateStore(pool)

	rows, _ := rates.Generate(rates.CategoryRecognised, decimal.RequireFromString("19.50"))
	if err := store.Persist(ctx, rows); err != nil {
		t.Fatalf("persist: %v", err)
	}
	// persisting again replaces instead of duplicating
	if err := store.Persist(ctx, rows); err != nil {
		t.Fatalf("persist again: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	table, err := rates.NewTable(loaded, 1)
	if err != nil {
		t.Fatalf("loaded rows violate table invariants: %v", err)
	}
	if n := len(table.Find(rates.Filter{Category: rates.CategoryRecognised})); n != len(rows) {
		t.Errorf("recognised rows = %d, want %d", n, len(rows))
	}
	if err := store.RecordTable(ctx, table); err != nil {
		t.Errorf("record table: %v", err)
	}
}
