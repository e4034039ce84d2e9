package postgres

import (
	"embed"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	apperrors "interpreting-pricing/internal/errors"
	"interpreting-pricing/internal/logging"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies all pending migrations
func Migrate(dsn string) error {
	db, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return apperrors.Storage("open migration connection", err)
	}
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.Up(db, "migrations"); err != nil {
		return apperrors.Storage("apply migrations", err)
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		return apperrors.Storage("read migration version", err)
	}
	logging.Component("postgres").Sugar().Infof("schema at version %d", version)
	return nil
}
