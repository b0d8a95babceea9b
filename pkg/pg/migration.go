package pg

import (
	"io/fs"

	_ "github.com/lib/pq"
	"github.com/nimasrn/cash-ledger/pkg/logger"
	"github.com/pressly/goose/v3"
)

// Migrate applies every pending migration found under dir of fsys.
// A nil fsys reads dir from the local filesystem.
func Migrate(cfg Config, fsys fs.FS, dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	goose.SetBaseFS(fsys)

	db, err := newSqlConnection(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err = goose.Up(db, dir); err != nil {
		return err
	}

	version, err := goose.GetDBVersion(db)
	if err == nil {
		logger.Info("[pg] migrations applied", "version", version)
	}
	return nil
}

// MigrationStatus logs the applied/pending state of each migration.
func MigrationStatus(cfg Config, fsys fs.FS, dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	goose.SetBaseFS(fsys)

	db, err := newSqlConnection(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	return goose.Status(db, dir)
}
