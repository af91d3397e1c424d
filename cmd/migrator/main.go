package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/pflag"
)

const (
	storagePathFlag    = "storage-path"
	migrationsPathFlag = "migrations-path"
	downFlag           = "down"
)

type flags struct {
	storagePath    string
	migrationsPath string
	down           bool
}

func main() {
	f := parseFlags()
	if err := f.validate(); err != nil {
		slog.Error("too few args", "err", err)
		os.Exit(2)
	}
	if err := migrateCatalog(f); err != nil {
		slog.Error("failed to migrate", "err", err)
		os.Exit(1)
	}
}

type migrationLogger struct {
	logger *slog.Logger
}

func (ml migrationLogger) Printf(format string, v ...any) {
	ml.logger.Info(fmt.Sprintf(format, v...))
}

func (ml migrationLogger) Verbose() bool {
	return true
}

func parseFlags() flags {
	var f flags
	pflag.StringVarP(&f.storagePath, storagePathFlag, "s", "", "postgres host/db?params, no scheme")
	pflag.StringVarP(&f.migrationsPath, migrationsPathFlag, "m", "", "directory with *.sql files")
	pflag.BoolVar(&f.down, downFlag, false, "roll every migration back")
	pflag.Parse()
	return f
}

func (f flags) validate() error {
	var errs []error
	if f.storagePath == "" {
		errs = append(errs, fmt.Errorf("--%s flag: required", storagePathFlag))
	}
	if f.migrationsPath == "" {
		errs = append(errs, fmt.Errorf("--%s flag: required", migrationsPathFlag))
	}
	return errors.Join(errs...)
}

func migrateCatalog(f flags) error {
	m, err := migrate.New(
		"file://"+f.migrationsPath,
		"pgx5://"+f.storagePath,
	)
	if err != nil {
		return err
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			slog.Error("failed to close migrator", "err", errors.Join(srcErr, dbErr))
		}
	}()

	m.Log = migrationLogger{slog.Default().With("op", "migrator")}

	apply := m.Up
	if f.down {
		apply = m.Down
	}

	if err := apply(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.Log.Printf("no migrations to apply")
			return nil
		}
		return err
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}
	m.Log.Printf("migrations applied: version=%d dirty=%t", version, dirty)
	return nil
}
