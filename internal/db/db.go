// internal/db/db.go
package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrations embed.FS

const migrationTable = "leadflow_migrations"

var (
	ErrOpen            = errors.New("failed to open database")
	ErrPing            = errors.New("failed to ping database")
	ErrApplyMigrations = errors.New("failed to apply migrations")
)

// Dialect names the SQL backend behind a *sql.DB.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DialectFor picks postgres for postgres:// URLs and sqlite for anything else.
func DialectFor(url string) Dialect {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

// Open connects, pings and migrates the delivery log database.
func Open(ctx context.Context, url string, log *slog.Logger) (*sql.DB, Dialect, error) {
	dialect := DialectFor(url)

	driver, dsn := "postgres", url
	if dialect == DialectSQLite {
		driver, dsn = "sqlite", sqliteDSN(url)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, "", errors.Join(ErrOpen, err)
	}
	if dialect == DialectSQLite {
		// one writer at a time
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, "", errors.Join(ErrPing, err)
	}

	if err := Migrate(ctx, conn, dialect, log); err != nil {
		conn.Close()
		return nil, "", err
	}

	log.Info("database ready", slog.String("dialect", string(dialect)))
	return conn, dialect, nil
}

// Migrate applies the embedded migrations for dialect.
func Migrate(ctx context.Context, conn *sql.DB, dialect Dialect, log *slog.Logger) error {
	fsys, err := fs.Sub(migrations, "migrations/"+string(dialect))
	if err != nil {
		return errors.Join(ErrApplyMigrations, err)
	}

	gooseDialect := goose.DialectPostgres
	if dialect == DialectSQLite {
		gooseDialect = goose.DialectSQLite3
	}

	provider, err := goose.NewProvider(gooseDialect, conn, fsys,
		goose.WithLogger(&gooseLoggerAdapter{log}),
		goose.WithTableName(migrationTable),
	)
	if err != nil {
		return errors.Join(ErrApplyMigrations, err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return errors.Join(ErrApplyMigrations, err)
	}
	for _, r := range results {
		log.Info("migration applied", slog.String("source", r.Source.Path), slog.Duration("took", r.Duration))
	}
	return nil
}

func sqliteDSN(url string) string {
	dsn := strings.TrimPrefix(url, "sqlite://")
	if strings.Contains(dsn, "_time_format=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_time_format=sqlite", dsn, sep)
}

type gooseLoggerAdapter struct {
	log *slog.Logger
}

func (g *gooseLoggerAdapter) Printf(format string, args ...any) {
	g.log.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Fatalf only logs; goose returns the error to Migrate.
func (g *gooseLoggerAdapter) Fatalf(format string, args ...any) {
	g.log.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
