package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/photomapper/internal/common"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver           string
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ConfigFrom maps the environment-level database settings.
func ConfigFrom(c common.DatabaseConfig) Config {
	return Config{
		Driver:          c.Driver,
		DSN:             c.DSN,
		MaxConns:        c.MaxConns,
		MinConns:        c.MinConns,
		MaxConnLifetime: c.MaxConnLifetime,
		MaxConnIdleTime: c.MaxConnIdleTime,
		DialTimeout:     c.DialTimeout,
	}
}

// DB is an ent SQL driver over a database/sql handle, plus the pgx pool
// behind it when there is one.
type DB struct {
	SQL    *sql.DB
	Ent    *entsql.Driver
	Pool   *pgxpool.Pool
	Driver string
}

func newDB(db *sql.DB, pool *pgxpool.Pool, driver string) *DB {
	d := dialect.SQLite
	if driver == DriverPostgres {
		d = dialect.Postgres
	}
	return &DB{SQL: db, Ent: entsql.OpenDB(d, db), Pool: pool, Driver: driver}
}

// Dialect is the ent dialect name used by the query builders.
func (d *DB) Dialect() string {
	return d.Ent.Dialect()
}

// Open connects to Postgres through a pgx pool wrapped as *sql.DB, or opens
// SQLite. An empty SQLite DSN means a private in-memory database.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case DriverSQLite:
		return openSQLite(ctx, cfg, logger)
	case DriverPostgres, "":
		return openPostgres(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("%w: unsupported database driver %q", common.ErrInvalidInput, cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "driver", DriverPostgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, fmt.Errorf("%w: parse dsn: %w", common.ErrDatabase, err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "photomapper"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, fmt.Errorf("%w: connect: %w", common.ErrDatabase, err)
	}

	// Wrap pool as *sql.DB for ent
	db := stdlib.OpenDBFromPool(pool)
	logger.Info("successfully connected to database")
	return newDB(db, pool, DriverPostgres), nil
}

func openSQLite(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = ":memory:"
	}
	logger.Info("opening database", "driver", DriverSQLite, "dsn", dsn)
	db, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", common.ErrDatabase, err)
	}
	// Every connection to :memory: is its own database.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping sqlite: %w", common.ErrDatabase, err)
	}
	return newDB(db, nil, DriverSQLite), nil
}

// Close closes the database connections gracefully
func (d *DB) Close(logger *slog.Logger) {
	if d == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("closing database connections")
	if err := d.Ent.Close(); err != nil {
		logger.Error("failed to close ent driver", "error", err)
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings using database/sql to catch DSN issues early.
func HealthCheck(ctx context.Context, d *DB, timeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	logger.Debug("pinging database")
	if err := d.SQL.PingContext(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		return fmt.Errorf("%w: ping: %w", common.ErrDatabase, err)
	}
	logger.Debug("database ping successful")
	return nil
}

var migrations = map[string][]string{
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS photos (
			id           UUID PRIMARY KEY,
			batch_id     UUID NOT NULL,
			source_name  TEXT NOT NULL,
			file_name    TEXT NOT NULL,
			object_key   TEXT NOT NULL,
			thumb_key    TEXT,
			content_hash BYTEA NOT NULL UNIQUE,
			size_bytes   BIGINT NOT NULL,
			width        INTEGER NOT NULL,
			height       INTEGER NOT NULL,
			status       TEXT NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS photos_batch_id_idx ON photos (batch_id, created_at)`,
	},
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS photos (
			id           TEXT PRIMARY KEY,
			batch_id     TEXT NOT NULL,
			source_name  TEXT NOT NULL,
			file_name    TEXT NOT NULL,
			object_key   TEXT NOT NULL,
			thumb_key    TEXT,
			content_hash BLOB NOT NULL UNIQUE,
			size_bytes   INTEGER NOT NULL,
			width        INTEGER NOT NULL,
			height       INTEGER NOT NULL,
			status       TEXT NOT NULL,
			created_at   TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS photos_batch_id_idx ON photos (batch_id, created_at)`,
	},
}

// Migrate creates the schema if it is missing.
func Migrate(ctx context.Context, d *DB) error {
	stmts, ok := migrations[d.Driver]
	if !ok {
		return fmt.Errorf("%w: no migrations for %q", common.ErrInvalidInput, d.Driver)
	}
	for _, stmt := range stmts {
		if err := d.Ent.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("%w: migrate: %w", common.ErrDatabase, err)
		}
	}
	return nil
}
