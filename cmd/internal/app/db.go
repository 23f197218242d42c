package app

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"newsletter/cmd/internal/migrations"
	"newsletter/cmd/internal/pgstore"
)

// NewDBPool builds a pgxpool pinned to cfg.DBSchema and validates connectivity.
// With MigrateOnStart it also creates the schema and applies embedded migrations.
func NewDBPool(ctx context.Context, cfg Config, log Logger) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if cfg.DBMaxConns > 0 {
		pcfg.MaxConns = cfg.DBMaxConns
	}
	if cfg.DBMinConns >= 0 {
		pcfg.MinConns = cfg.DBMinConns
	}
	// Unqualified statements (migrations, goose's version table) resolve here.
	pcfg.ConnConfig.RuntimeParams["search_path"] = cfg.DBSchema

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	if err := PingDB(ctx, pool, 3*time.Second); err != nil {
		pool.Close()
		return nil, err
	}

	if cfg.MigrateOnStart {
		if err := Migrate(ctx, pool, cfg.DBSchema); err != nil {
			pool.Close()
			return nil, err
		}
		if v, err := migrations.Version(ctx, pool); err == nil {
			log.Info("db.migrate.ok", "schema", cfg.DBSchema, "version", v)
		}
	}

	return pool, nil
}

// Migrate creates schema when missing and applies pending migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	if err := pgstore.EnsureSchema(ctx, pool, schema); err != nil {
		return err
	}
	return migrations.Up(ctx, pool)
}

// PingDB checks if we can acquire a connection within timeout.
func PingDB(parent context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	conn.Release()
	return nil
}
