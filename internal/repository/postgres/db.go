package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	DSN               string        `mapstructure:"dsn"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	QueryTimeout      time.Duration `mapstructure:"query_timeout"`
	// ApplicationName shows up in pg_stat_activity; each binary sets its own.
	ApplicationName string `mapstructure:"application_name"`
}

type DB struct {
	Pool         *pgxpool.Pool
	QueryTimeout time.Duration
}

// NewDB opens the pool in UTC. Civil-day math happens in Go against the
// configured app timezone, never in the database session.
func NewDB(ctx context.Context, cfg Config) (*DB, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	setIfPositive(&pcfg.MaxConns, cfg.MaxConns)
	setIfPositive(&pcfg.MinConns, cfg.MinConns)
	setIfPositive(&pcfg.MaxConnLifetime, cfg.MaxConnLifetime)
	setIfPositive(&pcfg.MaxConnIdleTime, cfg.MaxConnIdleTime)
	setIfPositive(&pcfg.HealthCheckPeriod, cfg.HealthCheckPeriod)

	rp := pcfg.ConnConfig.RuntimeParams
	rp["timezone"] = "UTC"
	if cfg.ApplicationName != "" {
		rp["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{Pool: pool, QueryTimeout: cfg.QueryTimeout}, nil
}

func setIfPositive[T int32 | time.Duration](dst *T, v T) {
	if v > 0 {
		*dst = v
	}
}

func (db *DB) Close() { db.Pool.Close() }

func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

func (db *DB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if db.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, db.QueryTimeout)
}
