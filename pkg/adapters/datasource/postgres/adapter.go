// Package postgres implements the datasource capability over a pgx pool.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-ask/pkg/config"
	"github.com/ekaya-inc/ekaya-ask/pkg/logging"
	"github.com/ekaya-inc/ekaya-ask/pkg/retry"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        config.DatabasePostgres,
			DisplayName: "PostgreSQL",
			Description: "PostgreSQL 12+, Aurora PostgreSQL, Supabase",
		},
		Factory: func(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (datasource.Datasource, error) {
			return NewAdapter(ctx, cfg, logger)
		},
	})
}

// Adapter provides PostgreSQL connectivity.
type Adapter struct {
	pool     *pgxpool.Pool
	database string
	logger   *zap.Logger
}

// NewAdapter opens a small pool against the configured database and verifies
// it with a ping, retrying transient connection failures.
func NewAdapter(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Adapter, error) {
	connStr := cfg.ConnectionString()

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %s", logging.SanitizeConnectionString(err.Error()))
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}

	return newAdapterWithConfig(ctx, poolCfg, cfg.Database, logger)
}

// NewAdapterFromPool wraps an existing pool. The adapter takes ownership and
// closes the pool on Close.
func NewAdapterFromPool(pool *pgxpool.Pool, logger *zap.Logger) *Adapter {
	return &Adapter{
		pool:     pool,
		database: pool.Config().ConnConfig.Database,
		logger:   logger.Named("datasource.postgres"),
	}
}

func newAdapterWithConfig(ctx context.Context, poolCfg *pgxpool.Config, database string, logger *zap.Logger) (*Adapter, error) {
	logger = logger.Named("datasource.postgres")

	connectCfg := retry.DefaultConfig()
	connectCfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.Warn("Retrying postgres connection",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.String("error", logging.SanitizeError(err)))
	}

	pool, err := retry.DoWithResult(ctx, connectCfg, func() (*pgxpool.Pool, error) {
		p, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return nil, err
		}
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %s", logging.SanitizeError(err))
	}

	logger.Info("Connected to postgres",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("database", database),
		zap.Int32("max_conns", poolCfg.MaxConns))

	return &Adapter{
		pool:     pool,
		database: database,
		logger:   logger,
	}, nil
}

// Ping verifies the database is reachable and that the pool is connected to
// the configured database.
func (a *Adapter) Ping(ctx context.Context) error {
	if err := a.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var currentDB string
	if err := a.pool.QueryRow(ctx, "SELECT current_database()").Scan(&currentDB); err != nil {
		return fmt.Errorf("failed to get current database name: %w", err)
	}
	if a.database != "" && !strings.EqualFold(currentDB, a.database) {
		return fmt.Errorf("connected to wrong database: expected %q but connected to %q", a.database, currentDB)
	}
	return nil
}

// QuoteIdentifier uses PostgreSQL's standard double-quote quoting.
func (a *Adapter) QuoteIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// Dialect implements datasource.Datasource.
func (a *Adapter) Dialect() datasource.Dialect {
	return datasource.DialectPostgres
}

// Close closes the pool.
func (a *Adapter) Close() error {
	if a.pool != nil {
		a.pool.Close()
	}
	return nil
}

var _ datasource.Datasource = (*Adapter)(nil)
