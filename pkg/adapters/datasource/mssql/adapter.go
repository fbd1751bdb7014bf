// Package mssql implements the datasource capability for Microsoft SQL Server
// using database/sql and go-mssqldb.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-ask/pkg/config"
	"github.com/ekaya-inc/ekaya-ask/pkg/logging"
	"github.com/ekaya-inc/ekaya-ask/pkg/retry"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        config.DatabaseMSSQL,
			DisplayName: "Microsoft SQL Server",
			Description: "SQL Server 2016+ and Azure SQL Database with SQL authentication",
		},
		Factory: func(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (datasource.Datasource, error) {
			return NewAdapter(ctx, cfg, logger)
		},
	})
}

// Adapter provides SQL Server connectivity.
type Adapter struct {
	db       *sql.DB
	database string
	logger   *zap.Logger
}

// NewAdapter opens a database/sql pool with SQL authentication and verifies
// it, retrying transient connection failures.
func NewAdapter(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Adapter, error) {
	logger = logger.Named("datasource.mssql")

	db, err := sql.Open("sqlserver", cfg.SQLServerURL())
	if err != nil {
		return nil, fmt.Errorf("open sqlserver connection: %s", logging.SanitizeError(err))
	}
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(int(cfg.MaxConnections))
		db.SetMaxIdleConns(int(cfg.MaxConnections))
	}

	connectCfg := retry.DefaultConfig()
	connectCfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.Warn("Retrying sqlserver connection",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.String("error", logging.SanitizeError(err)))
	}

	if err := retry.Do(ctx, connectCfg, func() error {
		return db.PingContext(ctx)
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("connection test failed: %s", logging.SanitizeError(err))
	}

	logger.Info("Connected to sqlserver",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &Adapter{
		db:       db,
		database: cfg.Database,
		logger:   logger,
	}, nil
}

// Ping verifies connectivity and that the session is in the configured database.
func (a *Adapter) Ping(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var currentDB string
	if err := a.db.QueryRowContext(ctx, "SELECT DB_NAME()").Scan(&currentDB); err != nil {
		return fmt.Errorf("failed to get current database name: %w", err)
	}
	if a.database != "" && !strings.EqualFold(currentDB, a.database) {
		return fmt.Errorf("connected to wrong database: expected %q but connected to %q", a.database, currentDB)
	}
	return nil
}

// QuoteIdentifier uses SQL Server's square bracket syntax: [name]
func (a *Adapter) QuoteIdentifier(name string) string {
	return quoteName(name)
}

// Dialect implements datasource.Datasource.
func (a *Adapter) Dialect() datasource.Dialect {
	return datasource.DialectSQLServer
}

// Close closes the connection pool.
func (a *Adapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

var _ datasource.Datasource = (*Adapter)(nil)
