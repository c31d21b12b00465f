package engine

import (
	"context"
	"fmt"
	"strings"

	"trade-analytics-lab/internal/config"
	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/source"
	"trade-analytics-lab/internal/source/clickhouse"
	"trade-analytics-lab/internal/source/migrations"
	"trade-analytics-lab/internal/source/postgres"
)

// BuildAdapter constructs the source adapter selected by cfg. For database
// sources the DSN scheme picks the driver, and MigrateOnStart applies the
// embedded schema before the adapter is returned. The returned cleanup
// releases any database handles; it is a no-op for file and sample sources.
func BuildAdapter(ctx context.Context, cfg *config.Config) (source.Adapter, func(), error) {
	opts := cfg.SourceOptions()
	noop := func() {}

	switch cfg.DataSource {
	case config.SourceSample:
		return source.NewSampleAdapter(cfg.SampleSeed, cfg.SampleCount, opts), noop, nil

	case config.SourceCSV:
		return source.NewCSVAdapter(cfg.CSVPath, opts), noop, nil

	case config.SourceDatabase:
		switch {
		case strings.HasPrefix(cfg.DatabaseDSN, "postgres://"),
			strings.HasPrefix(cfg.DatabaseDSN, "postgresql://"):
			pool, err := postgres.NewPool(ctx, cfg.DatabaseDSN)
			if err != nil {
				return nil, nil, fmt.Errorf("connect postgres: %w", err)
			}
			if cfg.MigrateOnStart {
				if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
					pool.Close()
					return nil, nil, fmt.Errorf("migrate postgres: %w", err)
				}
			}
			return postgres.NewAdapter(pool, opts), pool.Close, nil

		case strings.HasPrefix(cfg.DatabaseDSN, "clickhouse://"):
			var conn *clickhouse.Conn
			var err error
			if cfg.MigrateOnStart {
				// The migration path also creates the database when missing.
				conn, err = migrations.RunClickhouseMigrations(ctx, cfg.DatabaseDSN)
			} else {
				conn, err = clickhouse.NewConn(ctx, cfg.DatabaseDSN)
			}
			if err != nil {
				return nil, nil, fmt.Errorf("connect clickhouse: %w", err)
			}
			return clickhouse.NewAdapter(conn, opts), func() { conn.Close() }, nil

		default:
			return nil, nil, &domain.ConfigurationError{
				Param:  "DATABASE_DSN",
				Value:  cfg.DatabaseDSN,
				Reason: "scheme must be postgres:// or clickhouse://",
			}
		}

	default:
		return nil, nil, &domain.ConfigurationError{
			Param:  "DATA_SOURCE",
			Value:  cfg.DataSource,
			Reason: "must be database, csv, or sample",
		}
	}
}
