package monitoring

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
)

type DBMetricsCollector struct {
	db *sql.DB
}

func NewDBMetricsCollector(db *sql.DB) *DBMetricsCollector {
	return &DBMetricsCollector{
		db: db,
	}
}

func (c *DBMetricsCollector) StartCollecting(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.collectMetrics()
			}
		}
	}()
}

func (c *DBMetricsCollector) collectMetrics() {
	stats := c.db.Stats()

	DBConnectionsActive.Set(float64(stats.InUse))
	DBConnectionsIdle.Set(float64(stats.Idle))
}

// The Instrument helpers accept either *sqlx.DB or *sqlx.Tx.

func InstrumentGet(ctx context.Context, q sqlx.QueryerContext, dest interface{}, queryType, table, query string, args ...interface{}) error {
	end := TimeDBQuery(queryType, table)
	defer end()

	return sqlx.GetContext(ctx, q, dest, query, args...)
}

func InstrumentSelect(ctx context.Context, q sqlx.QueryerContext, dest interface{}, queryType, table, query string, args ...interface{}) error {
	end := TimeDBQuery(queryType, table)
	defer end()

	return sqlx.SelectContext(ctx, q, dest, query, args...)
}

func InstrumentExec(ctx context.Context, e sqlx.ExecerContext, queryType, table, query string, args ...interface{}) (sql.Result, error) {
	end := TimeDBQuery(queryType, table)
	defer end()

	return e.ExecContext(ctx, query, args...)
}

func InstrumentQueryRow(ctx context.Context, q sqlx.QueryerContext, queryType, table, query string, args ...interface{}) *sqlx.Row {
	end := TimeDBQuery(queryType, table)
	defer end()

	return q.QueryRowxContext(ctx, query, args...)
}
