// Package sqldb stores sales in a relational database through sqlx. The same
// queries run on PostgreSQL (lib/pq or pgx) and SQLite (modernc); placeholders
// are written as '?' and rebound per driver.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/config"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

type Connection struct {
	db      *sqlx.DB
	dialect Dialect
}

func NewConnection(ctx context.Context, cfg config.DatabaseConfig) (*Connection, error) {
	var (
		db      *sqlx.DB
		dialect Dialect
		err     error
	)

	switch cfg.Driver {
	case config.DriverPostgres, config.DriverPgx:
		db, err = sqlx.Open(cfg.Driver, cfg.GetDSN())
		dialect = DialectPostgres
	case config.DriverSQLite:
		db, err = sqlx.Open("sqlite", sqliteDSN(cfg.Path))
		dialect = DialectSQLite
	default:
		return nil, fmt.Errorf("sqldb: unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if dialect == DialectSQLite {
		// SQLite allows one writer; a single connection turns lock errors into queueing.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(time.Hour)
		db.SetConnMaxIdleTime(30 * time.Minute)
	}

	return &Connection{db: db, dialect: dialect}, nil
}

func sqliteDSN(path string) string {
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "busy_timeout(5000)")
	params.Add("_pragma", "journal_mode(WAL)")
	return "file:" + path + "?" + params.Encode()
}

func (c *Connection) Close() error {
	return c.db.Close()
}

func (c *Connection) GetDB() *sql.DB {
	return c.db.DB
}

func (c *Connection) Dialect() Dialect {
	return c.dialect
}
