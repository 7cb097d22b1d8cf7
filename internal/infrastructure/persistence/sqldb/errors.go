package sqldb

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"

	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
)

const (
	sqliteBusy   = 5
	sqliteLocked = 6
)

// classify maps driver errors that a retry can resolve (serialization
// failures, deadlocks, lock timeouts, busy SQLite files) to ErrContention.
func classify(err error) error {
	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if isRetryable(err) {
		return fmt.Errorf("%w: %v", domainErrors.ErrContention, err)
	}
	return err
}

func isRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "40" || pqErr.Code == "55P03"
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return len(pgErr.Code) >= 2 && (pgErr.Code[:2] == "40" || pgErr.Code == "55P03")
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code() & 0xff
		return code == sqliteBusy || code == sqliteLocked
	}

	return false
}
