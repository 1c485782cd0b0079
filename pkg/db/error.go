package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes the repositories react to.
const (
	pgUniqueViolation      = "23505"
	pgUndefinedFunction    = "42883"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgTooManyConnections   = "53300"
	pgAdminShutdown        = "57P01"
	pgCannotConnectNow     = "57P03"
)

// ErrStoreUnavailable marks a read or write that could not be served by the
// store. Domain packages re-export it so callers match one sentinel.
var ErrStoreUnavailable = errors.New("store_unavailable")

// Unavailable wraps err so it matches ErrStoreUnavailable and still unwraps
// to the driver error.
func Unavailable(err error) error {
	if err == nil || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	if hasPGCode(err, pgUniqueViolation) {
		return true
	}

	msg := err.Error()
	// PostgreSQL through other drivers (23505)
	if strings.Contains(msg, "duplicate key value violates unique constraint") {
		return true
	}
	// MySQL (1062)
	if strings.Contains(msg, "Error 1062") {
		return true
	}
	// SQLite (2067)
	return strings.Contains(msg, "UNIQUE constraint failed")
}

// IsUndefinedFunction reports a call to a stored function the database does
// not have.
func IsUndefinedFunction(err error) bool {
	if hasPGCode(err, pgUndefinedFunction) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "no such function")
}

// IsConflict reports errors a transaction loses to a concurrent writer.
func IsConflict(err error) bool {
	return hasPGCode(err, pgSerializationFailure, pgDeadlockDetected)
}

// IsUnavailable reports errors where the store could not be reached or
// refused to serve the request. The statement did not run.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "08") ||
			pgErr.Code == pgTooManyConnections ||
			pgErr.Code == pgAdminShutdown ||
			pgErr.Code == pgCannotConnectNow
	}
	var netErr net.Error
	if errors.As(err, &netErr) && !netErr.Timeout() {
		return true
	}
	return false
}

// IsAmbiguous reports errors after which a write may or may not have been
// applied: the caller gave up waiting, not the database.
func IsAmbiguous(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func hasPGCode(err error, codes ...string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	for _, code := range codes {
		if pgErr.Code == code {
			return true
		}
	}
	return false
}
