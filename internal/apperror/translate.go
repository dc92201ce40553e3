package apperror

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PostgreSQL SQLSTATE codes handled by the translator.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgNotNullViolation     = "23502"
	pgCheckViolation       = "23514"
	pgInvalidTextRepr      = "22P02"
	pgNumericOutOfRange    = "22003"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgTooManyConnections   = "53300"
	pgAdminShutdown        = "57P01"
	pgCannotConnectNow     = "57P03"
)

// FromDB maps a datastore error onto the taxonomy. Errors that already carry
// a kind pass through untouched.
func FromDB(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return Wrap(KindNotFound, "Resource not found", err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Wrap(KindConflict, "Resource already exists", err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return Wrap(KindValidation, "Referenced resource does not exist", err)
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return Wrap(KindValidation, "Value violates a constraint", err)
	case isUnavailable(err):
		return Unavailable(err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return Wrap(KindConflict, "Resource already exists", err)
		case pgForeignKeyViolation:
			return Wrap(KindValidation, "Referenced resource does not exist", err)
		case pgNotNullViolation:
			return Wrap(KindValidation, "Required field is missing", err)
		case pgCheckViolation:
			return Wrap(KindValidation, "Value violates a constraint", err)
		case pgInvalidTextRepr:
			return Wrap(KindValidation, "Invalid data format", err)
		case pgNumericOutOfRange:
			return Wrap(KindValidation, "Numeric value out of range", err)
		case pgTooManyConnections, pgAdminShutdown, pgCannotConnectNow, pgSerializationFailure, pgDeadlockDetected:
			return Unavailable(err)
		}
	}

	return Internal(err)
}

// IsTxConflict reports whether a transaction lost a serialization race and
// can be replayed from the start.
func IsTxConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}
	return false
}

func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
