package sqlstore

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/uvgride/grouprides/internal/domain"
)

// Postgres SQLSTATEs that mean "try again later".
const (
	codeLockNotAvailable     = "55P03"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
)

// wrap annotates err with the failed operation. Lock waits that ran out of
// budget, deadlocks and serialization failures become domain.ErrBusy so
// callers can retry.
func wrap(op string, err error) error {
	if isBusy(err) {
		return fmt.Errorf("%w: failed to %s: %v", domain.ErrBusy, op, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func isBusy(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return busyCode(string(pqErr.Code))
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return busyCode(pgErr.Code)
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}
	return false
}

func busyCode(code string) bool {
	switch code {
	case codeLockNotAvailable, codeSerializationFailure, codeDeadlockDetected:
		return true
	}
	return false
}

// isUniqueViolation reports whether err is a unique constraint failure.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == codeUniqueViolation
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeUniqueViolation
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
