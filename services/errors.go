package services

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrLinkNotFound means no link row exists for the given id.
	ErrLinkNotFound = errors.New("link not found")

	// ErrInvalidCredentials is returned for any failed admin login.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken covers malformed, expired and wrongly signed admin tokens.
	ErrInvalidToken = errors.New("invalid token")

	// ErrEmptyCatalog is returned when a reward catalog would have no entries.
	ErrEmptyCatalog = errors.New("reward catalog is empty")

	// ErrDuplicateReward is returned when two catalog names slug to the same code.
	ErrDuplicateReward = errors.New("duplicate reward")
)

// Postgres SQLSTATE codes that can end a claim transaction.
const (
	pgLockNotAvailable     = "55P03"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgQueryCanceled        = "57014"
)

// DescribeStoreError gives a short label for a data-store failure, used in logs.
func DescribeStoreError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrLinkNotFound) {
		return "not_found"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable:
			return "lock_timeout"
		case pgSerializationFailure:
			return "serialization_failure"
		case pgDeadlockDetected:
			return "deadlock"
		case pgQueryCanceled:
			return "statement_timeout"
		default:
			return fmt.Sprintf("pg_%s", pgErr.Code)
		}
	}
	return "store_error"
}
