package errors

import (
	"context"
	stderrs "errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// sqlState describes how one Postgres SQLSTATE is surfaced
type sqlState struct {
	code  ErrorCode
	retry bool
}

// sqlStates lists the states the seen store can hit; anything else is a plain DB error
var sqlStates = map[string]sqlState{
	"23505": {ErrorCodeDuplicateKey, false},    // unique_violation
	"23502": {ErrorCodeValidation, false},      // not_null_violation
	"23514": {ErrorCodeValidation, false},      // check_violation
	"22001": {ErrorCodeInvalidArgument, false}, // string_data_right_truncation
	"40001": {ErrorCodeDB, true},               // serialization_failure
	"40P01": {ErrorCodeDB, true},               // deadlock_detected
	"55P03": {ErrorCodeDB, true},               // lock_not_available
	"25006": {ErrorCodeUnavailable, false},     // read_only_sql_transaction (failover in progress)
	"57P01": {ErrorCodeUnavailable, true},      // admin_shutdown
	"57P03": {ErrorCodeUnavailable, true},      // cannot_connect_now
}

// rollbackTexts are pgx messages that carry no SQLSTATE but mean the statement can be replayed
var rollbackTexts = []string{
	"commit unexpectedly resulted in rollback",
	"deadlock detected",
	"could not serialize access",
	"terminating connection due to administrator command",
}

func pgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	ok := stderrs.As(err, &pgErr)
	return pgErr, ok
}

// FromPostgres wraps err with the ErrorCode its SQLSTATE maps to (ErrorCodeDB when
// unmapped or not a server error). nil stays nil
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	code := ErrorCodeDB
	if pgErr, ok := pgError(err); ok {
		if st, known := sqlStates[pgErr.Code]; known {
			code = st.code
		}
	}
	return Wrap(err, code, msg)
}

// IsRetryable reports whether replaying the statement may succeed: contention and
// restart states, or a connection failure pgx knows happened before anything was sent.
// Context cancellation never is
func IsRetryable(err error) bool {
	if err == nil || stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	if pgErr, ok := pgError(err); ok {
		return sqlStates[pgErr.Code].retry
	}
	if pgconn.SafeToRetry(err) {
		return true
	}
	msg := strings.ToLower(Root(err).Error())
	for _, t := range rollbackTexts {
		if strings.Contains(msg, t) {
			return true
		}
	}
	return false
}
