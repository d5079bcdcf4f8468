package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func sqlErr(state string) error {
	return fmt.Errorf("exec: %w", &pgconn.PgError{Code: state, Message: "server said no"})
}

func TestFromPostgresMapsSQLState(t *testing.T) {
	cases := map[string]ErrorCode{
		"23505": ErrorCodeDuplicateKey,
		"23502": ErrorCodeValidation,
		"22001": ErrorCodeInvalidArgument,
		"40001": ErrorCodeDB,
		"57P03": ErrorCodeUnavailable,
		"42P01": ErrorCodeDB, // undefined_table is unmapped
	}
	for state, want := range cases {
		if got := CodeOf(FromPostgres(sqlErr(state), "insert seen record")); got != want {
			t.Fatalf("SQLSTATE %s -> %v, want %v", state, got, want)
		}
	}
	if FromPostgres(nil, "x") != nil {
		t.Fatalf("nil must stay nil")
	}
	if got := CodeOf(FromPostgres(stderrs.New("dial tcp: refused"), "load")); got != ErrorCodeDB {
		t.Fatalf("non-server error -> %v", got)
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := []error{
		sqlErr("40001"),
		sqlErr("40P01"),
		Wrap(sqlErr("57P01"), ErrorCodeStorage, "record"),
		stderrs.New("commit unexpectedly resulted in rollback"),
	}
	for _, err := range retryable {
		if !IsRetryable(err) || !Retryable(err) {
			t.Fatalf("%v should be retryable", err)
		}
	}
	final := []error{
		nil,
		context.Canceled,
		fmt.Errorf("query: %w", context.DeadlineExceeded),
		sqlErr("23505"),
		sqlErr("25006"),
		stderrs.New("syntax error at or near"),
	}
	for _, err := range final {
		if IsRetryable(err) {
			t.Fatalf("%v must not be retryable", err)
		}
	}
}
