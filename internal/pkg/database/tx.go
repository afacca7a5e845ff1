package database

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrTxRetryExhausted is returned when a transaction keeps hitting
// serialization conflicts after the maximum number of attempts. Callers
// surface it as a generic "busy, try again" outcome, never as a domain error.
var ErrTxRetryExhausted = errors.New("transaction retry limit exceeded")

const maxTxAttempts = 5

// WithTx runs fn inside a serializable transaction, retrying on
// serialization failures and deadlocks (pq 40001/40P01) with quadratic
// backoff. fn must be safe to re-run from scratch: any side effect outside
// the transaction would be applied once per attempt.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			if isRetryablePGError(err) {
				if attempt < maxTxAttempts {
					sleepWithBackoff(attempt)
					continue
				}
				return ErrTxRetryExhausted
			}
			return err
		}
		if err := tx.Commit(); err != nil {
			if isRetryablePGError(err) {
				if attempt < maxTxAttempts {
					sleepWithBackoff(attempt)
					continue
				}
				return ErrTxRetryExhausted
			}
			return err
		}
		return nil
	}
	return ErrTxRetryExhausted
}

func isRetryablePGError(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}

func sleepWithBackoff(attempt int) {
	base := 20 * time.Millisecond
	backoff := time.Duration(attempt*attempt) * base
	jitter := time.Duration(rand.Int63n(int64(10 * time.Millisecond)))
	time.Sleep(backoff + jitter)
}
