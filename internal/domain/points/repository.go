package points

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) EnsureAccount(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO point_accounts (user_id, balance)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	return err
}

func (r *Repository) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	if err := r.EnsureAccount(ctx, userID); err != nil {
		return 0, err
	}

	var balance int64
	err := r.db.GetContext(ctx, &balance, `SELECT balance FROM point_accounts WHERE user_id = $1`, userID)
	return balance, err
}

func (r *Repository) beginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

func (r *Repository) lockAccount(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (int64, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO point_accounts (user_id, balance)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID); err != nil {
		return 0, err
	}

	var balance int64
	err := tx.GetContext(ctx, &balance, `SELECT balance FROM point_accounts WHERE user_id = $1 FOR UPDATE`, userID)
	return balance, err
}

// lockTwoAccounts locks both account rows in ascending user id order so that
// concurrent transfers between the same pair cannot deadlock.
func (r *Repository) lockTwoAccounts(ctx context.Context, tx *sqlx.Tx, a, b uuid.UUID) error {
	first, second := a, b
	if bytes.Compare(second[:], first[:]) < 0 {
		first, second = second, first
	}

	if _, err := r.lockAccount(ctx, tx, first); err != nil {
		return err
	}
	_, err := r.lockAccount(ctx, tx, second)
	return err
}

func (r *Repository) findByReference(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, reason Reason, reference string) (uuid.UUID, int64, bool, error) {
	if reference == "" {
		return uuid.Nil, 0, false, nil
	}

	var row struct {
		ID    uuid.UUID `db:"id"`
		Delta int64     `db:"delta"`
	}
	err := tx.GetContext(ctx, &row, `
		SELECT id, delta
		FROM point_transactions
		WHERE user_id = $1 AND reason = $2 AND reference = $3
		LIMIT 1
	`, userID, string(reason), reference)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, 0, false, nil
	}
	if err != nil {
		return uuid.Nil, 0, false, err
	}
	return row.ID, row.Delta, true, nil
}

func (r *Repository) updateBalance(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, balance int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE point_accounts SET balance = $1, updated_at = now() WHERE user_id = $2`, balance, userID)
	return err
}

func (r *Repository) insertTransaction(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, delta int64, reason Reason, meta TxMeta) (uuid.UUID, error) {
	var ref interface{}
	if meta.Reference != "" {
		ref = meta.Reference
	}

	var id uuid.UUID
	err := tx.GetContext(ctx, &id, `
		INSERT INTO point_transactions (user_id, delta, reason, related_exchange_id, reference, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, userID, delta, string(reason), meta.RelatedExchangeID, ref, meta.Description)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return uuid.Nil, ErrDuplicateReference
		}
		return uuid.Nil, err
	}
	return id, nil
}

// applyTx writes one ledger entry and moves the materialized balance inside
// the caller's transaction. It does not commit or roll back. A reference
// already recorded with the same delta is a no-op replay and returns the
// original entry; the same reference with a different delta is a conflict.
func (r *Repository) applyTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, delta int64, reason Reason, meta TxMeta) (uuid.UUID, bool, error) {
	balance, err := r.lockAccount(ctx, tx, userID)
	if err != nil {
		return uuid.Nil, false, err
	}

	existingID, existingDelta, exists, err := r.findByReference(ctx, tx, userID, reason, meta.Reference)
	if err != nil {
		return uuid.Nil, false, err
	}
	if exists {
		if existingDelta != delta {
			return uuid.Nil, false, ErrReferenceConflict
		}
		return existingID, false, nil
	}

	nextBalance := balance + delta
	if nextBalance < 0 {
		return uuid.Nil, false, ErrInsufficientPoints
	}

	// findByReference ran under the account lock and saw nothing, so a
	// duplicate key here means a writer bypassed the lock discipline. The
	// transaction is aborted at that point; nothing to recover in-tx.
	id, err := r.insertTransaction(ctx, tx, userID, delta, reason, meta)
	if err != nil {
		return uuid.Nil, false, err
	}

	if err := r.updateBalance(ctx, tx, userID, nextBalance); err != nil {
		return uuid.Nil, false, err
	}

	return id, true, nil
}

func (r *Repository) apply(ctx context.Context, userID uuid.UUID, delta int64, reason Reason, meta TxMeta) (uuid.UUID, bool, error) {
	tx, err := r.beginTx(ctx)
	if err != nil {
		return uuid.Nil, false, err
	}
	defer tx.Rollback()

	id, applied, err := r.applyTx(ctx, tx, userID, delta, reason, meta)
	if err != nil {
		return uuid.Nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, false, err
	}
	return id, applied, nil
}

func (r *Repository) Credit(ctx context.Context, userID uuid.UUID, amount int64, reason Reason, meta TxMeta) (uuid.UUID, bool, error) {
	return r.apply(ctx, userID, amount, reason, meta)
}

func (r *Repository) Debit(ctx context.Context, userID uuid.UUID, amount int64, reason Reason, meta TxMeta) (uuid.UUID, bool, error) {
	return r.apply(ctx, userID, -amount, reason, meta)
}

// CreditTx credits within an external transaction. The caller owns the
// transaction and is responsible for commit and rollback.
func (r *Repository) CreditTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int64, reason Reason, meta TxMeta) (uuid.UUID, error) {
	id, _, err := r.applyTx(ctx, tx, userID, amount, reason, meta)
	return id, err
}

// DebitTx debits within an external transaction. Returns
// ErrInsufficientPoints while holding the account row lock, so the check
// cannot race a concurrent spend.
func (r *Repository) DebitTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int64, reason Reason, meta TxMeta) (uuid.UUID, error) {
	id, _, err := r.applyTx(ctx, tx, userID, -amount, reason, meta)
	return id, err
}

// TransferTx moves amount from one account to the other inside the caller's
// transaction, writing a debit and a credit entry that reference the same
// exchange. Fails with ErrInsufficientPoints before either side is written.
func (r *Repository) TransferTx(ctx context.Context, tx *sqlx.Tx, fromID, toID uuid.UUID, amount int64, exchangeID uuid.UUID) (debitID, creditID uuid.UUID, err error) {
	if err = r.lockTwoAccounts(ctx, tx, fromID, toID); err != nil {
		return uuid.Nil, uuid.Nil, err
	}

	ref := exchangeID.String()
	debitID, err = r.DebitTx(ctx, tx, fromID, amount, ReasonExchangeDebit, TxMeta{
		RelatedExchangeID: &exchangeID,
		Reference:         ref,
	})
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}

	creditID, err = r.CreditTx(ctx, tx, toID, amount, ReasonExchangeCredit, TxMeta{
		RelatedExchangeID: &exchangeID,
		Reference:         ref,
	})
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}

	return debitID, creditID, nil
}

func (r *Repository) GetTransaction(ctx context.Context, userID, txID uuid.UUID) (*Transaction, error) {
	var t Transaction
	err := r.db.GetContext(ctx, &t, `
		SELECT id, user_id, delta, reason, related_exchange_id, reference, description, created_at
		FROM point_transactions
		WHERE id = $1 AND user_id = $2
	`, txID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) ListTransactions(ctx context.Context, userID uuid.UUID, filter Filter, p Pagination) ([]Transaction, int, error) {
	where := "WHERE user_id = $1"
	args := []interface{}{userID}
	argIndex := 2

	if filter.Reason != nil {
		where += fmt.Sprintf(" AND reason = $%d", argIndex)
		args = append(args, string(*filter.Reason))
		argIndex++
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM point_transactions "+where, args...); err != nil {
		return nil, 0, err
	}

	items := []Transaction{}
	query := fmt.Sprintf(`
		SELECT id, user_id, delta, reason, related_exchange_id, reference, description, created_at
		FROM point_transactions
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, where, argIndex, argIndex+1)
	args = append(args, p.Limit, p.Offset())
	err := r.db.SelectContext(ctx, &items, query, args...)
	return items, total, err
}

func (r *Repository) GetStats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	if err := r.EnsureAccount(ctx, userID); err != nil {
		return nil, err
	}

	var s Stats
	err := r.db.GetContext(ctx, &s, `
		SELECT
			a.balance,
			COALESCE(SUM(t.delta) FILTER (WHERE t.delta > 0), 0) AS total_earned,
			COALESCE(-SUM(t.delta) FILTER (WHERE t.delta < 0), 0) AS total_spent,
			COALESCE(SUM(t.delta) FILTER (WHERE t.reason = 'purchase'), 0) AS total_purchased,
			COUNT(t.id) AS count
		FROM point_accounts a
		LEFT JOIN point_transactions t ON t.user_id = a.user_id
		WHERE a.user_id = $1
		GROUP BY a.balance
	`, userID)
	return &s, err
}

// RecomputeBalance resets the materialized balance to the sum of the user's
// ledger entries. Returns the stored and recomputed values; they differ only
// when the materialized row has drifted from the log.
func (r *Repository) RecomputeBalance(ctx context.Context, userID uuid.UUID) (stored, computed int64, err error) {
	tx, err := r.beginTx(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	stored, err = r.lockAccount(ctx, tx, userID)
	if err != nil {
		return 0, 0, err
	}

	if err = tx.GetContext(ctx, &computed, `
		SELECT COALESCE(SUM(delta), 0) FROM point_transactions WHERE user_id = $1
	`, userID); err != nil {
		return 0, 0, err
	}

	if stored != computed {
		if err = r.updateBalance(ctx, tx, userID, computed); err != nil {
			return 0, 0, err
		}
	}

	return stored, computed, tx.Commit()
}

func (r *Repository) ListAccountIDs(ctx context.Context) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := r.db.SelectContext(ctx, &ids, `SELECT user_id FROM point_accounts ORDER BY user_id`)
	return ids, err
}
