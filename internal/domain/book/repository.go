package book

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Filter narrows the public browse listing.
type Filter struct {
	Query         *string
	Author        *string
	Condition     *Condition
	MinPoints     *int
	MaxPoints     *int
	Location      *string
	AvailableOnly bool
}

type Pagination struct {
	Page  int
	Limit int
}

// ValuationCounts feeds the suggested-value formula.
type ValuationCounts struct {
	Wishlist           int `db:"wishlist"`
	PendingExchanges   int `db:"pending"`
	CompletedExchanges int `db:"completed"`
	AvailableCopies    int `db:"copies"`
}

type Repository interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, b *Book) error
	ExistsActiveListing(ctx context.Context, ownerID uuid.UUID, title, author string) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Book, error)
	GetByPermanentID(ctx context.Context, permanentID uuid.UUID) (*Book, error)
	GetByQRCodeID(ctx context.Context, code string) (*Book, error)
	GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Book, error)
	List(ctx context.Context, filter *Filter, pagination *Pagination) ([]*Book, int, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, pagination *Pagination) ([]*Book, int, error)
	TransferOwnershipTx(ctx context.Context, tx *sqlx.Tx, bookID, fromID, toID uuid.UUID) error
	SetAvailabilityTx(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID, available bool) error
	RetireTx(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID) error
	UpdateCoverURLs(ctx context.Context, bookID uuid.UUID, coverURL, thumbURL string) error
	AppendHistory(ctx context.Context, e *HistoryEntry) error
	AppendHistoryTx(ctx context.Context, tx *sqlx.Tx, e *HistoryEntry) error
	ListHistory(ctx context.Context, bookID uuid.UUID) ([]*HistoryEntry, error)
	HasPendingExchangeTx(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID) (bool, error)
	HasCompletedExchangeTx(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID) (bool, error)
	ValuationCounts(ctx context.Context, bookID uuid.UUID) (*ValuationCounts, error)
}

type repository struct {
	db *sqlx.DB
}

const bookSelectColumns = `
	b.id, b.permanent_id, b.qr_code_id, b.title, b.author, b.condition,
	b.description, b.location, b.point_value, b.owner_id, b.is_available,
	b.retired, b.cover_url, b.cover_thumb_url, b.created_at, b.updated_at
`

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateTx(ctx context.Context, tx *sqlx.Tx, b *Book) error {
	query := `
		INSERT INTO books (
			id, permanent_id, qr_code_id, title, author, condition,
			description, location, point_value, owner_id, is_available
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11
		)
		RETURNING created_at, updated_at
	`

	err := tx.QueryRowxContext(ctx, query,
		b.ID, b.PermanentID, b.QRCodeID, b.Title, b.Author, b.Condition,
		b.Description, b.Location, b.PointValue, b.OwnerID, b.IsAvailable,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			constraint := strings.ToLower(pqErr.Constraint)
			if strings.Contains(constraint, "permanent_id") || strings.Contains(constraint, "qr_code_id") {
				return fmt.Errorf("%w: %w", errIdentityCollision, err)
			}
		}
		return err
	}
	return nil
}

func (r *repository) ExistsActiveListing(ctx context.Context, ownerID uuid.UUID, title, author string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM books
			WHERE owner_id = $1
			  AND lower(title) = lower($2)
			  AND lower(author) = lower($3)
			  AND NOT retired
		)
	`, ownerID, title, author)
	return exists, err
}

func (r *repository) getBy(ctx context.Context, where string, arg interface{}) (*Book, error) {
	query := `
		SELECT ` + bookSelectColumns + `, u.display_name AS owner_display_name
		FROM books b
		LEFT JOIN users u ON u.id = b.owner_id
		WHERE ` + where

	var b Book
	err := r.db.GetContext(ctx, &b, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Book, error) {
	return r.getBy(ctx, "b.id = $1", id)
}

func (r *repository) GetByPermanentID(ctx context.Context, permanentID uuid.UUID) (*Book, error) {
	return r.getBy(ctx, "b.permanent_id = $1", permanentID)
}

func (r *repository) GetByQRCodeID(ctx context.Context, code string) (*Book, error) {
	return r.getBy(ctx, "b.qr_code_id = $1", code)
}

func (r *repository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Book, error) {
	query := `
		SELECT ` + bookSelectColumns + `
		FROM books b
		WHERE b.id = $1
		FOR UPDATE
	`

	var b Book
	err := tx.GetContext(ctx, &b, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) List(ctx context.Context, filter *Filter, pagination *Pagination) ([]*Book, int, error) {
	conditions := []string{"NOT b.retired"}
	args := []interface{}{}
	argIndex := 1

	if filter.AvailableOnly {
		conditions = append(conditions, "b.is_available = TRUE")
	}

	if filter.Query != nil && *filter.Query != "" {
		conditions = append(conditions, fmt.Sprintf("(b.title ILIKE $%d OR b.author ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+*filter.Query+"%")
		argIndex++
	}

	if filter.Author != nil && *filter.Author != "" {
		conditions = append(conditions, fmt.Sprintf("b.author ILIKE $%d", argIndex))
		args = append(args, "%"+*filter.Author+"%")
		argIndex++
	}

	if filter.Condition != nil {
		conditions = append(conditions, fmt.Sprintf("b.condition = $%d", argIndex))
		args = append(args, *filter.Condition)
		argIndex++
	}

	if filter.MinPoints != nil {
		conditions = append(conditions, fmt.Sprintf("b.point_value >= $%d", argIndex))
		args = append(args, *filter.MinPoints)
		argIndex++
	}

	if filter.MaxPoints != nil {
		conditions = append(conditions, fmt.Sprintf("b.point_value <= $%d", argIndex))
		args = append(args, *filter.MaxPoints)
		argIndex++
	}

	if filter.Location != nil && *filter.Location != "" {
		conditions = append(conditions, fmt.Sprintf("b.location ILIKE $%d", argIndex))
		args = append(args, "%"+*filter.Location+"%")
		argIndex++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM books b %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	offset := (pagination.Page - 1) * pagination.Limit
	query := fmt.Sprintf(`
		SELECT %s, u.display_name AS owner_display_name
		FROM books b
		LEFT JOIN users u ON u.id = b.owner_id
		%s
		ORDER BY b.created_at DESC
		LIMIT $%d OFFSET $%d
	`, bookSelectColumns, where, argIndex, argIndex+1)
	args = append(args, pagination.Limit, offset)

	books := []*Book{}
	if err := r.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, 0, err
	}

	return books, total, nil
}

func (r *repository) ListByOwner(ctx context.Context, ownerID uuid.UUID, pagination *Pagination) ([]*Book, int, error) {
	countQuery := `SELECT COUNT(*) FROM books WHERE owner_id = $1 AND NOT retired`
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, ownerID); err != nil {
		return nil, 0, err
	}

	offset := (pagination.Page - 1) * pagination.Limit
	query := `
		SELECT ` + bookSelectColumns + `, u.display_name AS owner_display_name
		FROM books b
		LEFT JOIN users u ON u.id = b.owner_id
		WHERE b.owner_id = $1 AND NOT b.retired
		ORDER BY b.created_at DESC
		LIMIT $2 OFFSET $3
	`

	books := []*Book{}
	if err := r.db.SelectContext(ctx, &books, query, ownerID, pagination.Limit, offset); err != nil {
		return nil, 0, err
	}

	return books, total, nil
}

// TransferOwnershipTx is a compare-and-swap: the write only lands if the
// current owner still matches. Zero rows means the ownership changed
// underneath the caller.
func (r *repository) TransferOwnershipTx(ctx context.Context, tx *sqlx.Tx, bookID, fromID, toID uuid.UUID) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE books SET owner_id = $3, updated_at = now()
		WHERE id = $1 AND owner_id = $2
	`, bookID, fromID, toID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrOwnershipMismatch
	}
	return nil
}

func (r *repository) SetAvailabilityTx(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID, available bool) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE books SET is_available = $2, updated_at = now() WHERE id = $1
	`, bookID, available)
	return err
}

func (r *repository) RetireTx(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE books SET retired = TRUE, is_available = FALSE, updated_at = now() WHERE id = $1
	`, bookID)
	return err
}

func (r *repository) UpdateCoverURLs(ctx context.Context, bookID uuid.UUID, coverURL, thumbURL string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE books SET cover_url = $2, cover_thumb_url = $3, updated_at = now() WHERE id = $1
	`, bookID, coverURL, thumbURL)
	return err
}

func (r *repository) AppendHistory(ctx context.Context, e *HistoryEntry) error {
	return r.appendHistory(ctx, r.db, e)
}

func (r *repository) AppendHistoryTx(ctx context.Context, tx *sqlx.Tx, e *HistoryEntry) error {
	return r.appendHistory(ctx, tx, e)
}

func (r *repository) appendHistory(ctx context.Context, execer sqlx.ExtContext, e *HistoryEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	return execer.QueryRowxContext(ctx, `
		INSERT INTO book_history (id, book_id, actor_user_id, action, city, reading_duration_days, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, e.ID, e.BookID, e.ActorUserID, e.Action, e.City, e.ReadingDurationDays, e.Notes).Scan(&e.CreatedAt)
}

func (r *repository) ListHistory(ctx context.Context, bookID uuid.UUID) ([]*HistoryEntry, error) {
	entries := []*HistoryEntry{}
	err := r.db.SelectContext(ctx, &entries, `
		SELECT h.id, h.book_id, h.actor_user_id, h.action, h.city,
		       h.reading_duration_days, h.notes, h.created_at,
		       u.display_name AS actor_display_name
		FROM book_history h
		LEFT JOIN users u ON u.id = h.actor_user_id
		WHERE h.book_id = $1
		ORDER BY h.created_at DESC, h.id DESC
	`, bookID)
	return entries, err
}

func (r *repository) HasPendingExchangeTx(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM exchange_requests
			WHERE book_id = $1 AND status IN ('pending', 'approved')
		)
	`, bookID)
	return exists, err
}

func (r *repository) HasCompletedExchangeTx(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM exchange_requests
			WHERE book_id = $1 AND status = 'completed'
		)
	`, bookID)
	return exists, err
}

func (r *repository) ValuationCounts(ctx context.Context, bookID uuid.UUID) (*ValuationCounts, error) {
	var counts ValuationCounts
	err := r.db.GetContext(ctx, &counts, `
		SELECT
			(SELECT COUNT(*) FROM wishlist_items w WHERE w.book_id = b.id) AS wishlist,
			(SELECT COUNT(*) FROM exchange_requests e WHERE e.book_id = b.id AND e.status IN ('pending', 'approved')) AS pending,
			(SELECT COUNT(*) FROM exchange_requests e WHERE e.book_id = b.id AND e.status = 'completed') AS completed,
			(SELECT COUNT(*) FROM books c
				WHERE lower(c.title) = lower(b.title)
				  AND lower(c.author) = lower(b.author)
				  AND c.is_available AND NOT c.retired) AS copies
		FROM books b
		WHERE b.id = $1
	`, bookID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	return &counts, nil
}
