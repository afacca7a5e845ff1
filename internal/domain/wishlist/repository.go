package wishlist

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/booksexchange/booksexchange-api/internal/domain/book"
)

// ErrAlreadyWishlisted is returned when the book is already on the list
var ErrAlreadyWishlisted = errors.New("book already wishlisted")

// ErrOwnBook is returned when a user wishes for a book they own
var ErrOwnBook = errors.New("cannot wishlist your own book")

// Item represents a wishlist entry
type Item struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	BookID    uuid.UUID `json:"book_id" db:"book_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// WishedBook is a wishlist entry joined with the book it points at
type WishedBook struct {
	BookID      uuid.UUID      `json:"book_id" db:"book_id"`
	Title       string         `json:"title" db:"title"`
	Author      string         `json:"author" db:"author"`
	Condition   book.Condition `json:"condition" db:"condition"`
	PointValue  int            `json:"point_value" db:"point_value"`
	IsAvailable bool           `json:"is_available" db:"is_available"`
	Retired     bool           `json:"retired" db:"retired"`
	AddedAt     time.Time      `json:"added_at" db:"added_at"`
}

// Repository handles wishlist database operations
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Add puts a book on the user's wishlist
func (r *Repository) Add(ctx context.Context, userID, bookID uuid.UUID) (*Item, error) {
	var target struct {
		OwnerID *uuid.UUID `db:"owner_id"`
		Retired bool       `db:"retired"`
	}
	err := r.db.GetContext(ctx, &target,
		`SELECT owner_id, retired FROM books WHERE id = $1`, bookID)
	if err == sql.ErrNoRows {
		return nil, book.ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	if target.Retired {
		return nil, book.ErrBookNotFound
	}
	if target.OwnerID != nil && *target.OwnerID == userID {
		return nil, ErrOwnBook
	}

	item := &Item{
		ID:        uuid.New(),
		UserID:    userID,
		BookID:    bookID,
		CreatedAt: time.Now(),
	}

	query := `
		INSERT INTO wishlist_items (id, user_id, book_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, book_id) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query, item.ID, item.UserID, item.BookID, item.CreatedAt)
	if err != nil {
		return nil, err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, ErrAlreadyWishlisted
	}
	return item, nil
}

// Remove takes a book off the user's wishlist
func (r *Repository) Remove(ctx context.Context, userID, bookID uuid.UUID) error {
	query := `DELETE FROM wishlist_items WHERE user_id = $1 AND book_id = $2`

	result, err := r.db.ExecContext(ctx, query, userID, bookID)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListMine returns the user's wished books, most recently added first
func (r *Repository) ListMine(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*WishedBook, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM wishlist_items WHERE user_id = $1`, userID)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT b.id AS book_id, b.title, b.author, b.condition, b.point_value,
		       b.is_available, b.retired, wi.created_at AS added_at
		FROM wishlist_items wi
		JOIN books b ON b.id = wi.book_id
		WHERE wi.user_id = $1
		ORDER BY wi.created_at DESC
		LIMIT $2 OFFSET $3
	`
	items := []*WishedBook{}
	if err := r.db.SelectContext(ctx, &items, query, userID, limit, offset); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// UsersWanting returns ids of users with the book on their wishlist,
// excluding the current owner. Feed for book_available alerts.
func (r *Repository) UsersWanting(ctx context.Context, bookID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT wi.user_id
		FROM wishlist_items wi
		JOIN books b ON b.id = wi.book_id
		WHERE wi.book_id = $1
		  AND (b.owner_id IS NULL OR wi.user_id <> b.owner_id)
	`

	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, query, bookID)
	return ids, err
}
