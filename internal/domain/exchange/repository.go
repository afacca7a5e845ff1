package exchange

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Filter narrows ListMine results
type Filter struct {
	// Role is "sent", "received" or "" for both sides
	Role   string
	Status *Status
}

type Pagination struct {
	Page  int
	Limit int
}

// Repository defines exchange data access
type Repository interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, req *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Request, error)
	UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status Status, resolvedAt *time.Time) error
	PendingEdgesTx(ctx context.Context, tx *sqlx.Tx) ([]Edge, error)
	ListMine(ctx context.Context, userID uuid.UUID, filter *Filter, pagination *Pagination) ([]*Request, int, error)
	CreateDispute(ctx context.Context, d *Dispute) error
}

const requestSelectColumns = `
	er.id, er.book_id, er.requester_id, er.owner_id, er.points_cost,
	er.status, er.message, er.created_at, er.resolved_at
`

type repository struct {
	db *sqlx.DB
}

// NewRepository creates exchange repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateTx(ctx context.Context, tx *sqlx.Tx, req *Request) error {
	return tx.QueryRowxContext(ctx, `
		INSERT INTO exchange_requests (id, book_id, requester_id, owner_id, points_cost, status, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`,
		req.ID, req.BookID, req.RequesterID, req.OwnerID, req.PointsCost,
		req.Status, req.Message,
	).Scan(&req.CreatedAt)
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	query := `
		SELECT ` + requestSelectColumns + `, b.title AS book_title, b.author AS book_author
		FROM exchange_requests er
		JOIN books b ON b.id = er.book_id
		WHERE er.id = $1
	`

	var req Request
	err := r.db.GetContext(ctx, &req, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// GetForUpdateTx locks the request row. Join-free so FOR UPDATE applies to
// exchange_requests only; the book row is locked separately when needed.
func (r *repository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Request, error) {
	query := `
		SELECT ` + requestSelectColumns + `
		FROM exchange_requests er
		WHERE er.id = $1
		FOR UPDATE
	`

	var req Request
	err := tx.GetContext(ctx, &req, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status Status, resolvedAt *time.Time) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE exchange_requests
		SET status = $2, resolved_at = $3
		WHERE id = $1
	`, id, status, resolvedAt)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// PendingEdgesTx returns the unresolved obligation graph for cycle detection.
// approved rows never persist under the current approve flow, but the filter
// keeps the detector correct if that ever changes.
func (r *repository) PendingEdgesTx(ctx context.Context, tx *sqlx.Tx) ([]Edge, error) {
	edges := []Edge{}
	err := tx.SelectContext(ctx, &edges, `
		SELECT requester_id, owner_id
		FROM exchange_requests
		WHERE status IN ('pending', 'approved')
	`)
	if err != nil {
		return nil, err
	}
	return edges, nil
}

func (r *repository) ListMine(ctx context.Context, userID uuid.UUID, filter *Filter, pagination *Pagination) ([]*Request, int, error) {
	conditions := []string{}
	args := []interface{}{userID}
	argIndex := 2

	switch filter.Role {
	case "sent":
		conditions = append(conditions, "er.requester_id = $1")
	case "received":
		conditions = append(conditions, "er.owner_id = $1")
	default:
		conditions = append(conditions, "(er.requester_id = $1 OR er.owner_id = $1)")
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("er.status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM exchange_requests er %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	offset := (pagination.Page - 1) * pagination.Limit
	query := fmt.Sprintf(`
		SELECT %s, b.title AS book_title, b.author AS book_author
		FROM exchange_requests er
		JOIN books b ON b.id = er.book_id
		%s
		ORDER BY er.created_at DESC
		LIMIT $%d OFFSET $%d
	`, requestSelectColumns, where, argIndex, argIndex+1)
	args = append(args, pagination.Limit, offset)

	requests := []*Request{}
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *repository) CreateDispute(ctx context.Context, d *Dispute) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO exchange_disputes (id, exchange_request_id, raised_by, reason, description, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`,
		d.ID, d.ExchangeRequestID, d.RaisedBy, d.Reason, d.Description, d.Status,
	).Scan(&d.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDisputeExists
		}
		return err
	}
	return nil
}
