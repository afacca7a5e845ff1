package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/booksexchange/booksexchange-api/internal/domain/book"
	"github.com/booksexchange/booksexchange-api/internal/domain/points"
	"github.com/booksexchange/booksexchange-api/internal/pkg/database"
)

// Notifier delivers exchange events to interested users. Implemented by the
// notification service adapter; dispatch is fire-and-forget after commit.
type Notifier interface {
	ExchangeRequested(ctx context.Context, req *Request) error
	ExchangeApproved(ctx context.Context, req *Request) error
	ExchangeRejected(ctx context.Context, req *Request) error
	BookAvailable(ctx context.Context, bookID uuid.UUID) error
}

type Service struct {
	db       *sqlx.DB
	repo     Repository
	books    book.Repository
	points   *points.Service
	notifier Notifier
}

func NewService(db *sqlx.DB, repo Repository, books book.Repository, pts *points.Service) *Service {
	return &Service{
		db:     db,
		repo:   repo,
		books:  books,
		points: pts,
	}
}

// SetNotifier wires the notification dispatcher (optional dependency)
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Create opens a pending exchange request and takes the book off the market.
// points_cost freezes the book's point value at request time; the balance
// check here is advisory — Approve re-checks under account locks.
func (s *Service) Create(ctx context.Context, requesterID uuid.UUID, dto *CreateExchangeRequest) (*Request, error) {
	bookID, err := uuid.Parse(dto.BookID)
	if err != nil {
		return nil, book.ErrBookNotFound
	}

	req := &Request{
		ID:          uuid.New(),
		BookID:      bookID,
		RequesterID: requesterID,
		Status:      StatusPending,
		Message:     dto.Message,
	}

	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		b, err := s.books.GetForUpdateTx(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if b.Retired {
			return book.ErrBookNotFound
		}
		if b.OwnerID != nil && *b.OwnerID == requesterID {
			return ErrSelfRequest
		}
		if b.OwnerID == nil || !b.IsAvailable {
			return ErrBookUnavailable
		}

		balance, err := s.points.Balance(ctx, requesterID)
		if err != nil {
			return err
		}
		if balance < int64(b.PointValue) {
			return points.ErrInsufficientPoints
		}

		req.OwnerID = *b.OwnerID
		req.PointsCost = b.PointValue
		req.BookTitle = b.Title
		req.BookAuthor = b.Author

		if err := s.repo.CreateTx(ctx, tx, req); err != nil {
			return err
		}
		return s.books.SetAvailabilityTx(ctx, tx, bookID, false)
	})
	if err != nil {
		return nil, mapTxErr(err)
	}

	log.Info().
		Str("exchange_id", req.ID.String()).
		Str("book_id", bookID.String()).
		Str("requester_id", requesterID.String()).
		Str("owner_id", req.OwnerID.String()).
		Int("points_cost", req.PointsCost).
		Msg("exchange request created")

	if s.notifier != nil {
		go func() {
			bgCtx := context.Background()
			_ = s.notifier.ExchangeRequested(bgCtx, req)
		}()
	}

	return req, nil
}

// Approve completes the exchange in one transaction: cycle check, points
// transfer, ownership transfer, availability restore, history entry. Any
// failure rolls the whole thing back.
func (s *Service) Approve(ctx context.Context, ownerID, requestID uuid.UUID) (*Request, error) {
	var req *Request

	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var err error
		req, err = s.repo.GetForUpdateTx(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if req.OwnerID != ownerID {
			return ErrNotOwner
		}
		if !req.CanTransitionTo(StatusApproved) {
			return ErrAlreadyResolved
		}

		edges, err := s.repo.PendingEdgesTx(ctx, tx)
		if err != nil {
			return err
		}
		if wouldCreateCycle(edges, req.RequesterID, req.OwnerID) {
			return ErrCircularExchange
		}

		if err := s.points.TransferExchangeTx(ctx, tx, req.RequesterID, req.OwnerID, int64(req.PointsCost), req.ID); err != nil {
			return err
		}
		if err := s.books.TransferOwnershipTx(ctx, tx, req.BookID, req.OwnerID, req.RequesterID); err != nil {
			return err
		}
		if err := s.books.SetAvailabilityTx(ctx, tx, req.BookID, true); err != nil {
			return err
		}

		now := time.Now()
		if err := s.repo.UpdateStatusTx(ctx, tx, req.ID, StatusCompleted, &now); err != nil {
			return err
		}
		req.Status = StatusCompleted
		req.ResolvedAt = &now

		notes := fmt.Sprintf("ownership transferred for %d points", req.PointsCost)
		return s.books.AppendHistoryTx(ctx, tx, &book.HistoryEntry{
			ID:          uuid.New(),
			BookID:      req.BookID,
			ActorUserID: &req.RequesterID,
			Action:      book.HistoryActionExchanged,
			Notes:       &notes,
		})
	})
	if err != nil {
		return nil, mapTxErr(err)
	}

	log.Info().
		Str("exchange_id", req.ID.String()).
		Str("book_id", req.BookID.String()).
		Str("requester_id", req.RequesterID.String()).
		Str("owner_id", req.OwnerID.String()).
		Int("points_cost", req.PointsCost).
		Msg("exchange completed")

	if s.notifier != nil {
		go func() {
			bgCtx := context.Background()
			_ = s.notifier.ExchangeApproved(bgCtx, req)
		}()
	}

	return req, nil
}

// Reject declines a pending request and puts the book back on the market
func (s *Service) Reject(ctx context.Context, ownerID, requestID uuid.UUID) (*Request, error) {
	req, err := s.resolve(ctx, requestID, StatusRejected, func(r *Request) error {
		if r.OwnerID != ownerID {
			return ErrNotOwner
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("exchange_id", req.ID.String()).
		Str("book_id", req.BookID.String()).
		Msg("exchange request rejected")

	if s.notifier != nil {
		go func() {
			bgCtx := context.Background()
			_ = s.notifier.ExchangeRejected(bgCtx, req)
			_ = s.notifier.BookAvailable(bgCtx, req.BookID)
		}()
	}

	return req, nil
}

// Cancel withdraws a pending request (requester only) and restores availability
func (s *Service) Cancel(ctx context.Context, requesterID, requestID uuid.UUID) (*Request, error) {
	req, err := s.resolve(ctx, requestID, StatusCancelled, func(r *Request) error {
		if r.RequesterID != requesterID {
			return ErrNotRequester
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("exchange_id", req.ID.String()).
		Str("book_id", req.BookID.String()).
		Msg("exchange request cancelled")

	if s.notifier != nil {
		go func() {
			bgCtx := context.Background()
			_ = s.notifier.BookAvailable(bgCtx, req.BookID)
		}()
	}

	return req, nil
}

// resolve closes a pending request without moving points or ownership
func (s *Service) resolve(ctx context.Context, requestID uuid.UUID, next Status, authorize func(*Request) error) (*Request, error) {
	var req *Request

	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var err error
		req, err = s.repo.GetForUpdateTx(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if err := authorize(req); err != nil {
			return err
		}
		if !req.CanTransitionTo(next) {
			return ErrAlreadyResolved
		}

		now := time.Now()
		if err := s.repo.UpdateStatusTx(ctx, tx, req.ID, next, &now); err != nil {
			return err
		}
		req.Status = next
		req.ResolvedAt = &now

		return s.books.SetAvailabilityTx(ctx, tx, req.BookID, true)
	})
	if err != nil {
		return nil, mapTxErr(err)
	}
	return req, nil
}

// Dispute attaches a disagreement record to a completed exchange. The
// transfer stands; disputes are for operators, not rollback.
func (s *Service) Dispute(ctx context.Context, raiserID, requestID uuid.UUID, dto *DisputeRequest) (*Dispute, error) {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.IsParty(raiserID) {
		return nil, ErrNotParty
	}
	if req.Status != StatusCompleted {
		return nil, ErrNotCompleted
	}

	d := &Dispute{
		ID:                uuid.New(),
		ExchangeRequestID: req.ID,
		RaisedBy:          raiserID,
		Reason:            dto.Reason,
		Description:       dto.Description,
		Status:            DisputeStatusOpen,
	}
	if err := s.repo.CreateDispute(ctx, d); err != nil {
		return nil, err
	}

	log.Info().
		Str("exchange_id", req.ID.String()).
		Str("dispute_id", d.ID.String()).
		Str("raised_by", raiserID.String()).
		Msg("exchange dispute opened")

	return d, nil
}

// Get returns a request to its parties; everyone else sees not found
func (s *Service) Get(ctx context.Context, userID, requestID uuid.UUID) (*Request, error) {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.IsParty(userID) {
		return nil, ErrRequestNotFound
	}
	return req, nil
}

// ListMine returns requests where the user is a party
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID, filter *Filter, pagination *Pagination) ([]*Request, int, error) {
	return s.repo.ListMine(ctx, userID, filter, pagination)
}

func mapTxErr(err error) error {
	if errors.Is(err, database.ErrTxRetryExhausted) {
		return ErrBusy
	}
	return err
}
