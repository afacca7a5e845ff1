package notification

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/booksexchange/booksexchange-api/internal/domain/book"
	"github.com/booksexchange/booksexchange-api/internal/domain/exchange"
)

type exchangeNotifier interface {
	NotifyExchangeRequested(ctx context.Context, ownerID uuid.UUID, bookTitle string, exchangeID, bookID uuid.UUID) error
	NotifyExchangeApproved(ctx context.Context, requesterID uuid.UUID, bookTitle string, exchangeID, bookID uuid.UUID) error
	NotifyExchangeRejected(ctx context.Context, requesterID uuid.UUID, bookTitle string, exchangeID, bookID uuid.UUID) error
	NotifyBookAvailable(ctx context.Context, userID uuid.UUID, bookTitle string, bookID uuid.UUID) error
}

type bookFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*book.Book, error)
}

type wishlistFeed interface {
	UsersWanting(ctx context.Context, bookID uuid.UUID) ([]uuid.UUID, error)
}

// Dispatcher turns exchange lifecycle events into stored notifications.
// It satisfies the notifier hook of the exchange service.
type Dispatcher struct {
	notifications exchangeNotifier
	books         bookFinder
	wishlists     wishlistFeed
}

var _ exchange.Notifier = (*Dispatcher)(nil)

// NewDispatcher creates an exchange event dispatcher
func NewDispatcher(service *Service, books bookFinder, wishlists wishlistFeed) *Dispatcher {
	return &Dispatcher{
		notifications: service,
		books:         books,
		wishlists:     wishlists,
	}
}

// ExchangeRequested notifies the book owner about a new request
func (d *Dispatcher) ExchangeRequested(ctx context.Context, req *exchange.Request) error {
	title, err := d.bookTitle(ctx, req)
	if err != nil {
		return err
	}
	return d.notifications.NotifyExchangeRequested(ctx, req.OwnerID, title, req.ID, req.BookID)
}

// ExchangeApproved notifies the requester that the book is theirs
func (d *Dispatcher) ExchangeApproved(ctx context.Context, req *exchange.Request) error {
	title, err := d.bookTitle(ctx, req)
	if err != nil {
		return err
	}
	return d.notifications.NotifyExchangeApproved(ctx, req.RequesterID, title, req.ID, req.BookID)
}

// ExchangeRejected notifies the requester about the refusal
func (d *Dispatcher) ExchangeRejected(ctx context.Context, req *exchange.Request) error {
	title, err := d.bookTitle(ctx, req)
	if err != nil {
		return err
	}
	return d.notifications.NotifyExchangeRejected(ctx, req.RequesterID, title, req.ID, req.BookID)
}

// BookAvailable notifies everyone holding the book on a wishlist.
// The availability check runs again here: the event is delivered
// asynchronously and the book may have been taken in the meantime.
func (d *Dispatcher) BookAvailable(ctx context.Context, bookID uuid.UUID) error {
	b, err := d.books.GetByID(ctx, bookID)
	if err != nil {
		return err
	}
	if b.Retired || !b.IsAvailable {
		return nil
	}

	userIDs, err := d.wishlists.UsersWanting(ctx, bookID)
	if err != nil {
		return err
	}

	for _, userID := range userIDs {
		if err := d.notifications.NotifyBookAvailable(ctx, userID, b.Title, bookID); err != nil {
			log.Warn().Err(err).
				Str("user_id", userID.String()).
				Str("book_id", bookID.String()).
				Msg("Failed to deliver wishlist availability notification")
		}
	}

	return nil
}

// bookTitle prefers the title captured on the request and falls back
// to a registry lookup for callers that did not join it.
func (d *Dispatcher) bookTitle(ctx context.Context, req *exchange.Request) (string, error) {
	if req.BookTitle != "" {
		return req.BookTitle, nil
	}
	b, err := d.books.GetByID(ctx, req.BookID)
	if err != nil {
		return "", err
	}
	return b.Title, nil
}
