package notification

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RealtimePublisher pushes freshly stored notifications to live connections.
// Implemented by the websocket publisher; delivery is best-effort.
type RealtimePublisher interface {
	NotifyNew(ctx context.Context, userID uuid.UUID, notification *NotificationResponse, unreadCount int) error
}

// Service handles notification logic
type Service struct {
	repo      Repository
	publisher RealtimePublisher
}

// NewService creates notification service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SetPublisher wires the realtime publisher (optional dependency)
func (s *Service) SetPublisher(p RealtimePublisher) {
	s.publisher = p
}

// Create stores a notification and pushes it to the user's live connections
func (s *Service) Create(ctx context.Context, userID uuid.UUID, notifType Type, title, body string, data *NotificationData) (*Notification, error) {
	n := &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		IsRead:    false,
		CreatedAt: time.Now(),
	}

	if body != "" {
		n.Body = sql.NullString{String: body, Valid: true}
	}
	n.SetData(data)

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		unread, err := s.repo.CountUnreadByUser(ctx, userID)
		if err != nil {
			unread = 0
		}
		if err := s.publisher.NotifyNew(ctx, userID, NotificationResponseFromEntity(n), unread); err != nil {
			log.Warn().Err(err).Str("user_id", userID.String()).Msg("realtime notification publish failed")
		}
	}

	return n, nil
}

// List returns notifications for user, newest first, with total
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, int, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// GetUnreadCount returns unread count
func (s *Service) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnreadByUser(ctx, userID)
}

// MarkAsRead marks one of the user's notifications as read
func (s *Service) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, userID, id)
}

// MarkAllAsRead marks all of the user's notifications as read
func (s *Service) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

// --- Helper methods for creating specific notifications ---

// NotifyExchangeRequested notifies the owner that someone wants their book
func (s *Service) NotifyExchangeRequested(ctx context.Context, ownerID uuid.UUID, bookTitle string, exchangeID, bookID uuid.UUID) error {
	_, err := s.Create(ctx, ownerID, TypeExchangeRequested,
		"New exchange request",
		fmt.Sprintf("Someone wants to exchange for %q", bookTitle),
		&NotificationData{ExchangeRequestID: &exchangeID, BookID: &bookID},
	)
	return err
}

// NotifyExchangeApproved notifies the requester that the exchange completed
func (s *Service) NotifyExchangeApproved(ctx context.Context, requesterID uuid.UUID, bookTitle string, exchangeID, bookID uuid.UUID) error {
	_, err := s.Create(ctx, requesterID, TypeExchangeApproved,
		"Exchange approved",
		fmt.Sprintf("The owner approved your request for %q. The book is yours now.", bookTitle),
		&NotificationData{ExchangeRequestID: &exchangeID, BookID: &bookID},
	)
	return err
}

// NotifyExchangeRejected notifies the requester that the owner declined
func (s *Service) NotifyExchangeRejected(ctx context.Context, requesterID uuid.UUID, bookTitle string, exchangeID, bookID uuid.UUID) error {
	_, err := s.Create(ctx, requesterID, TypeExchangeRejected,
		"Exchange declined",
		fmt.Sprintf("The owner declined your request for %q", bookTitle),
		&NotificationData{ExchangeRequestID: &exchangeID, BookID: &bookID},
	)
	return err
}

// NotifyBookAvailable tells a wishlist holder their book is back on the market
func (s *Service) NotifyBookAvailable(ctx context.Context, userID uuid.UUID, bookTitle string, bookID uuid.UUID) error {
	_, err := s.Create(ctx, userID, TypeBookAvailable,
		"A wished book is available",
		fmt.Sprintf("%q from your wishlist is available for exchange", bookTitle),
		&NotificationData{BookID: &bookID},
	)
	return err
}
