package book

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/booksexchange/booksexchange-api/internal/pkg/imaging"
	"github.com/booksexchange/booksexchange-api/internal/pkg/storage"
)

// RewardLedger credits the one-time listing reward inside the registration
// transaction. Implemented by the points service.
type RewardLedger interface {
	CreditListingRewardTx(ctx context.Context, tx *sqlx.Tx, ownerID uuid.UUID, permanentID string) error
}

const maxRegisterAttempts = 3

type Service struct {
	db      *sqlx.DB
	repo    Repository
	ledger  RewardLedger
	storage storage.Storage
	imaging *imaging.Processor
}

func NewService(db *sqlx.DB, repo Repository, ledger RewardLedger, store storage.Storage, processor *imaging.Processor) *Service {
	return &Service{
		db:      db,
		repo:    repo,
		ledger:  ledger,
		storage: store,
		imaging: processor,
	}
}

// Register mints the book's permanent identity, appends the listed history
// entry and credits the listing reward — all in one transaction. The
// permanent id is generated once here and never changes afterwards.
func (s *Service) Register(ctx context.Context, ownerID uuid.UUID, req *CreateBookRequest) (*Book, error) {
	cond := Condition(strings.ToLower(req.Condition))
	if !cond.Valid() {
		return nil, ErrInvalidCondition
	}

	title := strings.TrimSpace(req.Title)
	author := strings.TrimSpace(req.Author)

	exists, err := s.repo.ExistsActiveListing(ctx, ownerID, title, author)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateListing
	}

	var b *Book
	for attempt := 0; attempt < maxRegisterAttempts; attempt++ {
		permanentID := uuid.New()
		b = &Book{
			ID:          uuid.New(),
			PermanentID: permanentID,
			QRCodeID:    QRCodeID(permanentID),
			Title:       title,
			Author:      author,
			Condition:   cond,
			Description: optional(req.Description),
			Location:    optional(req.Location),
			PointValue:  cond.PointValue(),
			OwnerID:     &ownerID,
			IsAvailable: true,
		}

		err = s.register(ctx, ownerID, b)
		if errors.Is(err, errIdentityCollision) {
			// The 12-hex qr prefix collided with an existing book.
			// A fresh permanent id resolves it.
			continue
		}
		if err != nil {
			return nil, err
		}

		log.Info().
			Str("book_id", b.ID.String()).
			Str("permanent_id", b.PermanentID.String()).
			Str("owner_id", ownerID.String()).
			Msg("book registered")
		return b, nil
	}

	return nil, err
}

func (s *Service) register(ctx context.Context, ownerID uuid.UUID, b *Book) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.repo.CreateTx(ctx, tx, b); err != nil {
		return err
	}

	notes := fmt.Sprintf("%q by %s listed", b.Title, b.Author)
	entry := &HistoryEntry{
		BookID:      b.ID,
		ActorUserID: &ownerID,
		Action:      HistoryActionListed,
		Notes:       &notes,
	}
	if err := s.repo.AppendHistoryTx(ctx, tx, entry); err != nil {
		return err
	}

	if err := s.ledger.CreditListingRewardTx(ctx, tx, ownerID, b.PermanentID.String()); err != nil {
		return err
	}

	return tx.Commit()
}

// Get resolves a book by row id first, then by permanent id. Retired books
// still resolve — their story outlives the listing.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Book, error) {
	b, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrBookNotFound) {
		return s.repo.GetByPermanentID(ctx, id)
	}
	return b, err
}

func (s *Service) List(ctx context.Context, filter *Filter, pagination *Pagination) ([]*Book, int, error) {
	return s.repo.List(ctx, filter, pagination)
}

func (s *Service) ListByOwner(ctx context.Context, ownerID uuid.UUID, pagination *Pagination) ([]*Book, int, error) {
	return s.repo.ListByOwner(ctx, ownerID, pagination)
}

// Delete retires a listing rather than erasing it, so history entries and
// past exchange requests keep a valid book reference. A book with completed
// exchange history cannot be removed at all, and one with an unresolved
// request must be resolved first.
func (s *Service) Delete(ctx context.Context, ownerID, bookID uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	b, err := s.repo.GetForUpdateTx(ctx, tx, bookID)
	if err != nil {
		return err
	}
	if b.Retired {
		return ErrBookNotFound
	}
	if b.OwnerID == nil || *b.OwnerID != ownerID {
		return ErrNotOwner
	}

	busy, err := s.repo.HasPendingExchangeTx(ctx, tx, bookID)
	if err != nil {
		return err
	}
	if busy {
		return ErrBookBusy
	}

	completed, err := s.repo.HasCompletedExchangeTx(ctx, tx, bookID)
	if err != nil {
		return err
	}
	if completed {
		return ErrHasHistory
	}

	if err := s.repo.RetireTx(ctx, tx, bookID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Info().Str("book_id", bookID.String()).Str("owner_id", ownerID.String()).Msg("book retired")
	return nil
}

func (s *Service) SuggestedValue(ctx context.Context, bookID uuid.UUID) (*ValuationResponse, error) {
	b, err := s.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}

	counts, err := s.repo.ValuationCounts(ctx, b.ID)
	if err != nil {
		return nil, err
	}

	demand := DemandScore(counts.Wishlist, counts.PendingExchanges, counts.CompletedExchanges)
	rarity := RarityScore(counts.AvailableCopies)

	return &ValuationResponse{
		BookID:         b.ID,
		Condition:      b.Condition,
		CurrentValue:   b.PointValue,
		SuggestedValue: SuggestedValue(b.Condition, demand, rarity),
		DemandScore:    demand,
		RarityScore:    rarity,
	}, nil
}

// History returns the book and its full story, newest entries first.
func (s *Service) History(ctx context.Context, bookID uuid.UUID) (*Book, []*HistoryEntry, error) {
	b, err := s.Get(ctx, bookID)
	if err != nil {
		return nil, nil, err
	}

	entries, err := s.repo.ListHistory(ctx, b.ID)
	if err != nil {
		return nil, nil, err
	}
	return b, entries, nil
}

// AppendHistory adds one entry to a book's story. Any authenticated scanner
// may contribute — ownership is not required.
func (s *Service) AppendHistory(ctx context.Context, actorID, bookID uuid.UUID, req *AppendHistoryRequest) (*HistoryEntry, error) {
	b, err := s.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}

	action := HistoryAction(req.Action)
	if action == "" {
		action = HistoryActionRead
	}
	if !action.Valid() {
		return nil, ErrInvalidAction
	}

	days, err := readingDuration(req)
	if err != nil {
		return nil, err
	}

	entry := &HistoryEntry{
		BookID:              b.ID,
		ActorUserID:         &actorID,
		Action:              action,
		City:                optional(req.City),
		ReadingDurationDays: days,
		Notes:               optional(req.Notes),
	}
	if err := s.repo.AppendHistory(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// readingDuration prefers an explicit day count; otherwise derives one from
// the started/finished dates when both are present.
func readingDuration(req *AppendHistoryRequest) (*int, error) {
	if req.ReadingDurationDays != nil {
		return req.ReadingDurationDays, nil
	}
	if req.StartedOn == "" || req.FinishedOn == "" {
		return nil, nil
	}

	started, err := time.Parse("2006-01-02", req.StartedOn)
	if err != nil {
		return nil, err
	}
	finished, err := time.Parse("2006-01-02", req.FinishedOn)
	if err != nil {
		return nil, err
	}
	if finished.Before(started) {
		return nil, ErrInvalidPeriod
	}

	days := int(finished.Sub(started).Hours() / 24)
	return &days, nil
}

// UploadCover validates, processes and stores a cover image, then persists
// the public URLs. Owner-only.
func (s *Service) UploadCover(ctx context.Context, ownerID, bookID uuid.UUID, file io.Reader) (*Book, error) {
	b, err := s.repo.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if b.OwnerID == nil || *b.OwnerID != ownerID {
		return nil, ErrNotOwner
	}

	data, _, err := storage.ValidateCover(file)
	if err != nil {
		return nil, err
	}

	set, err := s.imaging.ProcessCover(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableCover, err)
	}

	coverKey := fmt.Sprintf("covers/%s/cover.jpg", b.ID)
	thumbKey := fmt.Sprintf("covers/%s/thumb.jpg", b.ID)

	if err := s.storage.Put(ctx, coverKey, bytes.NewReader(set.Cover), set.ContentType); err != nil {
		return nil, err
	}
	if err := s.storage.Put(ctx, thumbKey, bytes.NewReader(set.Thumb), set.ContentType); err != nil {
		return nil, err
	}

	coverURL := s.storage.URL(coverKey)
	thumbURL := s.storage.URL(thumbKey)
	if err := s.repo.UpdateCoverURLs(ctx, b.ID, coverURL, thumbURL); err != nil {
		return nil, err
	}

	b.CoverURL = &coverURL
	b.CoverThumbURL = &thumbURL

	log.Info().Str("book_id", b.ID.String()).Int("cover_bytes", len(set.Cover)).Msg("book cover updated")
	return b, nil
}

func optional(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
