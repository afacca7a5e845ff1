package qr

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/booksexchange/booksexchange-api/internal/domain/book"
)

// Service resolves scanned codes to books and their reading history.
// It produces scan URLs but never renders QR images; rendering belongs
// to the clients printing the labels.
type Service struct {
	repo    book.Repository
	books   *book.Service
	baseURL string
}

func NewService(repo book.Repository, books *book.Service, scanBaseURL string) *Service {
	return &Service{
		repo:    repo,
		books:   books,
		baseURL: strings.TrimRight(scanBaseURL, "/"),
	}
}

// ParseCode extracts a lookup key from whatever the scanner hands us:
// a bare permanent id, a qr_code_id, or a full scan URL carrying either.
// Query strings and fragments are ignored.
func ParseCode(raw string) string {
	code := strings.TrimSpace(raw)
	if i := strings.IndexAny(code, "?#"); i >= 0 {
		code = code[:i]
	}

	// Scan URLs look like {base}/books/{permanent_id}/history.
	if i := strings.Index(code, "/books/"); i >= 0 {
		code = code[i+len("/books/"):]
		if j := strings.Index(code, "/"); j >= 0 {
			code = code[:j]
		}
		return code
	}

	// Any other URL shape: last path segment.
	code = strings.TrimRight(code, "/")
	if i := strings.LastIndex(code, "/"); i >= 0 {
		code = code[i+1:]
	}
	return code
}

// Resolve looks up a scanned code and returns the book with its full
// history, newest first. Retired books resolve too — the story outlives
// the listing.
func (s *Service) Resolve(ctx context.Context, rawCode string) (*book.Book, []*book.HistoryEntry, error) {
	b, err := s.lookup(ctx, rawCode)
	if err != nil {
		return nil, nil, err
	}

	history, err := s.repo.ListHistory(ctx, b.ID)
	if err != nil {
		return nil, nil, err
	}

	return b, history, nil
}

// AppendHistory records a scanner's entry against the book behind a code.
// Any authenticated user may contribute; ownership is not required.
func (s *Service) AppendHistory(ctx context.Context, actorID uuid.UUID, rawCode string, req *book.AppendHistoryRequest) (*book.HistoryEntry, error) {
	b, err := s.lookup(ctx, rawCode)
	if err != nil {
		return nil, err
	}
	return s.books.AppendHistory(ctx, actorID, b.ID, req)
}

// ScanURL returns the link a book's QR label encodes.
func (s *Service) ScanURL(b *book.Book) string {
	return fmt.Sprintf("%s/books/%s/history", s.baseURL, b.PermanentID)
}

func (s *Service) lookup(ctx context.Context, rawCode string) (*book.Book, error) {
	code := ParseCode(rawCode)
	if code == "" {
		return nil, book.ErrBookNotFound
	}

	if id, err := uuid.Parse(code); err == nil {
		return s.repo.GetByPermanentID(ctx, id)
	}
	return s.repo.GetByQRCodeID(ctx, code)
}
