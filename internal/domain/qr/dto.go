package qr

import "github.com/booksexchange/booksexchange-api/internal/domain/book"

type ScanRequest struct {
	Code string `json:"code" validate:"required,max=2048"`
}

type ScanResponse struct {
	Book    *book.Book           `json:"book"`
	History []*book.HistoryEntry `json:"history"`
	ScanURL string               `json:"scan_url"`
}
